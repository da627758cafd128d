package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sentimentreality/internal/models"
	"sentimentreality/internal/repository"
	"sentimentreality/internal/testutil"
)

const testKey = "secret"

type envelope struct {
	Status bool            `json:"status"`
	Msg    string          `json:"msg"`
	Obj    json.RawMessage `json:"obj"`
}

func newServer(t *testing.T) (*echo.Echo, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	e := echo.New()
	Setup(e, db, zap.NewNop(), testKey)
	return e, db
}

func do(t *testing.T, e *echo.Echo, method, path, body, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Token", token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(path, "/api") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestHealthSkipsAuth(t *testing.T) {
	e, _ := newServer(t)
	rec, _ := do(t, e, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPIRequiresToken(t *testing.T) {
	e, _ := newServer(t)

	rec, env := do(t, e, http.MethodGet, "/api/tasks", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, env.Status)
	require.Equal(t, "Token is required", env.Msg)

	rec, env = do(t, e, http.MethodGet, "/api/tasks", "", "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid token", env.Msg)
}

func TestTrackQueuesBackfill(t *testing.T) {
	ctx := context.Background()
	e, db := newServer(t)

	rec, env := do(t, e, http.MethodPost, "/api/stocks", `{"ticker":" aapl "}`, testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Status)

	var resp models.TaskResponse
	require.NoError(t, json.Unmarshal(env.Obj, &resp))
	require.True(t, resp.Queued)
	require.Equal(t, models.TaskBackfillStock, resp.TaskType)
	require.Equal(t, "AAPL", resp.Ticker)

	task, err := repository.NewTaskRepository(db).Get(ctx, resp.TaskID)
	require.NoError(t, err)
	require.Equal(t, models.PriorityBackfill, task.Priority)
	require.Equal(t, models.TaskPending, task.Status)

	active, err := repository.NewStockRepository(db).ListActive(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"AAPL"}, active)
}

func TestRefreshQueuesUrgentTask(t *testing.T) {
	ctx := context.Background()
	e, db := newServer(t)

	rec, env := do(t, e, http.MethodPost, "/api/stocks/refresh", `{"ticker":"msft"}`, testKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.TaskResponse
	require.NoError(t, json.Unmarshal(env.Obj, &resp))
	require.Equal(t, models.TaskRefreshStock, resp.TaskType)

	task, err := repository.NewTaskRepository(db).Get(ctx, resp.TaskID)
	require.NoError(t, err)
	require.Equal(t, models.PriorityManualRefresh, task.Priority)
}

func TestRejectsInvalidTicker(t *testing.T) {
	e, db := newServer(t)

	for _, body := range []string{`{"ticker":""}`, `{"ticker":"^gspc"}`, `not json`} {
		rec, env := do(t, e, http.MethodPost, "/api/stocks", body, testKey)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		require.False(t, env.Status)
	}

	var count int64
	require.NoError(t, db.Model(&models.Task{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestTaskLookup(t *testing.T) {
	ctx := context.Background()
	e, db := newServer(t)
	tasks := repository.NewTaskRepository(db)

	task, err := tasks.Enqueue(ctx, models.TaskDailyUpdateAll, "", models.PriorityDailyUpdateAll)
	require.NoError(t, err)
	_, err = tasks.Enqueue(ctx, models.TaskRefreshStock, "TSLA", models.PriorityManualRefresh)
	require.NoError(t, err)

	rec, env := do(t, e, http.MethodGet, "/api/tasks/"+task.ID, "", testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Task
	require.NoError(t, json.Unmarshal(env.Obj, &got))
	require.Equal(t, task.ID, got.ID)
	require.Nil(t, got.Ticker)

	rec, _ = do(t, e, http.MethodGet, "/api/tasks/does-not-exist", "", testKey)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, e, http.MethodGet, "/api/tasks?status=PENDING&limit=1", "", testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Task
	require.NoError(t, json.Unmarshal(env.Obj, &listed))
	require.Len(t, listed, 1)

	rec, _ = do(t, e, http.MethodGet, "/api/tasks?status=LOST", "", testKey)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, e, http.MethodGet, "/api/tasks/stats", "", testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[models.TaskStatus]int64
	require.NoError(t, json.Unmarshal(env.Obj, &stats))
	require.Equal(t, int64(2), stats[models.TaskPending])
}

func TestDailyAndMetrics(t *testing.T) {
	ctx := context.Background()
	e, db := newServer(t)
	aggs := repository.NewAggregateRepository(db)

	var daily []models.DailyAgg
	for d := 1; d <= 5; d++ {
		daily = append(daily, models.DailyAgg{
			Ticker:       "NVDA",
			Date:         time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC),
			SentimentAvg: 0.1 * float64(d),
			ArticleCount: d,
		})
	}
	_, err := aggs.UpsertDaily(ctx, daily)
	require.NoError(t, err)
	_, err = aggs.UpsertMetrics(ctx, []models.MetricWindowed{{
		Ticker:         "NVDA",
		DateEnd:        time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
		WindowDays:     3,
		Corr:           0.8,
		Interpretation: models.InterpretationAligned,
	}})
	require.NoError(t, err)

	rec, env := do(t, e, http.MethodGet, "/api/stocks/nvda/daily?days=2", "", testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []models.DailyAgg
	require.NoError(t, json.Unmarshal(env.Obj, &rows))
	require.Len(t, rows, 2)
	require.Equal(t, 4, rows[0].ArticleCount)
	require.Equal(t, 5, rows[1].ArticleCount)

	rec, env = do(t, e, http.MethodGet, "/api/stocks/NVDA/metrics?window=3", "", testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	var metrics []models.MetricWindowed
	require.NoError(t, json.Unmarshal(env.Obj, &metrics))
	require.Len(t, metrics, 1)
	require.Equal(t, models.InterpretationAligned, metrics[0].Interpretation)

	rec, env = do(t, e, http.MethodGet, "/api/stocks/NVDA/metrics", "", testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	metrics = nil
	require.NoError(t, json.Unmarshal(env.Obj, &metrics))
	require.Empty(t, metrics)
}
