package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sentimentreality/internal/models"
	"sentimentreality/internal/pkg/utils"
	"sentimentreality/internal/repository"
)

// StockHandler lets producers track tickers and queue work for them.
type StockHandler struct {
	repos  *Repos
	logger *zap.Logger
}

func NewStockHandler(repos *Repos, logger *zap.Logger) *StockHandler {
	return &StockHandler{repos: repos, logger: logger}
}

func bindTicker(c echo.Context) (string, error) {
	var req models.StockRequest
	if err := c.Bind(&req); err != nil {
		return "", errors.New("invalid request body")
	}
	ticker, ok := utils.NormalizeTicker(req.Ticker)
	if !ok {
		return "", errors.New("ticker is invalid")
	}
	return ticker, nil
}

// Track marks a ticker as tracked and queues its backfill.
func (h *StockHandler) Track(c echo.Context) error {
	ticker, err := bindTicker(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	if err := h.repos.Stock.Track(ctx, ticker); err != nil {
		h.logger.Error("Failed to track stock", zap.String("ticker", ticker), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to track stock")
	}
	task, err := h.repos.Task.Enqueue(ctx, models.TaskBackfillStock, ticker, models.PriorityBackfill)
	if err != nil {
		h.logger.Error("Failed to queue backfill", zap.String("ticker", ticker), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to queue backfill")
	}

	return successResponse(c, "Successful", taskResponse(task))
}

// Refresh queues an urgent refresh for a ticker.
func (h *StockHandler) Refresh(c echo.Context) error {
	ticker, err := bindTicker(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	task, err := h.repos.Task.Enqueue(c.Request().Context(), models.TaskRefreshStock, ticker, models.PriorityManualRefresh)
	if err != nil {
		h.logger.Error("Failed to queue refresh", zap.String("ticker", ticker), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to queue refresh")
	}

	return successResponse(c, "Successful", taskResponse(task))
}

// Daily returns the most recent daily sentiment aggregates.
func (h *StockHandler) Daily(c echo.Context) error {
	ticker, ok := utils.NormalizeTicker(c.Param("ticker"))
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "ticker is invalid")
	}
	days := queryInt(c, "days", 30, 365)

	rows, err := h.repos.Aggregate.ListDaily(c.Request().Context(), ticker, days)
	if err != nil {
		h.logger.Error("Failed to list daily aggregates", zap.String("ticker", ticker), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to load daily aggregates")
	}
	return successResponse(c, "Successful", rows)
}

// Metrics returns the most recent windowed alignment metrics.
func (h *StockHandler) Metrics(c echo.Context) error {
	ticker, ok := utils.NormalizeTicker(c.Param("ticker"))
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "ticker is invalid")
	}
	window := queryInt(c, "window", 7, 90)
	limit := queryInt(c, "limit", 30, 365)

	rows, err := h.repos.Aggregate.ListMetrics(c.Request().Context(), ticker, window, limit)
	if err != nil {
		h.logger.Error("Failed to list metrics", zap.String("ticker", ticker), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to load metrics")
	}
	return successResponse(c, "Successful", rows)
}

func taskResponse(task *models.Task) models.TaskResponse {
	return models.TaskResponse{
		Queued:   true,
		TaskID:   task.ID,
		TaskType: task.TaskType,
		Ticker:   task.TickerValue(),
	}
}

// TaskHandler exposes queue state.
type TaskHandler struct {
	repos  *Repos
	logger *zap.Logger
}

func NewTaskHandler(repos *Repos, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{repos: repos, logger: logger}
}

func (h *TaskHandler) Get(c echo.Context) error {
	task, err := h.repos.Task.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repository.ErrTaskNotFound) {
		return errorResponse(c, http.StatusNotFound, "task not found")
	}
	if err != nil {
		h.logger.Error("Failed to load task", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to load task")
	}
	return successResponse(c, "Successful", task)
}

func (h *TaskHandler) List(c echo.Context) error {
	status := models.TaskStatus(c.QueryParam("status"))
	switch status {
	case "", models.TaskPending, models.TaskRunning, models.TaskDone, models.TaskError:
	default:
		return errorResponse(c, http.StatusBadRequest, "status is invalid")
	}
	limit := queryInt(c, "limit", 50, 500)

	tasks, err := h.repos.Task.List(c.Request().Context(), status, limit)
	if err != nil {
		h.logger.Error("Failed to list tasks", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to list tasks")
	}
	return successResponse(c, "Successful", tasks)
}

// Stats reports how many tasks sit in each status.
func (h *TaskHandler) Stats(c echo.Context) error {
	counts, err := h.repos.Task.CountByStatus(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to count tasks", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to count tasks")
	}
	return successResponse(c, "Successful", counts)
}
