package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"sentimentreality/internal/models"
	"sentimentreality/internal/testutil"
)

func TestUpsertDailyReplacesRow(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAggregateRepository(db)
	ctx := context.Background()

	_, err := repo.UpsertDaily(ctx, []models.DailyAgg{
		{Ticker: "AAPL", Date: day(4), SentimentAvg: 0.5, ArticleCount: 2, PositiveCount: 2},
		{Ticker: "AAPL", Date: day(5), SentimentAvg: -0.2, ArticleCount: 1, NegativeCount: 1},
	})
	require.NoError(t, err)

	_, err = repo.UpsertDaily(ctx, []models.DailyAgg{
		{Ticker: "AAPL", Date: day(4), SentimentAvg: 0.1, ArticleCount: 3, PositiveCount: 1, NeutralCount: 2},
	})
	require.NoError(t, err)

	rows, err := repo.ListDaily(ctx, "AAPL", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 0.1, rows[0].SentimentAvg)
	require.Equal(t, 3, rows[0].ArticleCount)
	require.Equal(t, 0, rows[0].NegativeCount)

	last, err := repo.ListDaily(ctx, "AAPL", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	require.True(t, last[0].Date.Equal(day(5)))

	series, err := repo.ListDailySentiment(ctx, "AAPL")
	require.NoError(t, err)
	require.Equal(t, []float64{0.1, -0.2}, []float64{series[0].Value, series[1].Value})
}

func TestUpsertMetrics(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAggregateRepository(db)
	ctx := context.Background()

	row := models.MetricWindowed{Ticker: "AAPL", DateEnd: day(10), WindowDays: 7, Corr: 0.5, DirectionalMatch: 0.5, AlignmentScore: 0.25, MisalignmentDays: 3, Interpretation: models.InterpretationNoisy}
	_, err := repo.UpsertMetrics(ctx, []models.MetricWindowed{row})
	require.NoError(t, err)

	row.AlignmentScore = 0.9
	row.Interpretation = models.InterpretationAligned
	_, err = repo.UpsertMetrics(ctx, []models.MetricWindowed{row})
	require.NoError(t, err)

	rows, err := repo.ListMetrics(ctx, "AAPL", 7, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 0.9, rows[0].AlignmentScore)
	require.Equal(t, models.InterpretationAligned, rows[0].Interpretation)

	other, err := repo.ListMetrics(ctx, "AAPL", 14, 0)
	require.NoError(t, err)
	require.Empty(t, other)
}
