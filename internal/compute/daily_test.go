package compute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sentimentreality/internal/models"
)

func TestAggregateDailyGroupsByUTCDate(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	items := []models.ScoredItem{
		{ItemID: 1, PublishedAt: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC), SentimentLabel: models.LabelPositive, SentimentScore: 0.8},
		{ItemID: 2, PublishedAt: time.Date(2024, 4, 1, 15, 0, 0, 0, time.UTC), SentimentLabel: models.LabelNegative, SentimentScore: -0.4},
		{ItemID: 3, PublishedAt: time.Date(2024, 4, 1, 16, 0, 0, 0, time.UTC), SentimentLabel: models.LabelNeutral, SentimentScore: 0},
		// 21:00 EST is already the 2nd in UTC.
		{ItemID: 4, PublishedAt: time.Date(2024, 4, 1, 21, 0, 0, 0, est), SentimentLabel: models.LabelPositive, SentimentScore: 0.5},
	}

	rows := AggregateDaily("AAPL", items)
	require.Len(t, rows, 2)

	require.True(t, rows[0].Date.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	require.InDelta(t, 0.1333333, rows[0].SentimentAvg, 1e-6)
	require.Equal(t, 3, rows[0].ArticleCount)
	require.Equal(t, 1, rows[0].PositiveCount)
	require.Equal(t, 1, rows[0].NeutralCount)
	require.Equal(t, 1, rows[0].NegativeCount)

	require.True(t, rows[1].Date.Equal(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 0.5, rows[1].SentimentAvg)
	require.Equal(t, 1, rows[1].ArticleCount)
}

func TestAggregateDailyEmpty(t *testing.T) {
	require.Empty(t, AggregateDaily("AAPL", nil))
}

func TestDailyReturns(t *testing.T) {
	prices := []models.PriceDaily{
		{Ticker: "AAPL", Date: start, Close: 100},
		{Ticker: "AAPL", Date: start.AddDate(0, 0, 1), Close: 110},
		// Weekend gap: the return is still against the previous stored day.
		{Ticker: "AAPL", Date: start.AddDate(0, 0, 4), Close: 99},
	}

	out := DailyReturns(prices)
	require.Nil(t, out[0].Return1D)
	require.Equal(t, 10.0, *out[1].Return1D)
	require.Equal(t, -10.0, *out[2].Return1D)
	require.Nil(t, prices[1].Return1D, "input is not modified")
}
