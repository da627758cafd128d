package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 14, 23, 0, 0, 0, time.UTC) // a Friday
}

func TestMockNewsIsRepeatable(t *testing.T) {
	news := NewMockNews(fixedNow)

	first, err := news.FetchHeadlines(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	second, err := news.FetchHeadlines(context.Background(), "AAPL", 5)
	require.NoError(t, err)

	require.Len(t, first, 15)
	require.Equal(t, first, second)

	urls := make(map[string]bool)
	for _, h := range first {
		require.Contains(t, h.Title, "AAPL")
		require.False(t, h.PublishedAt.After(fixedNow()))
		require.False(t, urls[h.URL], "urls are unique")
		urls[h.URL] = true
	}

	// A shorter window is a subset of the longer one.
	recent, err := news.FetchHeadlines(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	require.Equal(t, first[:6], recent)
}

func TestMockPricesSkipWeekends(t *testing.T) {
	prices := NewMockPrices(fixedNow)

	bars, err := prices.FetchDailyPrices(context.Background(), "MSFT", 14)
	require.NoError(t, err)
	require.Len(t, bars, 10)
	for i, b := range bars {
		require.NotEqual(t, time.Saturday, b.Date.Weekday())
		require.NotEqual(t, time.Sunday, b.Date.Weekday())
		require.Greater(t, b.Close, 0.0)
		require.LessOrEqual(t, *b.Low, b.Close)
		require.GreaterOrEqual(t, *b.High, b.Close)
		if i > 0 {
			require.True(t, b.Date.After(bars[i-1].Date))
		}
	}

	again, err := prices.FetchDailyPrices(context.Background(), "MSFT", 14)
	require.NoError(t, err)
	require.Equal(t, bars, again)
}
