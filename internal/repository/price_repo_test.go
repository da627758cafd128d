package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sentimentreality/internal/models"
	"sentimentreality/internal/testutil"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestUpsertPricesKeepsReturns(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPriceRepository(db)
	ctx := context.Background()

	rows := []models.PriceDaily{
		{Ticker: "AAPL", Date: day(4), Close: 100, AdjClose: 100},
		{Ticker: "AAPL", Date: day(5), Close: 110, AdjClose: 110},
	}
	n, err := repo.UpsertPrices(ctx, rows)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	ret := 10.0
	require.NoError(t, repo.UpdateReturns(ctx, []models.PriceDaily{{Ticker: "AAPL", Date: day(5), Return1D: &ret}}))

	// Re-fetching the same day overwrites the bar but not the computed return.
	_, err = repo.UpsertPrices(ctx, []models.PriceDaily{{Ticker: "AAPL", Date: day(5), Close: 111, AdjClose: 111}})
	require.NoError(t, err)

	stored, err := repo.ListPrices(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, 111.0, stored[1].Close)
	require.NotNil(t, stored[1].Return1D)
	require.Nil(t, stored[0].Return1D)

	returns, err := repo.ListReturns(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, returns, 1)
	require.True(t, returns[0].Date.Equal(day(5)))
	require.Equal(t, 10.0, returns[0].Value)
}
