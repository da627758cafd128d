package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"sentimentreality/internal/testutil"
)

func TestTrackAndListActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewStockRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Track(ctx, "MSFT"))
	require.NoError(t, repo.Track(ctx, "AAPL"))
	require.NoError(t, repo.Track(ctx, "TSLA"))
	require.NoError(t, repo.Untrack(ctx, "TSLA"))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"AAPL", "MSFT"}, active)

	require.NoError(t, repo.Track(ctx, "TSLA"))
	active, err = repo.ListActive(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, active)
}
