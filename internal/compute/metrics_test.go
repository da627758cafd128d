package compute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sentimentreality/internal/models"
)

func series(start time.Time, values ...float64) []models.SeriesPoint {
	out := make([]models.SeriesPoint, len(values))
	for i, v := range values {
		out[i] = models.SeriesPoint{Date: start.AddDate(0, 0, i), Value: v}
	}
	return out
}

var start = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

func TestScoreWindowPerfectAlignment(t *testing.T) {
	s := []float64{0.1, 0.3, -0.2, 0.5, -0.4, 0.2, 0.6}
	r := []float64{1, 3, -2, 5, -4, 2, 6}

	got := ScoreWindow(s, r)
	require.Equal(t, 1.0, got.Corr)
	require.Equal(t, 1.0, got.DirectionalMatch)
	require.Equal(t, 1.0, got.AlignmentScore)
	require.Equal(t, 0, got.MisalignmentDays)
	require.Equal(t, models.InterpretationAligned, got.Interpretation)
}

func TestScoreWindowPerfectAntiAlignment(t *testing.T) {
	s := []float64{0.1, 0.3, -0.2, 0.5, -0.4, 0.2, 0.6}
	r := []float64{-1, -3, 2, -5, 4, -2, -6}

	got := ScoreWindow(s, r)
	require.Equal(t, -1.0, got.Corr)
	require.Equal(t, 0.0, got.DirectionalMatch)
	require.Equal(t, -1.0, got.AlignmentScore)
	require.Equal(t, 7, got.MisalignmentDays)
	require.Equal(t, models.InterpretationMisleading, got.Interpretation)
}

func TestScoreWindowFlatSeries(t *testing.T) {
	s := []float64{0.2, 0.2, 0.2, 0.2, 0.2, 0.2, 0.2}
	r := []float64{1, -1, 2, -2, 3, -3, 1}

	got := ScoreWindow(s, r)
	require.Equal(t, 0.0, got.Corr)
	// Four positive returns match the positive sentiment.
	require.Equal(t, 0.5714, got.DirectionalMatch)
	require.Equal(t, 3, got.MisalignmentDays)
	require.Equal(t, 0.0714, got.AlignmentScore)
	require.Equal(t, models.InterpretationNoisy, got.Interpretation)
}

func TestScoreWindowZeroSigns(t *testing.T) {
	s := []float64{0, 0, 0.5, -0.5}
	r := []float64{0, 1, 2, -2}

	got := ScoreWindow(s, r)
	require.Equal(t, 0.75, got.DirectionalMatch)
	require.Equal(t, 1, got.MisalignmentDays)
}

func TestAlignmentWindowsInsufficientData(t *testing.T) {
	s := series(start, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7)
	// Only six dates overlap.
	r := series(start.AddDate(0, 0, 1), 1, 2, 3, 4, 5, 6, 7)

	require.Empty(t, AlignmentWindows("AAPL", s, r, 7))
	require.Empty(t, AlignmentWindows("AAPL", nil, r, 7))
}

func TestAlignmentWindowsSlide(t *testing.T) {
	s := series(start, 0.1, 0.3, -0.2, 0.5, -0.4, 0.2, 0.6, 0.1, -0.3)
	r := series(start, 1, 3, -2, 5, -4, 2, 6, 1, -3)

	rows := AlignmentWindows("AAPL", s, r, 7)
	require.Len(t, rows, 3)
	for i, row := range rows {
		require.Equal(t, "AAPL", row.Ticker)
		require.Equal(t, 7, row.WindowDays)
		require.True(t, row.DateEnd.Equal(start.AddDate(0, 0, 6+i)))
		require.Equal(t, 1.0, row.AlignmentScore)
	}
}

func TestAlignmentWindowsUsesIntersection(t *testing.T) {
	// Weekend sentiment has no return and is skipped.
	s := series(start, 0.1, 0.3, -0.2, 0.5, -0.4, 0.2, 0.6, 0.9)
	r := []models.SeriesPoint{
		{Date: start, Value: 1},
		{Date: start.AddDate(0, 0, 1), Value: 3},
		{Date: start.AddDate(0, 0, 2), Value: -2},
		{Date: start.AddDate(0, 0, 3), Value: 5},
		{Date: start.AddDate(0, 0, 4), Value: -4},
		{Date: start.AddDate(0, 0, 5), Value: 2},
		{Date: start.AddDate(0, 0, 7), Value: 9},
	}

	rows := AlignmentWindows("MSFT", s, r, 7)
	require.Len(t, rows, 1)
	require.True(t, rows[0].DateEnd.Equal(start.AddDate(0, 0, 7)))
}
