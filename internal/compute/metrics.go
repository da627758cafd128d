package compute

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"sentimentreality/internal/models"
	"sentimentreality/internal/pkg/utils"
)

const (
	// minStdDev is the spread below which a series counts as flat.
	minStdDev = 0.001

	alignedThreshold    = 0.3
	misleadingThreshold = -0.3
)

// WindowResult holds the alignment statistics of one window.
type WindowResult struct {
	Corr             float64
	DirectionalMatch float64
	AlignmentScore   float64
	MisalignmentDays int
	Interpretation   string
}

// ScoreWindow compares equally long sentiment and return series.
func ScoreWindow(sentiment, returns []float64) WindowResult {
	n := len(sentiment)
	if n == 0 || n != len(returns) {
		return WindowResult{Interpretation: models.InterpretationNoisy}
	}

	corr := 0.0
	_, sdS := stat.PopMeanStdDev(sentiment, nil)
	_, sdR := stat.PopMeanStdDev(returns, nil)
	if sdS >= minStdDev && sdR >= minStdDev {
		corr = stat.Correlation(sentiment, returns, nil)
		if math.IsNaN(corr) || math.IsInf(corr, 0) {
			corr = 0
		}
	}

	matches := 0
	for i := range sentiment {
		if sign(sentiment[i]) == sign(returns[i]) {
			matches++
		}
	}
	dm := float64(matches) / float64(n)

	alignment := 0.5*corr + 0.5*(2*dm-1)
	alignment = math.Max(-1, math.Min(1, alignment))

	return WindowResult{
		Corr:             utils.Round4(corr),
		DirectionalMatch: utils.Round4(dm),
		AlignmentScore:   utils.Round4(alignment),
		MisalignmentDays: n - matches,
		Interpretation:   interpret(alignment),
	}
}

func interpret(alignment float64) string {
	switch {
	case alignment >= alignedThreshold:
		return models.InterpretationAligned
	case alignment <= misleadingThreshold:
		return models.InterpretationMisleading
	default:
		return models.InterpretationNoisy
	}
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// AlignmentWindows intersects the two daily series and scores every window of
// windowDays consecutive common dates. Fewer common dates than windowDays yields nil.
func AlignmentWindows(ticker string, sentiment, returns []models.SeriesPoint, windowDays int) []models.MetricWindowed {
	if windowDays <= 0 {
		return nil
	}

	byDate := make(map[string]float64, len(returns))
	for _, p := range returns {
		byDate[utils.DateKey(p.Date)] = p.Value
	}

	type pair struct {
		date      time.Time
		sentiment float64
		ret       float64
	}
	var common []pair
	seen := make(map[string]bool, len(sentiment))
	for _, p := range sentiment {
		key := utils.DateKey(p.Date)
		ret, ok := byDate[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		common = append(common, pair{date: utils.DateOf(p.Date), sentiment: p.Value, ret: ret})
	}
	if len(common) < windowDays {
		return nil
	}
	slices.SortFunc(common, func(a, b pair) int { return a.date.Compare(b.date) })

	out := make([]models.MetricWindowed, 0, len(common)-windowDays+1)
	s := make([]float64, windowDays)
	r := make([]float64, windowDays)
	for end := windowDays - 1; end < len(common); end++ {
		window := common[end-windowDays+1 : end+1]
		for i, p := range window {
			s[i] = p.sentiment
			r[i] = p.ret
		}
		res := ScoreWindow(s, r)
		out = append(out, models.MetricWindowed{
			Ticker:           ticker,
			DateEnd:          window[windowDays-1].date,
			WindowDays:       windowDays,
			Corr:             res.Corr,
			DirectionalMatch: res.DirectionalMatch,
			AlignmentScore:   res.AlignmentScore,
			MisalignmentDays: res.MisalignmentDays,
			Interpretation:   res.Interpretation,
		})
	}
	return out
}
