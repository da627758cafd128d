package compute

import (
	"strings"

	"sentimentreality/internal/models"
	"sentimentreality/internal/pkg/utils"
)

// AggregateDaily groups scored items by UTC publication date. Items must be
// ordered by (published_at, id) so the floating point sums are reproducible.
func AggregateDaily(ticker string, items []models.ScoredItem) []models.DailyAgg {
	if len(items) == 0 {
		return nil
	}

	var (
		out  []models.DailyAgg
		sums []float64
		idx  = make(map[string]int)
	)
	for _, it := range items {
		key := utils.DateKey(it.PublishedAt)
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, models.DailyAgg{Ticker: ticker, Date: utils.DateOf(it.PublishedAt)})
			sums = append(sums, 0)
		}

		row := &out[i]
		row.ArticleCount++
		sums[i] += it.SentimentScore
		switch strings.ToUpper(it.SentimentLabel) {
		case models.LabelPositive:
			row.PositiveCount++
		case models.LabelNegative:
			row.NegativeCount++
		case models.LabelNeutral:
			row.NeutralCount++
		}
	}

	for i := range out {
		out[i].SentimentAvg = sums[i] / float64(out[i].ArticleCount)
	}
	return out
}
