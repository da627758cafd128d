package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"sentimentreality/internal/pkg/utils"
)

// headlinesPerDay matches the volume of a typical small-cap news feed.
const headlinesPerDay = 3

var mockSources = []string{"Reuters", "Bloomberg", "Yahoo Finance", "MarketWatch"}

var mockTemplates = [][]string{
	{
		"%s shares surge on strong earnings beat",
		"Analysts upgrade %s citing growth momentum",
		"%s announces expansion plans, stock rises",
		"Investors bullish on %s ahead of product launch",
		"%s outperforms market expectations",
	},
	{
		"%s drops amid broader market selloff",
		"Concerns grow over %s supply chain issues",
		"%s faces headwinds from regulatory scrutiny",
		"Analysts cut %s price target on slowing growth",
		"%s misses revenue estimates, shares fall",
	},
	{
		"%s trading flat ahead of Fed decision",
		"Market watches %s for earnings guidance",
		"%s holds steady despite sector volatility",
		"Investors await %s quarterly report",
		"%s maintains position in mixed trading session",
	},
}

func seedFor(parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return int64(h.Sum64() & math.MaxInt64)
}

// MockNews generates repeatable headlines: the same ticker and day always
// produce the same records, so re-fetching converges on the same rows.
type MockNews struct {
	now func() time.Time
}

func NewMockNews(now func() time.Time) *MockNews {
	if now == nil {
		now = time.Now
	}
	return &MockNews{now: now}
}

func (m *MockNews) FetchHeadlines(ctx context.Context, ticker string, days int) ([]Headline, error) {
	today := utils.DateOf(m.now())
	out := make([]Headline, 0, days*headlinesPerDay)
	for d := 0; d < days; d++ {
		day := today.AddDate(0, 0, -d)
		key := day.Format("20060102")
		rng := rand.New(rand.NewSource(seedFor("news", ticker, key)))

		for n := 0; n < headlinesPerDay; n++ {
			group := mockTemplates[rng.Intn(len(mockTemplates))]
			title := fmt.Sprintf(group[rng.Intn(len(group))], ticker)
			published := day.Add(time.Duration(9+rng.Intn(12))*time.Hour + time.Duration(rng.Intn(60))*time.Minute)
			if published.After(m.now()) {
				published = day
			}
			out = append(out, Headline{
				Source:      mockSources[rng.Intn(len(mockSources))],
				SourceID:    fmt.Sprintf("mock_%s_%s_%d", ticker, key, n),
				PublishedAt: published,
				Title:       title,
				URL:         fmt.Sprintf("https://example.com/news/%s/%s-%d", strings.ToLower(ticker), key, n),
				Snippet:     fmt.Sprintf("Full article about %s...", ticker),
			})
		}
	}
	return out, nil
}

// MockPrices produces a repeatable price path per ticker: each weekday's close
// depends only on the ticker and the date.
type MockPrices struct {
	now func() time.Time
}

func NewMockPrices(now func() time.Time) *MockPrices {
	if now == nil {
		now = time.Now
	}
	return &MockPrices{now: now}
}

func (m *MockPrices) FetchDailyPrices(ctx context.Context, ticker string, days int) ([]Price, error) {
	today := utils.DateOf(m.now())
	base := 50 + float64(seedFor("base", ticker)%450)

	var out []Price
	for d := days - 1; d >= 0; d-- {
		day := today.AddDate(0, 0, -d)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		rng := rand.New(rand.NewSource(seedFor("price", ticker, day.Format("20060102"))))
		trend := math.Sin(float64(day.Unix()/86400) / 9)
		closePx := utils.Round(base*(1+0.08*trend+0.02*(rng.Float64()-0.5)), 2)
		open := utils.Round(closePx*(1+0.01*(rng.Float64()-0.5)), 2)
		high := utils.Round(math.Max(open, closePx)*(1+0.01*rng.Float64()), 2)
		low := utils.Round(math.Min(open, closePx)*(1-0.01*rng.Float64()), 2)
		volume := int64(1_000_000 + rng.Intn(9_000_000))

		out = append(out, Price{
			Date:     day,
			Open:     &open,
			High:     &high,
			Low:      &low,
			Close:    closePx,
			AdjClose: closePx,
			Volume:   &volume,
		})
	}
	return out, nil
}
