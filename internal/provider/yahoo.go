package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"sentimentreality/internal/pkg/httpclient"
	"sentimentreality/internal/pkg/utils"
)

// calendarBuffer covers weekends and holidays when asking for N trading days.
const calendarBuffer = 5

// YahooPrices reads daily bars from the Yahoo Finance chart API.
type YahooPrices struct {
	client  *httpclient.Client
	baseURL string
	now     func() time.Time
	log     *zap.Logger
}

func NewYahooPrices(client *httpclient.Client, baseURL string, log *zap.Logger) *YahooPrices {
	return &YahooPrices{client: client, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now, log: log}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *YahooPrices) FetchDailyPrices(ctx context.Context, ticker string, days int) ([]Price, error) {
	end := y.now().UTC()
	start := end.AddDate(0, 0, -(days + calendarBuffer))

	var resp chartResponse
	err := y.client.GetJSON(ctx, y.baseURL+"/"+url.PathEscape(ticker), map[string]string{
		"period1":  strconv.FormatInt(start.Unix(), 10),
		"period2":  strconv.FormatInt(end.Unix(), 10),
		"interval": "1d",
		"events":   "history",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s", ticker, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		y.log.Warn("No price data found", zap.String("ticker", ticker))
		return nil, nil
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	out := make([]Price, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePx := at(quote.Close, i)
		if closePx == nil {
			continue
		}
		p := Price{
			Date:     utils.DateOf(time.Unix(ts, 0)),
			Open:     at(quote.Open, i),
			High:     at(quote.High, i),
			Low:      at(quote.Low, i),
			Close:    *closePx,
			AdjClose: *closePx,
			Volume:   at(quote.Volume, i),
		}
		if a := at(adj, i); a != nil {
			p.AdjClose = *a
		}
		out = append(out, p)
	}

	if len(out) > days {
		out = out[len(out)-days:]
	}
	return out, nil
}

func at[T any](xs []*T, i int) *T {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}

// YahooRSS reads headlines from the Yahoo Finance per-symbol RSS feed.
type YahooRSS struct {
	client  *httpclient.Client
	feedURL string
	now     func() time.Time
}

func NewYahooRSS(client *httpclient.Client, feedURL string) *YahooRSS {
	return &YahooRSS{client: client, feedURL: feedURL, now: time.Now}
}

const yahooRSSSource = "Yahoo Finance RSS"

func (y *YahooRSS) FetchHeadlines(ctx context.Context, ticker string, days int) ([]Headline, error) {
	body, err := y.client.GetBytes(ctx, y.feedURL, map[string]string{
		"s":      ticker,
		"region": "US",
		"lang":   "en-US",
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo rss %s: %w", ticker, err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse yahoo rss %s: %w", ticker, err)
	}

	cutoff := y.now().UTC().AddDate(0, 0, -days)
	out := make([]Headline, 0, len(feed.Items))
	for _, it := range feed.Items {
		link := strings.TrimSpace(it.Link)
		if link == "" || it.PublishedParsed == nil || it.PublishedParsed.Before(cutoff) {
			continue
		}
		sourceID := strings.TrimSpace(it.GUID)
		if sourceID == "" {
			sourceID = link
		}
		out = append(out, Headline{
			Source:      yahooRSSSource,
			SourceID:    utils.Truncate(sourceID, 255),
			PublishedAt: it.PublishedParsed.UTC(),
			Title:       strings.TrimSpace(it.Title),
			URL:         utils.Truncate(link, 512),
			Snippet:     strings.TrimSpace(it.Description),
		})
	}
	return out, nil
}
