package provider

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"sentimentreality/internal/pkg/httpclient"
)

// minParagraphLength skips bylines, captions and share buttons.
const minParagraphLength = 40

// HTMLExtractor pulls paragraph text out of an article page.
type HTMLExtractor struct {
	client   *httpclient.Client
	maxChars int
	log      *zap.Logger
}

func NewHTMLExtractor(client *httpclient.Client, maxChars int, log *zap.Logger) *HTMLExtractor {
	return &HTMLExtractor{client: client, maxChars: maxChars, log: log}
}

func (e *HTMLExtractor) GetArticleText(ctx context.Context, url string) string {
	body, err := e.client.GetBytes(ctx, url, nil)
	if err != nil {
		e.log.Debug("Article fetch failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	text, err := ExtractText(body)
	if err != nil {
		e.log.Debug("Article parse failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	if e.maxChars > 0 && len(text) > e.maxChars {
		text = strings.ToValidUTF8(text[:e.maxChars], "")
	}
	return text
}

// ExtractText returns the article paragraphs of an HTML document joined by blank lines.
// Paragraphs inside <article> win over the rest of the page when present.
func ExtractText(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, header, footer, aside, form").Remove()

	scope := doc.Find("article")
	if scope.Length() == 0 {
		scope = doc.Find("body")
	}

	var parts []string
	scope.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if len(text) >= minParagraphLength {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n"), nil
}
