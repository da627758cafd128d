package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sentimentreality/internal/pkg/httpclient"
)

const articleHTML = `<html><head><script>var x = "ignored paragraph text that is long enough";</script></head>
<body>
<nav><p>Home | Markets | Technology | Personal Finance | Sign in</p></nav>
<p>Sidebar paragraph outside the article that is long enough to count.</p>
<article>
	<p>Apple shares climbed on Thursday after the company unveiled new features.</p>
	<p>Short byline</p>
	<p>Analysts said the   announcement could
	lift iPhone upgrade cycles over the next year.</p>
</article>
</body></html>`

func TestExtractTextPrefersArticle(t *testing.T) {
	text, err := ExtractText([]byte(articleHTML))
	require.NoError(t, err)
	require.Equal(t,
		"Apple shares climbed on Thursday after the company unveiled new features.\n\n"+
			"Analysts said the announcement could lift iPhone upgrade cycles over the next year.",
		text)
}

func TestExtractTextFallsBackToBody(t *testing.T) {
	text, err := ExtractText([]byte(`<html><body><p>` + strings.Repeat("word ", 10) + `</p></body></html>`))
	require.NoError(t, err)
	require.Equal(t, strings.TrimSpace(strings.Repeat("word ", 10)), text)
}

func TestHTMLExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	e := NewHTMLExtractor(httpclient.New().WithRetries(0), 20, zap.NewNop())
	require.Equal(t, "Apple shares climbed", e.GetArticleText(context.Background(), srv.URL+"/story"))
	require.Empty(t, e.GetArticleText(context.Background(), srv.URL+"/missing"))
	require.Empty(t, NoopExtractor{}.GetArticleText(context.Background(), srv.URL))
}
