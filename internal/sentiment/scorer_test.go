package sentiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"sentimentreality/internal/models"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w"
	}
	return strings.Join(parts, " ")
}

// fixedClassifier answers every chunk with the same prediction and counts calls.
type fixedClassifier struct {
	pred  Prediction
	calls atomic.Int32
}

func (f *fixedClassifier) Classify(_ context.Context, chunks []string) ([]Prediction, error) {
	f.calls.Add(1)
	out := make([]Prediction, len(chunks))
	for i := range out {
		out[i] = f.pred
	}
	return out, nil
}

func newTestScorer(t *testing.T, c Classifier) *Scorer {
	t.Helper()
	s, err := NewScorer(c, WordTokenizer{}, DefaultOptions(), nil)
	require.NoError(t, err)
	return s
}

func TestAggregateWeightsByConfidence(t *testing.T) {
	got := Aggregate([]Prediction{
		{Label: "POSITIVE", Confidence: 0.9},
		{Label: "NEGATIVE", Confidence: 0.3},
	})
	require.Equal(t, models.LabelPositive, got.Label)
	require.Equal(t, 0.6, got.Score)
	require.Equal(t, 0.6, got.Confidence)
	require.Equal(t, 2, got.ChunksUsed)
}

func TestAggregateThresholds(t *testing.T) {
	tests := []struct {
		name  string
		preds []Prediction
		label string
	}{
		{"lowercase labels", []Prediction{{Label: "negative", Confidence: 0.8}}, models.LabelNegative},
		{"neutral only", []Prediction{{Label: "neutral", Confidence: 0.99}}, models.LabelNeutral},
		{"opposing chunks cancel", []Prediction{{Label: "POSITIVE", Confidence: 0.5}, {Label: "NEGATIVE", Confidence: 0.5}}, models.LabelNeutral},
		{"zero confidence", []Prediction{{Label: "POSITIVE", Confidence: 0}}, models.LabelNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.label, Aggregate(tt.preds).Label)
		})
	}

	require.Equal(t, NeutralScore(), Aggregate(nil))
}

func TestChunkBounds(t *testing.T) {
	s := newTestScorer(t, &fixedClassifier{})

	short := "Apple  stock\tsoars after strong earnings."
	require.Equal(t, []string{short}, s.Chunk(short), "fitting text stays unmodified")

	exact := words(512)
	require.Len(t, s.Chunk(exact), 1)

	// 513 tokens: windows start at 0 and 448.
	chunks := s.Chunk(words(513))
	require.Len(t, chunks, 2)
	require.Len(t, strings.Fields(chunks[0]), 512)
	require.Len(t, strings.Fields(chunks[1]), 65)

	require.Len(t, s.Chunk(words(512*6*4)), 6)
	require.Empty(t, s.Chunk(" \n\t "))
}

func TestChunkOverlap(t *testing.T) {
	s, err := NewScorer(&fixedClassifier{}, WordTokenizer{}, Options{MaxTokens: 4, Overlap: 1, MaxChunks: 10}, nil)
	require.NoError(t, err)

	require.Equal(t, []string{"a b c d", "d e f g", "g h"}, s.Chunk("a b c d e f g h"))
}

func TestNewScorerRejectsBadOptions(t *testing.T) {
	_, err := NewScorer(&fixedClassifier{}, nil, Options{MaxTokens: 8, Overlap: 8, MaxChunks: 1}, nil)
	require.Error(t, err)
	_, err = NewScorer(&fixedClassifier{}, nil, Options{MaxTokens: 8, Overlap: 0, MaxChunks: 0}, nil)
	require.Error(t, err)
}

func TestScoreTextEmptyInput(t *testing.T) {
	c := &fixedClassifier{pred: Prediction{Label: "POSITIVE", Confidence: 1}}
	s := newTestScorer(t, c)

	for _, text := range []string{"", "   ", "\n\t"} {
		require.Equal(t, Score{Label: models.LabelNeutral}, s.ScoreText(context.Background(), text))
	}
	require.Equal(t, int32(0), c.calls.Load())
}

func TestScoreTextClassifierFailureIsNeutral(t *testing.T) {
	failing := ClassifierFunc(func(context.Context, []string) ([]Prediction, error) {
		return nil, errors.New("model unavailable")
	})
	require.Equal(t, NeutralScore(), newTestScorer(t, failing).ScoreText(context.Background(), "stock soars"))

	short := ClassifierFunc(func(context.Context, []string) ([]Prediction, error) {
		return []Prediction{}, nil
	})
	require.Equal(t, NeutralScore(), newTestScorer(t, short).ScoreText(context.Background(), "stock soars"))

	panicking := ClassifierFunc(func(context.Context, []string) ([]Prediction, error) {
		panic("boom")
	})
	require.Equal(t, NeutralScore(), newTestScorer(t, panicking).ScoreText(context.Background(), "stock soars"))
}

func TestScoreTextLongArticle(t *testing.T) {
	c := &fixedClassifier{pred: Prediction{Label: "NEGATIVE", Confidence: 0.75}}
	s := newTestScorer(t, c)

	got := s.ScoreText(context.Background(), words(10000))
	require.Equal(t, Score{Label: models.LabelNegative, Score: -0.75, Confidence: 0.75, ChunksUsed: 6}, got)
	require.Equal(t, int32(1), c.calls.Load(), "chunks are classified in one batch")
}

func TestScoreBatchIsIndependent(t *testing.T) {
	s := newTestScorer(t, NewLexiconClassifier())

	got := s.ScoreBatch(context.Background(), []string{
		"Apple stock soars after strong earnings report.",
		"",
		"Tesla faces challenges amid increasing competition.",
	})
	require.Len(t, got, 3)
	require.Equal(t, models.LabelPositive, got[0].Label)
	require.Equal(t, NeutralScore(), got[1])
	require.Equal(t, models.LabelNegative, got[2].Label)
}

// pieceTokenizer splits words into two-letter pieces, so text holds more tokens than words.
type pieceTokenizer struct{}

func (pieceTokenizer) Encode(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		for len(w) > 2 {
			out = append(out, w[:2])
			w = w[2:]
		}
		out = append(out, w+" ")
	}
	return out
}

func (pieceTokenizer) Decode(tokens []string) string {
	return strings.TrimSpace(strings.Join(tokens, ""))
}

func TestChunkCountsTokenizerUnits(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("growth ", 300))

	byWords, err := NewScorer(&fixedClassifier{}, WordTokenizer{}, DefaultOptions(), nil)
	require.NoError(t, err)
	require.Len(t, byWords.Chunk(text), 1)

	// 300 six-letter words are 900 pieces: windows start at 0, 448 and 896.
	byPieces, err := NewScorer(&fixedClassifier{}, pieceTokenizer{}, DefaultOptions(), nil)
	require.NoError(t, err)
	chunks := byPieces.Chunk(text)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		require.LessOrEqual(t, len(pieceTokenizer{}.Encode(c)), 512)
	}
}

func TestLoadModelTokenizerRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	require.NoError(t, os.WriteFile(path, []byte("not a tokenizer"), 0o600))

	_, err := LoadModelTokenizer(path)
	require.Error(t, err)
}
