package sentiment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sentimentreality/internal/models"
	"sentimentreality/internal/pkg/utils"
)

// Label thresholds on the aggregated score.
const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

// Options bound chunking. MaxTokens is the classifier's input limit.
type Options struct {
	MaxTokens int
	Overlap   int
	MaxChunks int
}

func DefaultOptions() Options {
	return Options{MaxTokens: 512, Overlap: 64, MaxChunks: 6}
}

// Score is the article-level sentiment result.
type Score struct {
	Label      string  `json:"sentiment_label"`
	Score      float64 `json:"sentiment_score"`
	Confidence float64 `json:"confidence"`
	ChunksUsed int     `json:"chunks_used"`
}

// NeutralScore is returned for empty input and classifier failures.
func NeutralScore() Score {
	return Score{Label: models.LabelNeutral}
}

// Scorer chunks article text, classifies the chunks and folds the predictions
// into one confidence-weighted score. It keeps no state between calls.
type Scorer struct {
	classifier Classifier
	tokenizer  Tokenizer
	opts       Options
	log        *zap.Logger
}

func NewScorer(classifier Classifier, tokenizer Tokenizer, opts Options, log *zap.Logger) (*Scorer, error) {
	if opts.MaxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", opts.MaxTokens)
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.MaxTokens {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", opts.MaxTokens, opts.Overlap)
	}
	if opts.MaxChunks <= 0 {
		return nil, fmt.Errorf("max chunks must be positive, got %d", opts.MaxChunks)
	}
	if tokenizer == nil {
		tokenizer = WordTokenizer{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scorer{classifier: classifier, tokenizer: tokenizer, opts: opts, log: log}, nil
}

// Chunk splits text into at most MaxChunks windows of MaxTokens tokens,
// consecutive windows sharing Overlap tokens. Text that already fits is returned unmodified.
func (s *Scorer) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	tokens := s.tokenizer.Encode(text)
	if len(tokens) <= s.opts.MaxTokens {
		return []string{text}
	}

	step := s.opts.MaxTokens - s.opts.Overlap
	chunks := make([]string, 0, s.opts.MaxChunks)
	for i := 0; i < len(tokens); i += step {
		end := min(i+s.opts.MaxTokens, len(tokens))
		chunks = append(chunks, s.tokenizer.Decode(tokens[i:end]))
		if len(chunks) >= s.opts.MaxChunks {
			break
		}
	}
	return chunks
}

// ScoreText scores one article. Empty text and classifier failures yield NeutralScore.
func (s *Scorer) ScoreText(ctx context.Context, text string) (score Score) {
	chunks := s.Chunk(text)
	if len(chunks) == 0 {
		return NeutralScore()
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("classifier panicked", zap.Any("panic", r))
			score = NeutralScore()
		}
	}()

	preds, err := s.classifier.Classify(ctx, chunks)
	if err == nil && len(preds) != len(chunks) {
		err = fmt.Errorf("classifier returned %d predictions for %d chunks", len(preds), len(chunks))
	}
	if err != nil {
		s.log.Warn("scoring text failed", zap.Int("chunks", len(chunks)), zap.Error(err))
		return NeutralScore()
	}
	return Aggregate(preds)
}

// ScoreBatch scores each text independently.
func (s *Scorer) ScoreBatch(ctx context.Context, texts []string) []Score {
	out := make([]Score, len(texts))
	for i, text := range texts {
		out[i] = s.ScoreText(ctx, text)
	}
	return out
}

// Aggregate folds chunk predictions into Σ(signed·c)/Σc with a mean confidence.
func Aggregate(preds []Prediction) Score {
	if len(preds) == 0 {
		return NeutralScore()
	}

	var weighted, confSum float64
	for _, p := range preds {
		weighted += signedValue(p) * p.Confidence
		confSum += p.Confidence
	}

	final := 0.0
	if confSum > 0 {
		final = weighted / confSum
	}

	label := models.LabelNeutral
	switch {
	case final > positiveThreshold:
		label = models.LabelPositive
	case final < negativeThreshold:
		label = models.LabelNegative
	}

	return Score{
		Label:      label,
		Score:      utils.Round4(final),
		Confidence: utils.Round4(confSum / float64(len(preds))),
		ChunksUsed: len(preds),
	}
}
