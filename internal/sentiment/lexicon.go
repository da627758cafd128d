package sentiment

import (
	"context"
	"strings"
	"unicode"
)

var positiveWords = map[string]bool{
	"beat": true, "beats": true, "bullish": true, "gain": true, "gains": true, "growth": true,
	"higher": true, "jump": true, "jumps": true, "outperform": true, "profit": true, "profits": true,
	"rally": true, "rallies": true, "record": true, "rise": true, "rises": true, "soar": true,
	"soars": true, "strong": true, "surge": true, "surges": true, "upgrade": true, "upgraded": true,
	"optimism": true, "optimistic": true, "expands": true, "expansion": true, "boost": true,
	"momentum": true, "exceeds": true, "exceeded": true, "raises": true, "positive": true,
	"breakthrough": true, "innovation": true, "partnership": true, "recovery": true,
}

var negativeWords = map[string]bool{
	"bearish": true, "challenges": true, "cut": true, "cuts": true, "decline": true, "declines": true,
	"downgrade": true, "downgraded": true, "drop": true, "drops": true, "fall": true, "falls": true,
	"fears": true, "lawsuit": true, "loss": true, "losses": true, "lower": true, "miss": true,
	"misses": true, "plunge": true, "plunges": true, "recall": true, "risk": true, "risks": true,
	"slump": true, "weak": true, "weakness": true, "concerns": true, "scrutiny": true,
	"investigation": true, "layoffs": true, "headwinds": true, "negative": true, "volatility": true,
	"competition": true, "uncertainty": true, "warning": true, "selloff": true,
}

// LexiconClassifier is an offline, deterministic classifier that counts
// polar financial terms. It needs no model download or network access.
type LexiconClassifier struct{}

func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{}
}

func (c *LexiconClassifier) Classify(ctx context.Context, chunks []string) ([]Prediction, error) {
	preds := make([]Prediction, 0, len(chunks))
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		preds = append(preds, classifyLexicon(chunk))
	}
	return preds, nil
}

func classifyLexicon(text string) Prediction {
	var pos, neg int
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	}) {
		switch {
		case positiveWords[word]:
			pos++
		case negativeWords[word]:
			neg++
		}
	}

	total := pos + neg
	if total == 0 || pos == neg {
		return Prediction{Label: "NEUTRAL", Confidence: 0.5}
	}
	// Confidence grows with how one-sided the text is: 0.5 (balanced) to 1.0 (unanimous).
	diff := pos - neg
	if diff < 0 {
		diff = -diff
	}
	conf := 0.5 + 0.5*float64(diff)/float64(total)
	if pos > neg {
		return Prediction{Label: "POSITIVE", Confidence: conf}
	}
	return Prediction{Label: "NEGATIVE", Confidence: conf}
}
