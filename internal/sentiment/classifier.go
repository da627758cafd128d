package sentiment

import (
	"context"
	"strings"
	"sync"
)

// Prediction is a classifier's verdict for one chunk.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"score"`
}

// Classifier labels text chunks. Implementations return one prediction per chunk, in order.
type Classifier interface {
	Classify(ctx context.Context, chunks []string) ([]Prediction, error)
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(ctx context.Context, chunks []string) ([]Prediction, error)

func (f ClassifierFunc) Classify(ctx context.Context, chunks []string) ([]Prediction, error) {
	return f(ctx, chunks)
}

// signedValue maps a label to +confidence, -confidence or 0.
func signedValue(p Prediction) float64 {
	switch strings.ToUpper(p.Label) {
	case "POSITIVE":
		return p.Confidence
	case "NEGATIVE":
		return -p.Confidence
	default:
		return 0
	}
}

// LazyClassifier loads the underlying classifier on first use, once per process.
// A failed load is remembered and returned from every later call.
type LazyClassifier struct {
	load func() (Classifier, error)

	once sync.Once
	c    Classifier
	err  error
}

func NewLazyClassifier(load func() (Classifier, error)) *LazyClassifier {
	return &LazyClassifier{load: load}
}

func (l *LazyClassifier) get() (Classifier, error) {
	l.once.Do(func() {
		l.c, l.err = l.load()
	})
	return l.c, l.err
}

func (l *LazyClassifier) Classify(ctx context.Context, chunks []string) ([]Prediction, error) {
	c, err := l.get()
	if err != nil {
		return nil, err
	}
	return c.Classify(ctx, chunks)
}
