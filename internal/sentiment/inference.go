package sentiment

import (
	"context"
	"encoding/json"
	"fmt"

	"sentimentreality/internal/pkg/httpclient"
)

// InferenceClassifier calls a hosted text-classification endpoint speaking the
// Hugging Face inference wire format.
type InferenceClassifier struct {
	client    *httpclient.Client
	url       string
	maxTokens int
}

func NewInferenceClassifier(client *httpclient.Client, url string, maxTokens int) *InferenceClassifier {
	return &InferenceClassifier{client: client, url: url, maxTokens: maxTokens}
}

type inferenceRequest struct {
	Inputs     []string            `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
	Options    inferenceOptions    `json:"options"`
}

type inferenceParameters struct {
	Truncation bool `json:"truncation"`
	MaxLength  int  `json:"max_length"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

func (c *InferenceClassifier) Classify(ctx context.Context, chunks []string) ([]Prediction, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	req := inferenceRequest{
		Inputs:     chunks,
		Parameters: inferenceParameters{Truncation: true, MaxLength: c.maxTokens},
		Options:    inferenceOptions{WaitForModel: true},
	}

	var raw json.RawMessage
	if err := c.client.PostJSON(ctx, c.url, req, &raw); err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}

	preds, err := decodePredictions(raw)
	if err != nil {
		return nil, err
	}
	if len(preds) != len(chunks) {
		return nil, fmt.Errorf("inference returned %d predictions for %d chunks", len(preds), len(chunks))
	}
	return preds, nil
}

// decodePredictions accepts either one label per input or a ranked label list per input.
func decodePredictions(raw json.RawMessage) ([]Prediction, error) {
	var ranked [][]Prediction
	if err := json.Unmarshal(raw, &ranked); err == nil {
		preds := make([]Prediction, 0, len(ranked))
		for _, labels := range ranked {
			if len(labels) == 0 {
				return nil, fmt.Errorf("inference returned an empty label list")
			}
			best := labels[0]
			for _, p := range labels[1:] {
				if p.Confidence > best.Confidence {
					best = p
				}
			}
			preds = append(preds, best)
		}
		return preds, nil
	}

	var flat []Prediction
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	return flat, nil
}
