// HuggingFace inference client for remote emotion classification.
//
// The inference API returns a nested ranked list per input:
// [[{"label":"joy","score":0.93}, ...]]. Anything else (non-2xx status,
// malformed payload, empty ranking) is reported as an error so the
// emotion service can fall back to keyword scoring.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mindloom/support-backend/internal/services"
)

// HuggingFaceClassifier calls a HuggingFace text-classification model
// endpoint. It implements services.RemoteClassifier.
type HuggingFaceClassifier struct {
	apiKey   string
	modelURL string
	http     *http.Client
}

// NewHuggingFaceClassifier builds a classifier for the given model URL.
func NewHuggingFaceClassifier(apiKey, modelURL string, timeout time.Duration) *HuggingFaceClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HuggingFaceClassifier{
		apiKey:   apiKey,
		modelURL: modelURL,
		http:     &http.Client{Timeout: timeout},
	}
}

// Classify submits text and returns the ranked (label, score) pairs.
func (c *HuggingFaceClassifier) Classify(ctx context.Context, text string) ([]services.LabelScore, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the error message, then discard.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("huggingface inference: status %d: %s", resp.StatusCode, snippet)
	}

	var ranked [][]struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ranked); err != nil {
		return nil, fmt.Errorf("huggingface inference: decode: %w", err)
	}
	if len(ranked) == 0 || len(ranked[0]) == 0 {
		return nil, fmt.Errorf("huggingface inference: empty ranking")
	}

	out := make([]services.LabelScore, 0, len(ranked[0]))
	for _, ls := range ranked[0] {
		out = append(out, services.LabelScore{Label: ls.Label, Score: ls.Score})
	}
	return out, nil
}
