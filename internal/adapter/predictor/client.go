// Package predictor wraps the external probabilistic disease predictor.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ConfidenceThreshold is the minimum probability a top prediction must exceed
// to be actionable without further questioning. Strictly greater-than.
const ConfidenceThreshold = 60.0

// Input is the full feature set the predictor requires.
type Input struct {
	Gender      string
	Age         int
	Region      string
	OnsetTime   string
	Symptoms    []string
	RiskFactors []string
	TopK        int
}

// Prediction is one ranked disease prediction.
type Prediction struct {
	Disease               string  `json:"disease"`
	ProbabilityPercentage float64 `json:"probability_percentage"`
}

func (p Prediction) String() string {
	return fmt.Sprintf("%s (%.2f%%)", p.Disease, p.ProbabilityPercentage)
}

// IsConfident reports whether at least one prediction exceeds the threshold.
func IsConfident(preds []Prediction) bool {
	for _, p := range preds {
		if p.ProbabilityPercentage > ConfidenceThreshold {
			return true
		}
	}
	return false
}

// Client is the disease predictor client. It performs no retries; transport
// failures are hard errors for the caller to handle.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type predictRequest struct {
	Gender      string   `json:"gioi_tinh"`
	Age         int      `json:"do_tuoi"`
	Region      string   `json:"dia_diem"`
	Time        string   `json:"thoi_gian"`
	Symptoms    []string `json:"trieu_chung"`
	RiskFactors []string `json:"yeu_to_nguy_co"`
	TopK        int      `json:"top_k"`
}

type predictResponse struct {
	TopPredictions []Prediction `json:"top_predictions"`
}

// Predict calls the model service and returns the ranked predictions.
func (c *Client) Predict(ctx context.Context, in Input) ([]Prediction, error) {
	riskFactors := in.RiskFactors
	if riskFactors == nil {
		riskFactors = []string{}
	}
	body, err := json.Marshal(predictRequest{
		Gender:      in.Gender,
		Age:         in.Age,
		Region:      in.Region,
		Time:        in.OnsetTime,
		Symptoms:    in.Symptoms,
		RiskFactors: riskFactors,
		TopK:        in.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read prediction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prediction service returned status %d: %s", resp.StatusCode, respBody)
	}

	var pr predictResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return nil, fmt.Errorf("failed to decode prediction response: %w", err)
	}
	return pr.TopPredictions, nil
}
