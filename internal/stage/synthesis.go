package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/voxgem/voice-loop/internal/config"
)

// SynthesisClient converts reply text into a synthesized-audio buffer through
// the text-to-speech service.
type SynthesisClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

type synthesisRequest struct {
	Text string `json:"text"`
}

// NewSynthesisClient creates a synthesis stage client
func NewSynthesisClient(cfg *config.Config, httpClient *http.Client) *SynthesisClient {
	return &SynthesisClient{
		apiURL:     cfg.SynthesisURL,
		apiKey:     cfg.SynthesisAPIKey,
		httpClient: httpClient,
	}
}

// Synthesize sends the text and returns raw audio bytes.
func (c *SynthesisClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(synthesisRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Cause: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesis response: %w", err)
	}

	return audio, nil
}
