package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/voxgem/voice-loop/internal/config"
)

// GenerationClient turns a transcript into a reply through the reasoning
// service. It is handed whatever the transcription stage produced, including
// an empty prompt; deciding how to answer silence is the model's job.
type GenerationClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

type generationRequest struct {
	Prompt string `json:"prompt"`
}

type generationResponse struct {
	Text string `json:"text"`
}

// NewGenerationClient creates a generation stage client
func NewGenerationClient(cfg *config.Config, httpClient *http.Client) *GenerationClient {
	return &GenerationClient{
		apiURL:     cfg.GenerationURL,
		apiKey:     cfg.GenerationAPIKey,
		httpClient: httpClient,
	}
}

// Generate sends the prompt and returns the reply text.
func (c *GenerationClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generationRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Cause: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errorFromResponse(resp)
	}

	var body generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}

	return body.Text, nil
}
