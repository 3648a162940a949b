package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/voxgem/voice-loop/internal/config"
)

// TranscriptionClient converts one audio buffer into text through the
// speech-to-text service.
type TranscriptionClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// transcriptionResponse is the wire shape of the transcription service reply
type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewTranscriptionClient creates a transcription stage client
func NewTranscriptionClient(cfg *config.Config, httpClient *http.Client) *TranscriptionClient {
	return &TranscriptionClient{
		apiURL:     cfg.TranscriptionURL,
		apiKey:     cfg.TranscriptionAPIKey,
		httpClient: httpClient,
	}
}

// Transcribe sends raw audio bytes and returns the recognized text. An empty
// transcript is a valid result, not an error.
func (c *TranscriptionClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Cause: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errorFromResponse(resp)
	}

	var body transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return body.Text, nil
}
