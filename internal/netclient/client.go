package netclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// NetworkError carries the status and cause of a failed voice exchange.
type NetworkError struct {
	Status int
	Cause  string
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("voice exchange failed with status %d: %s", e.Status, e.Cause)
	}
	return fmt.Sprintf("voice exchange failed: %s", e.Cause)
}

// Client uploads a finalized utterance and returns the synthesized reply.
// Purely request/response; it keeps no state between turns.
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// New creates a network client for the voice service at serverURL.
func New(serverURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: httpClient,
	}
}

// Exchange sends one TurnBuffer as a single multipart upload and returns the
// reply audio bytes. No retries; a failed exchange is terminal for the turn.
func (c *Client) Exchange(ctx context.Context, buffer []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("voiceInput", "utterance.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(buffer); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/voice", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Cause: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		cause := ""
		if msg, err := io.ReadAll(io.LimitReader(resp.Body, 1024)); err == nil {
			cause = strings.TrimSpace(string(msg))
		}
		if cause == "" {
			cause = strings.ToLower(http.StatusText(resp.StatusCode))
		}
		return nil, &NetworkError{Status: resp.StatusCode, Cause: cause}
	}

	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Cause: err.Error()}
	}

	return reply, nil
}
