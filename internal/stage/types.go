package stage

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxgem/voice-loop/internal/config"
)

// TransportError carries the status and cause of a failed stage call. A stage
// failure is terminal for the pipeline run; no retries are attempted.
type TransportError struct {
	Status int
	Cause  string
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("status %d: %s", e.Status, e.Cause)
	}
	return e.Cause
}

// NewHTTPClient builds the outbound client all three stages share. Deadlines
// on stage calls are a transport concern; a zero configured timeout means a
// stuck stage can suspend its pipeline run indefinitely.
func NewHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{
		Timeout: time.Duration(cfg.StageTimeout) * time.Second,
	}
}

// errorFromResponse turns a non-2xx stage response into a TransportError,
// preferring the service's own error body over the generic status text.
func errorFromResponse(resp *http.Response) *TransportError {
	cause := ""
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 1024)); err == nil {
		cause = strings.TrimSpace(string(body))
	}
	if cause == "" {
		cause = strings.ToLower(http.StatusText(resp.StatusCode))
	}
	return &TransportError{Status: resp.StatusCode, Cause: cause}
}
