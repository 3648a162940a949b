package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxgem/voice-loop/internal/config"
)

func testConfig(transcriptionURL, generationURL, synthesisURL string) *config.Config {
	return &config.Config{
		TranscriptionURL:    transcriptionURL,
		TranscriptionAPIKey: "stt-key",
		GenerationURL:       generationURL,
		GenerationAPIKey:    "llm-key",
		SynthesisURL:        synthesisURL,
		SynthesisAPIKey:     "tts-key",
	}
}

func TestTranscribe(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]string{"text": "hello there"})
	}))
	defer srv.Close()

	c := NewTranscriptionClient(testConfig(srv.URL, "", ""), srv.Client())

	text, err := c.Transcribe(context.Background(), []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}

	if text != "hello there" {
		t.Errorf("Expected transcript 'hello there', got %q", text)
	}

	if gotAuth != "Bearer stt-key" {
		t.Errorf("Expected bearer credential, got %q", gotAuth)
	}

	if !bytes.Equal(gotBody, []byte("audio-bytes")) {
		t.Errorf("Expected raw audio bytes in request body, got %q", gotBody)
	}
}

func TestTranscribe_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewTranscriptionClient(testConfig(srv.URL, "", ""), srv.Client())

	_, err := c.Transcribe(context.Background(), []byte("audio"))
	if err == nil {
		t.Fatal("Expected error on 401 response")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %T", err)
	}

	if transportErr.Status != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", transportErr.Status)
	}

	if transportErr.Cause != "unauthorized" {
		t.Errorf("Expected cause 'unauthorized', got %q", transportErr.Cause)
	}
}

func TestGenerate(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req["prompt"]
		json.NewEncoder(w).Encode(map[string]string{"text": "the reply"})
	}))
	defer srv.Close()

	c := NewGenerationClient(testConfig("", srv.URL, ""), srv.Client())

	text, err := c.Generate(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	if text != "the reply" {
		t.Errorf("Expected 'the reply', got %q", text)
	}

	if gotPrompt != "the prompt" {
		t.Errorf("Expected prompt 'the prompt', got %q", gotPrompt)
	}
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	var gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotRaw = string(body)
		json.NewEncoder(w).Encode(map[string]string{"text": "I didn't catch that, could you repeat?"})
	}))
	defer srv.Close()

	c := NewGenerationClient(testConfig("", srv.URL, ""), srv.Client())

	text, err := c.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("Generate() failed on empty prompt: %v", err)
	}

	if gotRaw != "{\"prompt\":\"\"}" {
		t.Errorf("Expected empty prompt on the wire, got %q", gotRaw)
	}

	if text == "" {
		t.Error("Expected non-empty reply")
	}
}

func TestSynthesize(t *testing.T) {
	var gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		gotText = req["text"]
		w.Write([]byte("synthesized-audio"))
	}))
	defer srv.Close()

	c := NewSynthesisClient(testConfig("", "", srv.URL), srv.Client())

	audio, err := c.Synthesize(context.Background(), "say this")
	if err != nil {
		t.Fatalf("Synthesize() failed: %v", err)
	}

	if !bytes.Equal(audio, []byte("synthesized-audio")) {
		t.Errorf("Expected raw audio bytes, got %q", audio)
	}

	if gotText != "say this" {
		t.Errorf("Expected text 'say this', got %q", gotText)
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice not found", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewSynthesisClient(testConfig("", "", srv.URL), srv.Client())

	_, err := c.Synthesize(context.Background(), "say this")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %T (%v)", err, err)
	}

	if transportErr.Status != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", transportErr.Status)
	}

	if transportErr.Cause != "voice not found" {
		t.Errorf("Expected cause 'voice not found', got %q", transportErr.Cause)
	}
}

func TestTransportError_Unreachable(t *testing.T) {
	c := NewTranscriptionClient(testConfig("http://127.0.0.1:1/convert", "", ""), &http.Client{})

	_, err := c.Transcribe(context.Background(), []byte("audio"))
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %T (%v)", err, err)
	}

	if transportErr.Status != 0 {
		t.Errorf("Expected no HTTP status for transport failure, got %d", transportErr.Status)
	}
}
