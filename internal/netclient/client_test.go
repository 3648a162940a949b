package netclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExchange(t *testing.T) {
	var gotField []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/voice" {
			http.NotFound(w, r)
			return
		}
		file, _, err := r.FormFile("voiceInput")
		if err != nil {
			http.Error(w, "No file uploaded.", http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotField, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("reply-audio"))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())

	reply, err := c.Exchange(context.Background(), []byte("utterance"))
	if err != nil {
		t.Fatalf("Exchange() failed: %v", err)
	}

	if !bytes.Equal(reply, []byte("reply-audio")) {
		t.Errorf("Expected reply audio, got %q", reply)
	}

	if !bytes.Equal(gotField, []byte("utterance")) {
		t.Errorf("Expected uploaded utterance under voiceInput, got %q", gotField)
	}
}

func TestExchange_EmptyBuffer(t *testing.T) {
	// An empty TurnBuffer is a valid upload, not a client-side error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("voiceInput")
		if err != nil {
			http.Error(w, "No file uploaded.", http.StatusBadRequest)
			return
		}
		file.Close()
		w.Write([]byte("reply"))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())

	if _, err := c.Exchange(context.Background(), nil); err != nil {
		t.Fatalf("Exchange() failed on empty buffer: %v", err)
	}
}

func TestExchange_ServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pipeline failed at generation: model unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())

	_, err := c.Exchange(context.Background(), []byte("utterance"))
	if err == nil {
		t.Fatal("Expected error on 502 response")
	}

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected *NetworkError, got %T", err)
	}

	if netErr.Status != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", netErr.Status)
	}

	if netErr.Cause != "pipeline failed at generation: model unavailable" {
		t.Errorf("Expected server error body as cause, got %q", netErr.Cause)
	}
}

func TestExchange_Unreachable(t *testing.T) {
	c := New("http://127.0.0.1:1", &http.Client{})

	_, err := c.Exchange(context.Background(), []byte("utterance"))
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected *NetworkError, got %T (%v)", err, err)
	}

	if netErr.Status != 0 {
		t.Errorf("Expected no HTTP status for transport failure, got %d", netErr.Status)
	}
}
