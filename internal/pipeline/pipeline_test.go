package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeTranscriber struct {
	calls int
	text  string
	err   error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeGenerator struct {
	calls  int
	prompt string
	text   string
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.text, f.err
}

type fakeSynthesizer struct {
	calls int
	text  string
	audio []byte
	err   error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.calls++
	f.text = text
	return f.audio, f.err
}

func TestRun_Success(t *testing.T) {
	transcriber := &fakeTranscriber{text: "what's the weather"}
	generator := &fakeGenerator{text: "it's sunny"}
	synthesizer := &fakeSynthesizer{audio: []byte("reply-audio")}

	o := NewOrchestrator(transcriber, generator, synthesizer, zerolog.Nop())

	out, err := o.Run(context.Background(), "turn-1", []byte("utterance"))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if !bytes.Equal(out, []byte("reply-audio")) {
		t.Errorf("Expected reply audio, got %q", out)
	}

	if generator.prompt != "what's the weather" {
		t.Errorf("Expected generator to receive transcript, got %q", generator.prompt)
	}

	if synthesizer.text != "it's sunny" {
		t.Errorf("Expected synthesizer to receive reply text, got %q", synthesizer.text)
	}
}

func TestRun_EmptyTranscriptIsForwarded(t *testing.T) {
	// Two seconds of silence transcribe to nothing; the generation stage
	// decides how to answer an empty prompt.
	transcriber := &fakeTranscriber{text: ""}
	generator := &fakeGenerator{text: "I didn't catch that, could you repeat?"}
	synthesizer := &fakeSynthesizer{audio: []byte("audio-bytes")}

	o := NewOrchestrator(transcriber, generator, synthesizer, zerolog.Nop())

	out, err := o.Run(context.Background(), "turn-2", make([]byte, 64000))
	if err != nil {
		t.Fatalf("Run() failed on empty transcript: %v", err)
	}

	if generator.calls != 1 {
		t.Errorf("Expected generation to run on empty transcript, got %d calls", generator.calls)
	}

	if generator.prompt != "" {
		t.Errorf("Expected empty prompt to be forwarded as-is, got %q", generator.prompt)
	}

	if len(out) == 0 {
		t.Error("Expected non-empty reply audio")
	}
}

func TestRun_FailFast(t *testing.T) {
	tests := []struct {
		name        string
		transcriber *fakeTranscriber
		generator   *fakeGenerator
		synthesizer *fakeSynthesizer
		wantStage   Stage
		wantGenCall int
		wantSynCall int
	}{
		{
			name:        "transcription failure skips generation and synthesis",
			transcriber: &fakeTranscriber{err: errors.New("unauthorized")},
			generator:   &fakeGenerator{},
			synthesizer: &fakeSynthesizer{},
			wantStage:   StageTranscription,
			wantGenCall: 0,
			wantSynCall: 0,
		},
		{
			name:        "generation failure skips synthesis",
			transcriber: &fakeTranscriber{text: "hello"},
			generator:   &fakeGenerator{err: errors.New("model unavailable")},
			synthesizer: &fakeSynthesizer{},
			wantStage:   StageGeneration,
			wantGenCall: 1,
			wantSynCall: 0,
		},
		{
			name:        "synthesis failure tagged as synthesis",
			transcriber: &fakeTranscriber{text: "hello"},
			generator:   &fakeGenerator{text: "hi"},
			synthesizer: &fakeSynthesizer{err: errors.New("voice not found")},
			wantStage:   StageSynthesis,
			wantGenCall: 1,
			wantSynCall: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(tt.transcriber, tt.generator, tt.synthesizer, zerolog.Nop())

			out, err := o.Run(context.Background(), "turn-3", []byte("utterance"))
			if err == nil {
				t.Fatal("Expected pipeline error, got nil")
			}

			if out != nil {
				t.Errorf("Expected no partial output, got %d bytes", len(out))
			}

			var pipeErr *Error
			if !errors.As(err, &pipeErr) {
				t.Fatalf("Expected *pipeline.Error, got %T", err)
			}

			if pipeErr.Stage != tt.wantStage {
				t.Errorf("Expected stage %q, got %q", tt.wantStage, pipeErr.Stage)
			}

			if tt.generator.calls != tt.wantGenCall {
				t.Errorf("Expected %d generation calls, got %d", tt.wantGenCall, tt.generator.calls)
			}

			if tt.synthesizer.calls != tt.wantSynCall {
				t.Errorf("Expected %d synthesis calls, got %d", tt.wantSynCall, tt.synthesizer.calls)
			}
		})
	}
}

func TestRun_ErrorCarriesCause(t *testing.T) {
	cause := errors.New("unauthorized")
	o := NewOrchestrator(&fakeTranscriber{err: cause}, &fakeGenerator{}, &fakeSynthesizer{}, zerolog.Nop())

	_, err := o.Run(context.Background(), "turn-4", []byte("utterance"))
	if !errors.Is(err, cause) {
		t.Errorf("Expected error chain to include cause, got %v", err)
	}
}
