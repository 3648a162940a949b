package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/voxgem/voice-loop/internal/observability"
)

// Stage identifies which of the three sequential services a failure came from,
// so an operator can tell "the model didn't answer" from "speech-to-text
// failed" from "voice synthesis failed".
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageGeneration    Stage = "generation"
	StageSynthesis     Stage = "synthesis"
)

// Error is a stage-tagged pipeline failure. It is the only failure shape the
// orchestrator returns; partial successes do not exist.
type Error struct {
	Stage Stage
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Transcriber converts one audio buffer into text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Generator turns a transcript into reply text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer converts reply text into an audio buffer
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Orchestrator runs one uploaded audio buffer through the three stage
// services in sequence. It holds no per-run state, so concurrent runs from
// different turns proceed independently.
type Orchestrator struct {
	transcriber Transcriber
	generator   Generator
	synthesizer Synthesizer
	logger      zerolog.Logger
}

// NewOrchestrator wires the three stage clients together. The logger is the
// injected event sink; the orchestrator never touches a process-wide one.
func NewOrchestrator(t Transcriber, g Generator, s Synthesizer, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		transcriber: t,
		generator:   g,
		synthesizer: s,
		logger:      logger,
	}
}

// Run executes transcription, generation, and synthesis strictly in order,
// failing fast on the first stage error. Stage n+1 only begins after stage n
// succeeds; a failed run never yields a partial payload.
//
// An empty or whitespace-only transcript is forwarded as-is; how to respond
// to silence is the generation stage's decision.
func (o *Orchestrator) Run(ctx context.Context, turnID string, input []byte) ([]byte, error) {
	logger := o.logger.With().Str("turn_id", turnID).Logger()
	metrics := observability.NewTurnMetrics(turnID)

	metrics.RecordTurnStart()
	defer metrics.RecordTurnEnd()

	logger.Info().Int("input_bytes", len(input)).Msg("turn started")
	metrics.RecordAudioBytes("in", int64(len(input)))

	metrics.RecordStageStart()
	transcript, err := o.transcriber.Transcribe(ctx, input)
	if err != nil {
		metrics.RecordStageEnd(string(StageTranscription), false)
		return nil, o.fail(logger, metrics, StageTranscription, err)
	}
	metrics.RecordStageEnd(string(StageTranscription), true)
	logger.Debug().Int("transcript_chars", len(transcript)).Msg("transcription complete")

	metrics.RecordStageStart()
	reply, err := o.generator.Generate(ctx, transcript)
	if err != nil {
		metrics.RecordStageEnd(string(StageGeneration), false)
		return nil, o.fail(logger, metrics, StageGeneration, err)
	}
	metrics.RecordStageEnd(string(StageGeneration), true)
	logger.Debug().Int("reply_chars", len(reply)).Msg("generation complete")

	metrics.RecordStageStart()
	output, err := o.synthesizer.Synthesize(ctx, reply)
	if err != nil {
		metrics.RecordStageEnd(string(StageSynthesis), false)
		return nil, o.fail(logger, metrics, StageSynthesis, err)
	}
	metrics.RecordStageEnd(string(StageSynthesis), true)

	metrics.RecordAudioBytes("out", int64(len(output)))
	logger.Info().Int("output_bytes", len(output)).Msg("turn completed")

	return output, nil
}

func (o *Orchestrator) fail(logger zerolog.Logger, metrics *observability.TurnMetrics, stage Stage, cause error) error {
	metrics.RecordError("stage_failure", string(stage))
	logger.Error().Err(cause).Str("stage", string(stage)).Msg("stage failed")
	return &Error{Stage: stage, Cause: cause}
}
