package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/voxgem/voice-loop/internal/observability"
	"github.com/voxgem/voice-loop/internal/pipeline"
)

// voiceInputField is the attachment field name the client uploads under
const voiceInputField = "voiceInput"

// VoiceHandler accepts one utterance per request and responds with the
// synthesized reply. One request is one independent pipeline run.
type VoiceHandler struct {
	orchestrator   *pipeline.Orchestrator
	logger         zerolog.Logger
	maxUploadBytes int64
}

// NewVoiceHandler creates the upload/download handler for /api/voice
func NewVoiceHandler(orchestrator *pipeline.Orchestrator, logger zerolog.Logger, maxUploadBytes int64) *VoiceHandler {
	return &VoiceHandler{
		orchestrator:   orchestrator,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *VoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	turnID := observability.NewTurnID()
	logger := h.logger.With().Str("turn_id", turnID).Logger()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, _, err := r.FormFile(voiceInputField)
	if err != nil {
		logger.Error().Err(err).Msg("no file uploaded")
		http.Error(w, "No file uploaded.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	input, err := io.ReadAll(file)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read uploaded audio")
		http.Error(w, "Failed to read uploaded audio.", http.StatusBadRequest)
		return
	}

	output, err := h.orchestrator.Run(r.Context(), turnID, input)
	if err != nil {
		var pipeErr *pipeline.Error
		if errors.As(err, &pipeErr) {
			// Stage-tagged so the client can tell which service failed.
			http.Error(w, pipeErr.Error(), http.StatusBadGateway)
			return
		}
		logger.Error().Err(err).Msg("voice processing failed")
		http.Error(w, "Failed to process voice input.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(output); err != nil {
		logger.Warn().Err(err).Msg("failed to write reply audio")
	}
}
