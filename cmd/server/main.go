package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxgem/voice-loop/internal/config"
	"github.com/voxgem/voice-loop/internal/observability"
	"github.com/voxgem/voice-loop/internal/pipeline"
	"github.com/voxgem/voice-loop/internal/server"
	"github.com/voxgem/voice-loop/internal/stage"
)

func main() {
	// Absent stage configuration is startup-fatal for the whole service.
	cfg, err := config.LoadServer()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice Loop Service starting")

	httpClient := stage.NewHTTPClient(cfg)
	transcription := stage.NewTranscriptionClient(cfg, httpClient)
	generation := stage.NewGenerationClient(cfg, httpClient)
	synthesis := stage.NewSynthesisClient(cfg, httpClient)

	orchestrator := pipeline.NewOrchestrator(transcription, generation, synthesis, logger)

	mux := http.NewServeMux()

	mux.Handle("/api/voice", server.NewVoiceHandler(orchestrator, logger, cfg.MaxUploadBytes))

	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness probes the three stage endpoints with a cheap HEAD request;
	// a stage that is unreachable makes the whole service not ready.
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"transcription": stageReachable(httpClient, cfg.TranscriptionURL),
		"generation":    stageReachable(httpClient, cfg.GenerationURL),
		"synthesis":     stageReachable(httpClient, cfg.SynthesisURL),
	}))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("http://localhost:%s/api/voice", cfg.Port)).
			Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}

// stageReachable reports whether a stage endpoint answers at all. Any HTTP
// response counts; readiness is about reachability, not credentials.
func stageReachable(client *http.Client, url string) observability.HealthCheckFunc {
	return func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return false, err
		}
		resp.Body.Close()
		return true, nil
	}
}
