package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/malgo"

	"github.com/voxgem/voice-loop/internal/audio"
	"github.com/voxgem/voice-loop/internal/config"
	"github.com/voxgem/voice-loop/internal/netclient"
	"github.com/voxgem/voice-loop/internal/observability"
	"github.com/voxgem/voice-loop/internal/tui"
	"github.com/voxgem/voice-loop/internal/turnloop"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns stdout; keep structured logs on stderr only when asked.
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize audio backend: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}()

	capture := audio.NewCapture(malgoCtx, cfg.SampleRate, logger)
	playback := audio.NewPlayback(malgoCtx, logger)
	client := netclient.New(cfg.ServerURL, http.DefaultClient)

	machine := turnloop.New(capture, playback, client, turnloop.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program := tea.NewProgram(tui.New(ctx, machine))
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
		os.Exit(1)
	}
}
