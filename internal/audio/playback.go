package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// Playback decodes a synthesized reply and drives the speaker. Play returns
// exactly once per call, after the buffer has been played out or on failure,
// so the caller never stalls waiting for a completion that already happened.
type Playback struct {
	malgoCtx *malgo.AllocatedContext
	logger   zerolog.Logger
}

// NewPlayback creates a playback adapter backed by a miniaudio context.
func NewPlayback(malgoCtx *malgo.AllocatedContext, logger zerolog.Logger) *Playback {
	return &Playback{malgoCtx: malgoCtx, logger: logger}
}

// Play decodes buffer as WAV and plays it to completion. A malformed buffer
// is reported as a DecodeError; no partial playback is attempted.
func (p *Playback) Play(ctx context.Context, buffer []byte) error {
	pcm, sampleRate, err := DecodeWAV(buffer)
	if err != nil {
		return &DecodeError{Cause: err}
	}

	if len(pcm) == 0 {
		return nil
	}

	ring := NewRingBuffer(len(pcm) + 1)
	ring.Write(pcm)

	drained := make(chan struct{})
	var once sync.Once

	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format)

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.SampleRate = uint32(sampleRate)
	cfg.Playback.Format = format
	cfg.Playback.Channels = 1
	cfg.Alsa.NoMMap = 1
	cfg.PeriodSizeInFrames = uint32(sampleRate / 10) // ~100ms of audio
	cfg.Periods = 4

	device, err := malgo.InitDevice(p.malgoCtx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			need := int(frameCount) * bytesPerFrame
			if ring.Read(pOutput[:need]) == 0 {
				once.Do(func() { close(drained) })
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	p.logger.Debug().Int("bytes", len(pcm)).Int("sample_rate", sampleRate).Msg("playback started")

	select {
	case <-drained:
		// The device still holds up to Periods worth of queued audio.
		time.Sleep(400 * time.Millisecond)
	case <-ctx.Done():
	}

	if err := device.Stop(); err != nil {
		p.logger.Warn().Err(err).Msg("failed to stop playback device")
	}

	return ctx.Err()
}
