package audio

import (
	"bytes"
	"context"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// Capture owns the microphone device handle for the duration of one turn.
// Open acquires the device and starts accumulating chunks; Finalize releases
// it and returns the whole utterance as a single WAV buffer. The chunk
// sequence is never visible outside the adapter.
type Capture struct {
	malgoCtx   *malgo.AllocatedContext
	sampleRate int
	logger     zerolog.Logger

	mu     sync.Mutex
	device *malgo.Device
	chunks [][]byte
}

// NewCapture creates a capture adapter backed by a miniaudio context.
func NewCapture(malgoCtx *malgo.AllocatedContext, sampleRate int, logger zerolog.Logger) *Capture {
	return &Capture{
		malgoCtx:   malgoCtx,
		sampleRate: sampleRate,
		logger:     logger,
	}
}

// Open acquires the microphone and starts recording. Failure to acquire the
// device is reported as a DeviceError.
func (c *Capture) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &DeviceError{Cause: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		return nil
	}

	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format)

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.SampleRate = uint32(c.sampleRate)
	cfg.Capture.Format = format
	cfg.Capture.Channels = 1
	cfg.Alsa.NoMMap = 1
	cfg.PerformanceProfile = malgo.LowLatency
	cfg.PeriodSizeInFrames = 480
	cfg.Periods = 3

	device, err := malgo.InitDevice(c.malgoCtx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			c.appendChunk(pInput[:n])
		},
	})
	if err != nil {
		return &DeviceError{Cause: err}
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return &DeviceError{Cause: err}
	}

	c.device = device
	c.logger.Debug().Int("sample_rate", c.sampleRate).Msg("microphone opened")
	return nil
}

// appendChunk copies one device callback worth of samples into the in-progress
// sequence. The device reuses the input buffer between callbacks.
func (c *Capture) appendChunk(chunk []byte) {
	buf := make([]byte, len(chunk))
	copy(buf, chunk)

	c.mu.Lock()
	if c.device != nil {
		c.chunks = append(c.chunks, buf)
	}
	c.mu.Unlock()
}

// Finalize stops recording, releases the device, and concatenates all
// accumulated chunks into one TurnBuffer. Zero accumulated chunks produce an
// empty buffer, not an error.
func (c *Capture) Finalize() []byte {
	c.mu.Lock()
	device := c.device
	chunks := c.chunks
	c.device = nil
	c.chunks = nil
	c.mu.Unlock()

	if device != nil {
		if err := device.Stop(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to stop capture device")
		}
		device.Uninit()
	}

	if len(chunks) == 0 {
		return nil
	}

	pcm := bytes.Join(chunks, nil)
	buf, err := EncodeWAV(pcm, c.sampleRate)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode captured audio")
		return nil
	}

	c.logger.Debug().Int("bytes", len(buf)).Msg("utterance finalized")
	return buf
}
