package audio

import "fmt"

// DeviceError indicates the microphone device could not be opened or accessed.
type DeviceError struct {
	Cause error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device unavailable: %v", e.Cause)
}

func (e *DeviceError) Unwrap() error { return e.Cause }

// DecodeError indicates a synthesized-audio buffer could not be decoded. The
// turn loop treats it the same as a network failure.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode audio: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }
