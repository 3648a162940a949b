package turnloop

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// State is what the client is doing right now. Exactly one instance exists
// per machine and only the machine mutates it; at most one of Recording,
// Processing, and Speaking is ever active.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRecording
	StateProcessing
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	}
	return "unknown"
}

// Recorder owns the microphone between Open and Finalize. Finalize returns
// the accumulated utterance as one buffer; zero accumulated audio yields an
// empty buffer, which is a valid turn input.
type Recorder interface {
	Open(ctx context.Context) error
	Finalize() []byte
}

// Player plays one synthesized reply. Play returns exactly once per call,
// whether playback succeeded or decoding failed.
type Player interface {
	Play(ctx context.Context, buffer []byte) error
}

// Exchanger uploads one utterance and returns the synthesized reply.
type Exchanger interface {
	Exchange(ctx context.Context, buffer []byte) ([]byte, error)
}

// Event is published on every state transition so the UI can render the
// recording indicator and surface errors without owning any turn logic.
type Event struct {
	State            State
	ConversationMode bool
	Err              error
}

// Machine is the single source of truth for the voice turn loop. It drives
// the capture and playback adapters and the network client in response to
// user gestures; nothing else may re-arm the microphone.
type Machine struct {
	recorder  Recorder
	player    Player
	exchanger Exchanger
	logger    zerolog.Logger

	mu      sync.Mutex
	state   State
	mode    bool // conversation mode: the user's standing intent to keep taking turns
	stopRec chan struct{}

	events chan Event
}

// Option configures a Machine
type Option func(*Machine)

// WithLogger injects the structured event sink the machine logs through
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// New creates a turn machine in the Idle state.
func New(recorder Recorder, player Player, exchanger Exchanger, opts ...Option) *Machine {
	m := &Machine{
		recorder:  recorder,
		player:    player,
		exchanger: exchanger,
		logger:    zerolog.Nop(),
		state:     StateIdle,
		events:    make(chan Event, 32),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the transition feed. Slow consumers lose events rather than
// blocking the loop.
func (m *Machine) Events() <-chan Event { return m.events }

// State returns the current turn state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ConversationMode reports whether the user still wants continuous turns.
func (m *Machine) ConversationMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Toggle is the single user gesture. From Idle it starts a session; from any
// other state it deactivates. Deactivation is cooperative: an in-flight
// recording is finalized and processed, an in-flight exchange or playback
// runs to its natural boundary before the machine settles in Idle.
func (m *Machine) Toggle(ctx context.Context) {
	m.mu.Lock()
	switch m.state {
	case StateIdle:
		if m.mode {
			// A session is already starting up; a second gesture this early
			// is a deactivation, not a second session.
			m.mode = false
			m.mu.Unlock()
			return
		}
		m.mode = true
		m.mu.Unlock()
		m.logger.Info().Msg("conversation activated")
		go m.session(ctx)
	case StateRecording:
		m.mode = false
		stop := m.stopRec
		m.mu.Unlock()
		m.logger.Info().Msg("conversation deactivated, finalizing turn")
		signalStop(stop)
	default:
		m.mode = false
		m.mu.Unlock()
		m.logger.Info().Str("state", m.State().String()).Msg("conversation deactivated, waiting for turn boundary")
	}
}

// EndTurn finalizes the current recording without ending the conversation.
// This is the programmatic stop path; ConversationMode stays true, so the
// machine re-arms after the reply plays. No-op outside Recording.
func (m *Machine) EndTurn() {
	m.mu.Lock()
	if m.state != StateRecording {
		m.mu.Unlock()
		return
	}
	stop := m.stopRec
	m.mu.Unlock()
	signalStop(stop)
}

func signalStop(stop chan struct{}) {
	select {
	case stop <- struct{}{}:
	default:
	}
}

// session runs turns until the conversation ends or a turn fails. The top of
// the loop is the only arming path: the post-playback re-arm reenters it
// directly instead of simulating a user gesture.
func (m *Machine) session(ctx context.Context) {
	for {
		m.transition(StateArmed)

		if err := m.recorder.Open(ctx); err != nil {
			m.failTurn(err)
			return
		}

		if !m.ConversationMode() {
			// Deactivated while waiting for device access: nothing was
			// recorded, release the device and settle.
			m.recorder.Finalize()
			m.settleIdle()
			return
		}

		m.mu.Lock()
		m.stopRec = make(chan struct{}, 1)
		stop := m.stopRec
		m.state = StateRecording
		m.mu.Unlock()
		m.emit(nil)

		select {
		case <-stop:
		case <-ctx.Done():
			m.recorder.Finalize()
			m.failTurn(ctx.Err())
			return
		}

		buffer := m.recorder.Finalize()
		m.transition(StateProcessing)

		reply, err := m.exchanger.Exchange(ctx, buffer)
		if err != nil {
			// No playback is attempted on a failed exchange.
			m.failTurn(err)
			return
		}

		m.transition(StateSpeaking)

		if err := m.player.Play(ctx, reply); err != nil {
			// Decode failure resolves the same way a network failure does.
			m.failTurn(err)
			return
		}

		if !m.ConversationMode() {
			m.settleIdle()
			return
		}
		// Conversation mode still active: re-arm without a fresh gesture.
	}
}

func (m *Machine) transition(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.emit(nil)
}

// settleIdle ends the session cleanly after an explicit deactivation.
func (m *Machine) settleIdle() {
	m.mu.Lock()
	m.state = StateIdle
	m.mode = false
	m.mu.Unlock()
	m.emit(nil)
	m.logger.Info().Msg("conversation ended")
}

// failTurn resolves any error to the visible terminal state. Conversation
// mode is cleared so the machine does not keep listening after a failure the
// user has not acknowledged.
func (m *Machine) failTurn(err error) {
	m.mu.Lock()
	m.state = StateIdle
	m.mode = false
	m.mu.Unlock()
	m.emit(err)
	m.logger.Error().Err(err).Msg("turn failed")
}

func (m *Machine) emit(err error) {
	m.mu.Lock()
	ev := Event{State: m.state, ConversationMode: m.mode, Err: err}
	m.mu.Unlock()

	select {
	case m.events <- ev:
	default:
	}
}
