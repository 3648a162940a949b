package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/voxgem/voice-loop/internal/turnloop"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	idleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	recordingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	speakingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// machineEventMsg wraps a turn machine transition for the update loop
type machineEventMsg turnloop.Event

// Model renders the turn machine's state and forwards gestures to it. All
// turn behavior lives in the machine; the model only draws and relays keys.
type Model struct {
	ctx     context.Context
	machine *turnloop.Machine
	spinner spinner.Model

	state turnloop.State
	mode  bool
	err   error
}

// New creates the conversation view over a turn machine.
func New(ctx context.Context, machine *turnloop.Machine) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

	return Model{
		ctx:     ctx,
		machine: machine,
		spinner: sp,
		state:   turnloop.StateIdle,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

// listen waits for the next machine transition
func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.machine.Events()
		if !ok {
			return nil
		}
		return machineEventMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			// The one gesture: start a session or end it.
			m.machine.Toggle(m.ctx)
			return m, nil
		case "enter":
			// Finish this turn but keep the conversation going.
			m.machine.EndTurn()
			return m, nil
		}

	case machineEventMsg:
		m.state = msg.State
		m.mode = msg.ConversationMode
		m.err = msg.Err
		return m, m.listen()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var status string
	switch m.state {
	case turnloop.StateIdle:
		status = idleStyle.Render("○ idle")
	case turnloop.StateArmed:
		status = fmt.Sprintf("%s requesting microphone...", m.spinner.View())
	case turnloop.StateRecording:
		status = recordingStyle.Render("● listening")
	case turnloop.StateProcessing:
		status = fmt.Sprintf("%s thinking...", m.spinner.View())
	case turnloop.StateSpeaking:
		status = speakingStyle.Render("▶ speaking")
	}

	view := titleStyle.Render("voice-loop") + "\n\n" + status + "\n"

	if m.err != nil {
		view += errorStyle.Render(fmt.Sprintf("error: %v", m.err)) + "\n"
	}

	view += "\n" + helpStyle.Render("space: start/end conversation · enter: finish turn · q: quit") + "\n"

	return view
}
