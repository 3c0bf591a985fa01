// ABOUTME: TUI initialization and control channels
// ABOUTME: Wraps the bubbletea program and carries user intents outward
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Control holds channels carrying user intents out of the TUI.
type Control struct {
	Toggle           chan struct{}
	Volume           chan float64
	CycleVoice       chan struct{}
	CyclePersonality chan struct{}
	ClearHistory     chan struct{}
	Export           chan struct{}
	Quit             chan struct{}
}

// NewControl creates the control channel set.
func NewControl() *Control {
	return &Control{
		Toggle:           make(chan struct{}, 4),
		Volume:           make(chan float64, 10),
		CycleVoice:       make(chan struct{}, 4),
		CyclePersonality: make(chan struct{}, 4),
		ClearHistory:     make(chan struct{}, 1),
		Export:           make(chan struct{}, 1),
		Quit:             make(chan struct{}, 1),
	}
}

// send delivers an intent without ever blocking the update loop.
func (c *Control) send(ch chan struct{}) {
	if c == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (c *Control) sendVolume(volume float64) {
	if c == nil {
		return
	}
	select {
	case c.Volume <- volume:
	default:
	}
}

// NewModel creates a new TUI model.
func NewModel(control *Control, voiceLabel, personalityLabel string, volume int) Model {
	return Model{
		control:          control,
		voiceLabel:       voiceLabel,
		personalityLabel: personalityLabel,
		volume:           volume,
		status:           "Tap to start conversation",
	}
}

// Run starts the TUI program.
func Run(model Model) *tea.Program {
	return tea.NewProgram(model, tea.WithAltScreen())
}
