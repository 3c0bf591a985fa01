// ABOUTME: Bubbletea model for the conversation TUI
// ABOUTME: Defines application state, update logic and rendering
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/evelyn-voice/evelyn-go/internal/pipeline"
	"github.com/evelyn-voice/evelyn-go/internal/transcript"
)

// transcriptTail is how many history entries the view shows.
const transcriptTail = 5

// Model represents the TUI state
type Model struct {
	// Conversation
	state    pipeline.State
	status   string
	speaking bool
	level    float64

	// Selections
	voiceLabel       string
	personalityLabel string

	// Playback
	volume int

	// History
	entries []transcript.Entry

	// Dimensions
	width  int
	height int

	control *Control
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.state = msg.State
		m.status = msg.Status
	case SpeakingMsg:
		m.speaking = bool(msg)
	case LevelMsg:
		m.level = float64(msg)
	case TranscriptMsg:
		m.entries = append(m.entries, msg...)
		if len(m.entries) > transcriptTail {
			m.entries = m.entries[len(m.entries)-transcriptTail:]
		}
	case PrefsMsg:
		if msg.VoiceLabel != "" {
			m.voiceLabel = msg.VoiceLabel
		}
		if msg.PersonalityLabel != "" {
			m.personalityLabel = msg.PersonalityLabel
		}
		if msg.Volume >= 0 {
			m.volume = msg.Volume
		}
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderSelections()
	s += m.renderTranscript()
	s += m.renderHelp()

	return s
}

// renderHeader renders the status line, speaking indicator and mic level
func (m Model) renderHeader() string {
	icon := stateIcon(m.state, m.speaking)
	micBar := renderBar(int(m.level*100), 100, 10)
	return fmt.Sprintf(`┌─ Evelyn ─────────────────────────────────────────────┐
│ %s %-51s │
│ Mic:         [%s]%-27s │
├──────────────────────────────────────────────────────┤
`, icon, truncate(m.status, 51), micBar, "")
}

// renderSelections renders voice, personality and volume
func (m Model) renderSelections() string {
	volumeBar := renderBar(m.volume, 100, 10)
	note := ""
	if m.state == pipeline.StateConnecting || m.state == pipeline.StateConnected {
		note = " (next session)"
	}

	return fmt.Sprintf("│ Voice:       %-39s │\n"+
		"│ Personality: %-39s │\n"+
		"│ Volume:      [%s] %3d%%%-21s │\n",
		truncate(m.voiceLabel+note, 39),
		truncate(m.personalityLabel+note, 39),
		volumeBar, m.volume, "")
}

// renderTranscript renders the most recent conversation entries
func (m Model) renderTranscript() string {
	s := "├──────────────────────────────────────────────────────┤\n"
	if len(m.entries) == 0 {
		s += "│ No conversation yet                                  │\n"
		return s
	}

	for _, entry := range m.entries {
		name := "You"
		if entry.Speaker == transcript.SpeakerEvelyn {
			name = "Evelyn"
		}
		line := fmt.Sprintf("%s: %s", name, entry.Text)
		s += fmt.Sprintf("│ %-52s │\n", truncate(line, 52))
	}
	return s
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ space:Talk  ↑/↓:Volume  v:Voice  p:Personality       │
│ c:Clear history  e:Export transcript  q:Quit         │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.control.send(m.control.Quit)
		return m, tea.Quit
	case " ", "enter":
		m.control.send(m.control.Toggle)
	case "up":
		m.volume += 5
		if m.volume > 100 {
			m.volume = 100
		}
		m.control.sendVolume(float64(m.volume) / 100)
	case "down":
		m.volume -= 5
		if m.volume < 0 {
			m.volume = 0
		}
		m.control.sendVolume(float64(m.volume) / 100)
	case "v":
		m.control.send(m.control.CycleVoice)
	case "p":
		m.control.send(m.control.CyclePersonality)
	case "c":
		m.entries = nil
		m.control.send(m.control.ClearHistory)
	case "e":
		m.control.send(m.control.Export)
	}

	return m, nil
}

// StatusMsg updates the conversation state and status line
type StatusMsg struct {
	State  pipeline.State
	Status string
}

// SpeakingMsg updates the speaking indicator
type SpeakingMsg bool

// LevelMsg updates the microphone level bar, in [0, 1]
type LevelMsg float64

// TranscriptMsg appends completed turn entries
type TranscriptMsg []transcript.Entry

// PrefsMsg updates the displayed selections. Volume -1 means unchanged.
type PrefsMsg struct {
	VoiceLabel       string
	PersonalityLabel string
	Volume           int
}

func stateIcon(state pipeline.State, speaking bool) string {
	switch state {
	case pipeline.StateConnecting:
		return "…"
	case pipeline.StateConnected:
		if speaking {
			return "♪"
		}
		return "●"
	case pipeline.StateError:
		return "✗"
	default:
		return "○"
	}
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
