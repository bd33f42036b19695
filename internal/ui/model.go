// ABOUTME: Bubbletea model for the call monitor
// ABOUTME: Call status, traffic counters and keyboard controls
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	// Call
	connected    bool
	transport    string
	endpoint     string
	conversation string
	state        string
	startedAt    time.Time

	// Audio
	encoding string
	volume   int
	muted    bool
	playing  bool

	// Stats
	framesCaptured uint64
	bytesSent      uint64
	chunksReceived uint64
	played         uint64
	failed         uint64
	cancelled      uint64
	pending        int

	lastError string

	// Debug
	showDebug bool

	controls *Controls
	quitting bool

	// Dimensions
	width  int
	height int
}

// StatusMsg updates TUI state; zero fields leave the model unchanged
type StatusMsg struct {
	Connected    *bool
	Transport    string
	Endpoint     string
	Conversation string
	State        string
	Encoding     string
	Playing      *bool
	Stats        *Stats
	Error        string
}

// Stats are the call counters shown in the monitor
type Stats struct {
	FramesCaptured uint64
	BytesSent      uint64
	ChunksReceived uint64
	Played         uint64
	Failed         uint64
	Cancelled      uint64
	Pending        int
}

type tickMsg time.Time

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tickEvery()
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Ending call...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("SpeechBridge Call"))
	b.WriteString("\n\n")
	b.WriteString(m.renderCall())
	b.WriteString(m.renderAudio())
	b.WriteString(m.renderStats())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	if m.lastError != "" {
		b.WriteString(errorStyle.Render("Error: " + truncate(m.lastError, 60)))
		b.WriteString("\n")
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n" + m.renderHelp()
}

func field(name, value string) string {
	return headerStyle.Render(fmt.Sprintf("%-10s", name+":")) + " " + valueStyle.Render(value) + "\n"
}

// renderCall renders connection status
func (m Model) renderCall() string {
	status := "Disconnected"
	if m.connected {
		status = fmt.Sprintf("Connected via %s", m.transport)
	}

	s := field("Status", status)
	if m.endpoint != "" {
		s += field("Endpoint", truncate(m.endpoint, 50))
	}
	if m.conversation != "" {
		s += field("Call", m.conversation)
	}
	s += field("State", m.state)
	if !m.startedAt.IsZero() {
		s += field("Duration", time.Since(m.startedAt).Round(time.Second).String())
	}
	return s
}

// renderAudio renders volume and playback state
func (m Model) renderAudio() string {
	mute := ""
	if m.muted {
		mute = " (muted)"
	}
	agent := "listening"
	if m.playing {
		agent = "speaking"
	}

	s := field("Mic", m.encoding)
	s += field("Agent", agent)
	s += field("Volume", fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, mute))
	return s
}

// renderStats renders traffic counters
func (m Model) renderStats() string {
	s := field("Sent", fmt.Sprintf("%d frames, %s", m.framesCaptured, formatBytes(m.bytesSent)))
	s += field("Received", fmt.Sprintf("%d chunks", m.chunksReceived))
	s += field("Playback", fmt.Sprintf("played %d  failed %d  cancelled %d  queued %d",
		m.played, m.failed, m.cancelled, m.pending))
	return s
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return field("Debug", fmt.Sprintf("window %dx%d", m.width, m.height))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return helpStyle.Render("s:Stop agent  ↑/↓:Volume  m:Mute  d:Debug  q:End call")
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.controls.send(Action{Kind: ActionQuit})
		return m, tea.Quit
	case "s", " ", "space":
		m.controls.send(Action{Kind: ActionStopPlayback})
	case "up":
		if m.volume < 100 {
			m.volume = min(m.volume+5, 100)
			m.controls.send(Action{Kind: ActionVolume, Volume: m.volume})
		}
	case "down":
		if m.volume > 0 {
			m.volume = max(m.volume-5, 0)
			m.controls.send(Action{Kind: ActionVolume, Volume: m.volume})
		}
	case "m":
		m.muted = !m.muted
		m.controls.send(Action{Kind: ActionMute, Muted: m.muted})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
		if m.connected && m.startedAt.IsZero() {
			m.startedAt = time.Now()
		}
	}
	if msg.Transport != "" {
		m.transport = msg.Transport
	}
	if msg.Endpoint != "" {
		m.endpoint = msg.Endpoint
	}
	if msg.Conversation != "" {
		m.conversation = msg.Conversation
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Encoding != "" {
		m.encoding = msg.Encoding
	}
	if msg.Playing != nil {
		m.playing = *msg.Playing
	}
	if msg.Stats != nil {
		m.framesCaptured = msg.Stats.FramesCaptured
		m.bytesSent = msg.Stats.BytesSent
		m.chunksReceived = msg.Stats.ChunksReceived
		m.played = msg.Stats.Played
		m.failed = msg.Stats.Failed
		m.cancelled = msg.Stats.Cancelled
		m.pending = msg.Stats.Pending
	}
	if msg.Error != "" {
		m.lastError = msg.Error
	}
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
