// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and relays user actions
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ActionKind identifies a user action
type ActionKind int

const (
	ActionQuit ActionKind = iota
	ActionStopPlayback
	ActionMute
	ActionVolume
)

// Action is a user request from the monitor
type Action struct {
	Kind   ActionKind
	Muted  bool
	Volume int
}

// Controls carries user actions to the call
type Controls struct {
	Actions chan Action
}

// NewControls creates a new control channel
func NewControls() *Controls {
	return &Controls{Actions: make(chan Action, 10)}
}

// send never blocks the UI; a nil receiver drops the action
func (c *Controls) send(a Action) {
	if c == nil {
		return
	}
	select {
	case c.Actions <- a:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls, volume int) Model {
	return Model{
		volume:   volume,
		state:    "idle",
		encoding: "linear16",
		controls: controls,
	}
}

// Monitor runs the call monitor
type Monitor struct {
	program *tea.Program
}

// NewMonitor creates a monitor; Run starts it
func NewMonitor(controls *Controls, volume int) *Monitor {
	return &Monitor{
		program: tea.NewProgram(NewModel(controls, volume), tea.WithAltScreen()),
	}
}

// Run blocks until the user quits or Stop is called
func (m *Monitor) Run() error {
	_, err := m.program.Run()
	return err
}

// Update sends a status update to the TUI
func (m *Monitor) Update(status StatusMsg) {
	m.program.Send(status)
}

// Stop ends the program
func (m *Monitor) Stop() {
	m.program.Quit()
}
