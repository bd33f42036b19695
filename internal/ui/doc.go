// ABOUTME: Terminal call monitor package
// ABOUTME: Bubbletea and lipgloss view of a live call
// Package ui renders a live view of a call and relays keyboard actions.
//
// Example:
//
//	controls := ui.NewControls()
//	mon := ui.NewMonitor(controls, 100)
//	go func() {
//		for a := range controls.Actions {
//			if a.Kind == ui.ActionStopPlayback {
//				session.BargeIn()
//			}
//		}
//	}()
//	mon.Run()
package ui
