// ABOUTME: TUI program wrapper for the router daemon
// ABOUTME: Feeds status updates into bubbletea and reports quit requests
package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI manages the router status program
type TUI struct {
	program  *tea.Program
	updates  chan Status
	quitChan chan struct{}

	mu      sync.Mutex
	stopped bool
}

// New creates a TUI
func New() *TUI {
	return &TUI{
		updates:  make(chan Status, 10),
		quitChan: make(chan struct{}, 1),
	}
}

// Start runs the program until the user quits or Stop is called
func (t *TUI) Start(initial Status) error {
	program := tea.NewProgram(NewModel(initial, t.quitChan), tea.WithAltScreen())
	t.mu.Lock()
	t.program = program
	t.mu.Unlock()

	go func() {
		for status := range t.updates {
			program.Send(StatusMsg(status))
		}
	}()

	_, err := program.Run()
	return err
}

// Update sends a status update without blocking
func (t *TUI) Update(status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	select {
	case t.updates <- status:
	default:
	}
}

// Stop quits the program. Later updates are dropped.
func (t *TUI) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true

	if t.program != nil {
		t.program.Quit()
	}
	close(t.updates)
}

// QuitChan signals when the user asked to quit
func (t *TUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
