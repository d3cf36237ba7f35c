// ABOUTME: Bubbletea model for the router status view
// ABOUTME: Renders sinks, modules, the default sink and companion associations
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-router/internal/companion"
	"github.com/Resonate-Protocol/resonate-router/internal/router"
	"github.com/Resonate-Protocol/resonate-router/pkg/host"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Status holds what the view displays
type Status struct {
	Router     router.State
	Port       int
	Clients    int
	AudioTitle string
}

// StatusMsg replaces the displayed status
type StatusMsg Status

type tickMsg time.Time

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	defaultStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
)

// Model is the bubbletea model for the router TUI
type Model struct {
	status    Status
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}
}

// NewModel creates a model. quitChan may be nil.
func NewModel(status Status, quitChan chan struct{}) Model {
	return Model{
		status:    status,
		startTime: time.Now(),
		quitChan:  quitChan,
	}
}

func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickEvery()

	case StatusMsg:
		m.status = Status(msg)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return "Shutting down router...\n"
	}

	st := m.status.Router
	var b strings.Builder

	b.WriteString(titleStyle.Render("Resonate Router"))
	b.WriteString("\n\n")

	field := func(name, value string) {
		b.WriteString(headerStyle.Render(name + ": "))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	field("Router", st.Name)
	field("Port", fmt.Sprintf("%d", m.status.Port))
	field("Uptime", time.Since(m.startTime).Round(time.Second).String())
	field("Clients", fmt.Sprintf("%d", m.status.Clients))
	if m.status.AudioTitle != "" {
		field("Playing", m.status.AudioTitle)
	}

	def := st.DefaultSink
	if def == "" {
		def = "(none)"
	}
	field("Default sink", def)
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Sinks (%d)", len(st.Sinks))))
	b.WriteString("\n")
	if len(st.Sinks) == 0 {
		b.WriteString(valueStyle.Render("  No sinks"))
		b.WriteString("\n")
	}
	for _, s := range st.Sinks {
		b.WriteString(sinkLine(s))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Modules (%d)", len(st.Modules))))
	b.WriteString("\n")
	if len(st.Modules) == 0 {
		b.WriteString(valueStyle.Render("  No modules"))
		b.WriteString("\n")
	}
	for _, mod := range st.Modules {
		b.WriteString(moduleLine(mod))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

func sinkLine(s router.SinkState) string {
	marker := "  "
	name := valueStyle.Render(s.Name)
	if s.IsDefault {
		marker = "* "
		name = defaultStyle.Render(s.Name)
	}

	var details []string
	if s.Hardware {
		details = append(details, "hardware")
	}
	details = append(details, s.State)
	if s.Owner != nil {
		details = append(details, fmt.Sprintf("module #%d", *s.Owner))
	}
	if s.Master != "" {
		details = append(details, "master "+s.Master)
	}

	line := fmt.Sprintf("%s#%d %s %s", marker, s.Index, name,
		valueStyle.Render("("+strings.Join(details, ", ")+")"))

	idx, ok, err := companion.AssociatedModule(host.Sink{Proplist: s.Proplist})
	switch {
	case err != nil:
		line += warnStyle.Render(" companion ?")
	case ok:
		line += valueStyle.Render(fmt.Sprintf(" companion #%d", idx))
	}
	return line
}

func moduleLine(mod router.ModuleState) string {
	line := fmt.Sprintf("  #%d %s", mod.Index, mod.Name)
	if mod.Argument != "" {
		line += valueStyle.Render(" " + truncate(mod.Argument, 60))
	}
	if idx, ok, err := companion.AssociatedSink(host.Module{Proplist: mod.Proplist}); ok && err == nil {
		line += valueStyle.Render(fmt.Sprintf(" for sink #%d", idx))
	}
	return line
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
