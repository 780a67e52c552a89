// Package tui implements the interactive lookup mode: an identifier input
// on top of a scrollable report viewport. Resolution goes through the same
// engine as the one-shot command.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apimgr/sfind/src/finder"
	"github.com/apimgr/sfind/src/model"
	"github.com/apimgr/sfind/src/output"
)

// Dracula colors
var (
	comment = lipgloss.Color("#6272a4")
	purple  = lipgloss.Color("#bd93f9")
	red     = lipgloss.Color("#ff5555")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(comment).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(comment)

	errorStyle = lipgloss.NewStyle().
			Foreground(red)
)

type app struct {
	finder    *finder.Finder
	fields    model.FieldConfig
	input     textinput.Model
	viewport  viewport.Model
	report    *model.Report
	err       error
	resolving bool
	ready     bool
	width     int
	height    int
}

type resolveMsg struct {
	report *model.Report
	err    error
}

func initialApp(f *finder.Finder, fields model.FieldConfig) app {
	ti := textinput.New()
	ti.Placeholder = "Enter a record id or email..."
	ti.Focus()
	ti.Width = 50

	return app{
		finder: f,
		fields: fields,
		input:  ti,
	}
}

func (a app) Init() tea.Cmd {
	return textinput.Blink
}

func (a app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Record ids and emails may contain any letter, so plain keys all
		// belong to the input; only ctrl+c quits.
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "enter":
			if a.input.Value() != "" && !a.resolving {
				a.resolving = true
				return a, a.resolve(a.input.Value())
			}
		case "esc":
			a.input.SetValue("")
			a.report = nil
			a.err = nil
			a.viewport.SetContent("")
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport = viewport.New(msg.Width, msg.Height-6)
		a.ready = true
		if a.report != nil || a.err != nil {
			a.viewport.SetContent(a.renderReport())
		}

	case resolveMsg:
		a.resolving = false
		a.report = msg.report
		a.err = msg.err
		a.viewport.SetContent(a.renderReport())
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

func (a app) resolve(query string) tea.Cmd {
	return func() tea.Msg {
		report, err := a.finder.Find(context.Background(), query)
		return resolveMsg{report: report, err: err}
	}
}

func (a app) renderReport() string {
	if a.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", a.err))
	}
	if a.report == nil {
		return ""
	}

	var buf bytes.Buffer
	r := output.NewRenderer(&buf, a.fields, true)
	if err := r.Render(a.report, "table"); err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", err))
	}
	return buf.String()
}

func (a app) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("sfind"))
	sb.WriteString("\n\n")

	sb.WriteString(inputStyle.Render(a.input.View()))
	sb.WriteString("\n\n")

	if a.resolving {
		sb.WriteString(helpStyle.Render("Resolving..."))
	} else if a.ready {
		sb.WriteString(a.viewport.View())
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Enter: resolve • Esc: clear • Ctrl+C: quit"))

	return sb.String()
}

// Run starts the interactive lookup application.
func Run(f *finder.Finder, fields model.FieldConfig) error {
	p := tea.NewProgram(initialApp(f, fields), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
