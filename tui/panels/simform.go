package panels

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hbrandt/coincast/internal/sim"
	"github.com/hbrandt/coincast/tui/styles"
)

// SimSubmitMsg asks the application to start a simulation.
type SimSubmitMsg struct {
	Target   float64
	Duration time.Duration
	Vol      sim.Volatility
}

// SimStopMsg asks the application to stop the active simulation.
type SimStopMsg struct{}

// SimFormField is the focused form field.
type SimFormField int

const (
	FieldTarget SimFormField = iota
	FieldDuration
	FieldVolatility
	FieldSubmit
)

var volOptions = []sim.Volatility{sim.VolatilityLow, sim.VolatilityMedium, sim.VolatilityHigh}

// SimFormPanel collects the target price, duration, and volatility for a new
// simulation.
type SimFormPanel struct {
	targetInput   textinput.Model
	durationInput textinput.Model
	volIndex      int
	currentField  SimFormField

	running bool
	viewer  bool
	errMsg  string

	focused bool
	width   int
	height  int
}

// NewSimFormPanel creates the form.
func NewSimFormPanel() *SimFormPanel {
	target := textinput.New()
	target.Placeholder = "Target price"
	target.Width = 14
	target.CharLimit = 16

	duration := textinput.New()
	duration.Placeholder = "Duration (e.g. 30m, 2h)"
	duration.Width = 14
	duration.CharLimit = 10

	return &SimFormPanel{
		targetInput:   target,
		durationInput: duration,
		volIndex:      1, // medium
	}
}

// Init initializes the panel.
func (p *SimFormPanel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the panel.
func (p *SimFormPanel) Update(msg tea.Msg) (*SimFormPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	var cmd tea.Cmd
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("down"))):
			p.nextField()
			return p, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("up"))):
			p.prevField()
			return p, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("left"))):
			if p.currentField == FieldVolatility && p.volIndex > 0 {
				p.volIndex--
				return p, nil
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("right"))):
			if p.currentField == FieldVolatility && p.volIndex < len(volOptions)-1 {
				p.volIndex++
				return p, nil
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			if p.currentField == FieldSubmit {
				return p, p.submit()
			}
			p.nextField()
			return p, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+s"))):
			if p.running {
				return p, func() tea.Msg { return SimStopMsg{} }
			}
		}
	}

	switch p.currentField {
	case FieldTarget:
		p.targetInput, cmd = p.targetInput.Update(msg)
	case FieldDuration:
		p.durationInput, cmd = p.durationInput.Update(msg)
	}
	return p, cmd
}

func (p *SimFormPanel) submit() tea.Cmd {
	if p.viewer {
		p.errMsg = "viewing a shared simulation; controls are disabled"
		return nil
	}
	if p.running {
		p.errMsg = "a simulation is already running (ctrl+s stops it)"
		return nil
	}

	target, err := strconv.ParseFloat(strings.TrimSpace(p.targetInput.Value()), 64)
	if err != nil || target <= 0 {
		p.errMsg = "target price must be a positive number"
		return nil
	}
	duration, err := time.ParseDuration(strings.TrimSpace(p.durationInput.Value()))
	if err != nil || duration <= 0 {
		p.errMsg = "duration must look like 30m or 2h"
		return nil
	}

	p.errMsg = ""
	vol := volOptions[p.volIndex]
	return func() tea.Msg {
		return SimSubmitMsg{Target: target, Duration: duration, Vol: vol}
	}
}

func (p *SimFormPanel) nextField() {
	p.currentField = (p.currentField + 1) % 4
	p.syncFocus()
}

func (p *SimFormPanel) prevField() {
	p.currentField--
	if p.currentField < 0 {
		p.currentField = FieldSubmit
	}
	p.syncFocus()
}

func (p *SimFormPanel) syncFocus() {
	p.targetInput.Blur()
	p.durationInput.Blur()
	switch p.currentField {
	case FieldTarget:
		p.targetInput.Focus()
	case FieldDuration:
		p.durationInput.Focus()
	}
}

// View renders the panel.
func (p *SimFormPanel) View() string {
	var content strings.Builder

	if p.viewer {
		content.WriteString(styles.LabelStyle.Render("Viewing a shared simulation."))
	} else {
		content.WriteString(p.renderField(FieldTarget, "Target", p.targetInput.View()))
		content.WriteString("\n")
		content.WriteString(p.renderField(FieldDuration, "Duration", p.durationInput.View()))
		content.WriteString("\n")
		content.WriteString(p.renderField(FieldVolatility, "Volatility", p.renderVolPicker()))
		content.WriteString("\n\n")

		submit := "[ Start simulation ]"
		if p.running {
			submit = "[ ctrl+s to stop ]"
		}
		submitStyle := styles.LabelStyle
		if p.currentField == FieldSubmit {
			submitStyle = styles.StatusBarKeyStyle
		}
		content.WriteString(submitStyle.Render(submit))
	}

	if p.errMsg != "" {
		content.WriteString("\n")
		content.WriteString(styles.ErrorStyle.Render(p.errMsg))
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}
	title := styles.RenderTitle("Simulate", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())
	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *SimFormPanel) renderField(f SimFormField, label, value string) string {
	style := styles.LabelStyle
	if p.currentField == f && p.focused {
		style = styles.StatusBarKeyStyle
	}
	return fmt.Sprintf("%s %s", style.Render(fmt.Sprintf("%-10s", label)), value)
}

func (p *SimFormPanel) renderVolPicker() string {
	var parts []string
	for i, v := range volOptions {
		label := v.String()
		if i == p.volIndex {
			label = "[" + label + "]"
			parts = append(parts, styles.StatusBarKeyStyle.Render(label))
		} else {
			parts = append(parts, styles.LabelStyle.Render(" "+label+" "))
		}
	}
	return strings.Join(parts, " ")
}

// SetFocus sets the focus state of the panel.
func (p *SimFormPanel) SetFocus(focused bool) {
	p.focused = focused
	if focused {
		p.syncFocus()
	} else {
		p.targetInput.Blur()
		p.durationInput.Blur()
	}
}

// SetSize sets the panel dimensions.
func (p *SimFormPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetRunning reflects whether a simulation is active.
func (p *SimFormPanel) SetRunning(running bool) {
	p.running = running
	if !running {
		p.errMsg = ""
	}
}

// SetViewer disables the controls for shared-simulation viewers.
func (p *SimFormPanel) SetViewer(viewer bool) {
	p.viewer = viewer
}
