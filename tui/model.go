package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hbrandt/coincast/internal/engine"
	"github.com/hbrandt/coincast/internal/share"
	"github.com/hbrandt/coincast/internal/sim"
	"github.com/hbrandt/coincast/tui/panels"
	"github.com/hbrandt/coincast/tui/styles"
)

// PanelFocus represents which panel is currently focused.
type PanelFocus int

const (
	FocusCoins PanelFocus = 0
	FocusChart PanelFocus = 1
	FocusForm  PanelFocus = 2
)

const panelCount = 3

// Model is the main TUI application model.
type Model struct {
	eng  *engine.Engine
	opts share.Options

	coinsPanel *panels.CoinsPanel
	chartPanel *panels.ChartPanel
	formPanel  *panels.SimFormPanel

	focusedPanel PanelFocus

	// pendingSwitch holds an asset switch awaiting confirmation because it
	// would discard the active simulation.
	pendingSwitch string

	width  int
	height int

	statusMsg string
	shareLink string
	ready     bool
}

// NewModel creates the TUI model over a started engine.
func NewModel(eng *engine.Engine, opts share.Options) *Model {
	m := &Model{
		eng:          eng,
		opts:         opts,
		coinsPanel:   panels.NewCoinsPanel(eng.Symbol()),
		chartPanel:   panels.NewChartPanel(opts, eng.Series().Cap()),
		formPanel:    panels.NewSimFormPanel(),
		focusedPanel: FocusChart,
	}
	styles.Configure(opts)

	m.chartPanel.SetSymbol(eng.Symbol())
	m.chartPanel.SetSeries(eng.Samples())
	m.chartPanel.SetMode(eng.Mode(), eng.Role())
	if d, ok := eng.ActiveSimulation(); ok {
		m.formPanel.SetRunning(true)
		m.formPanel.SetViewer(eng.Role() == sim.RoleViewer)
		m.shareLink = share.Encode(opts, &d)
	}
	return m
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.coinsPanel.Init(),
		m.chartPanel.Init(),
		m.formPanel.Init(),
		m.listenEngine(),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.pendingSwitch != "" {
			return m, m.handleConfirmKey(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			if m.focusedPanel == FocusForm && msg.String() == "q" {
				break // let the form receive the character
			}
			return m, tea.Quit
		case "tab":
			m.focusedPanel = (m.focusedPanel + 1) % panelCount
		case "shift+tab":
			m.focusedPanel--
			if m.focusedPanel < 0 {
				m.focusedPanel = panelCount - 1
			}
		case "f1":
			m.focusedPanel = FocusCoins
		case "f2":
			m.focusedPanel = FocusChart
		case "f3":
			m.focusedPanel = FocusForm
		}

	case tea.MouseMsg:
		m.routeMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case panels.CoinSelectedMsg:
		cmds = append(cmds, m.switchAsset(msg.Symbol, false))

	case panels.SimSubmitMsg:
		cmds = append(cmds, m.startSimulation(msg))

	case panels.SimStopMsg:
		if m.eng.StopSimulation() {
			m.statusMsg = "simulation stopped"
		}

	case engineEventMsg:
		m.handleEngineEvent(msg.ev)
		cmds = append(cmds, m.listenEngine())

	case confirmSwitchMsg:
		m.pendingSwitch = msg.symbol

	case statusMsg:
		m.statusMsg = string(msg)
	}

	m.updateFocusedPanel(msg, &cmds)
	return m, tea.Batch(cmds...)
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	var cmd tea.Cmd
	switch m.focusedPanel {
	case FocusCoins:
		m.coinsPanel, cmd = m.coinsPanel.Update(msg)
	case FocusChart:
		m.chartPanel, cmd = m.chartPanel.Update(msg)
	case FocusForm:
		m.formPanel, cmd = m.formPanel.Update(msg)
	}
	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

// routeMouse forwards pointer events landing on the chart, translated to
// panel-local coordinates.
func (m *Model) routeMouse(msg tea.MouseMsg) {
	chartX := msg.X - m.leftWidth()
	if chartX < 0 {
		return
	}
	m.focusedPanel = FocusChart
	m.chartPanel.HandleMouse(chartX, msg.Y, msg)
}

func (m *Model) handleEngineEvent(ev engine.Event) {
	switch ev := ev.(type) {
	case engine.TickEvent:
		m.chartPanel.Append(ev.Sample)
		m.chartPanel.SetMode(ev.Mode, m.eng.Role())
		m.coinsPanel.SetPrice(m.eng.Symbol(), ev.Sample.Price)

	case engine.SeriesReplacedEvent:
		m.chartPanel.SetSymbol(ev.Symbol)
		m.chartPanel.SetSeries(m.eng.Samples())
		m.coinsPanel.SetActive(ev.Symbol)

	case engine.SimulationStartedEvent:
		m.formPanel.SetRunning(true)
		m.formPanel.SetViewer(ev.Role == sim.RoleViewer)
		m.chartPanel.SetMode(sim.ModeSimulating, ev.Role)
		m.shareLink = share.Encode(m.opts, &ev.Descriptor)
		if ev.Role == sim.RoleViewer {
			m.statusMsg = "viewing a shared simulation"
		}

	case engine.SimulationEndedEvent:
		m.formPanel.SetRunning(false)
		m.shareLink = ""
		if ev.Completed {
			m.statusMsg = "simulation reached its target"
		} else {
			m.statusMsg = "simulation ended"
		}

	case engine.ModeChangedEvent:
		m.chartPanel.SetMode(ev.To, m.eng.Role())
		if ev.To == sim.ModeLive {
			m.statusMsg = "back to live prices"
		}
	}
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		symbol := m.pendingSwitch
		m.pendingSwitch = ""
		return m.switchAsset(symbol, true)
	case "n", "N", "esc":
		m.pendingSwitch = ""
		m.statusMsg = "switch cancelled"
	}
	return nil
}

func (m *Model) switchAsset(symbol string, confirm bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := m.eng.SwitchAsset(ctx, symbol, confirm)
		if err == engine.ErrConfirmRequired {
			return confirmSwitchMsg{symbol: symbol}
		}
		if err != nil {
			return statusMsg("switch failed: " + err.Error())
		}
		return statusMsg("now charting " + symbol)
	}
}

func (m *Model) startSimulation(msg panels.SimSubmitMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		d, err := m.eng.StartSimulation(ctx, msg.Target, msg.Duration, msg.Vol)
		if err != nil {
			return statusMsg("simulation failed: " + err.Error())
		}
		return statusMsg("simulating " + d.AssetID + " to " + styles.FormatPrice(d.TargetPrice))
	}
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	m.coinsPanel.SetFocus(m.focusedPanel == FocusCoins)
	m.chartPanel.SetFocus(m.focusedPanel == FocusChart)
	m.formPanel.SetFocus(m.focusedPanel == FocusForm)

	// Layout:
	// ┌────────┬──────────────────────────┐
	// │ Coins  │          Chart           │
	// │        ├──────────────────────────┤
	// │        │         Simulate         │
	// └────────┴──────────────────────────┘
	leftWidth := m.leftWidth()
	rightWidth := m.width - leftWidth
	chartHeight := (m.height - 1) * 3 / 4
	formHeight := m.height - 1 - chartHeight

	m.coinsPanel.SetSize(leftWidth, m.height-1)
	m.chartPanel.SetSize(rightWidth, chartHeight)
	m.formPanel.SetSize(rightWidth, formHeight)

	right := lipgloss.JoinVertical(lipgloss.Left, m.chartPanel.View(), m.formPanel.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.coinsPanel.View(), right)

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar())
}

func (m *Model) leftWidth() int {
	w := m.width / 4
	if w < 24 {
		w = 24
	}
	return w
}

func (m *Model) renderStatusBar() string {
	if m.pendingSwitch != "" {
		prompt := "Switching to " + m.pendingSwitch + " ends the running simulation. Continue? (y/n)"
		return styles.ConfirmStyle.Width(m.width).Render(prompt)
	}

	help := lipgloss.JoinHorizontal(lipgloss.Center,
		styles.StatusBarKeyStyle.Render("F1-F3")+styles.StatusBarDescStyle.Render(" panels"),
		" │ ",
		styles.StatusBarKeyStyle.Render("1-5")+styles.StatusBarDescStyle.Render(" timeframe"),
		" │ ",
		styles.StatusBarKeyStyle.Render("0")+styles.StatusBarDescStyle.Render(" follow"),
		" │ ",
		styles.StatusBarKeyStyle.Render("q")+styles.StatusBarDescStyle.Render(" quit"),
	)

	status := ""
	if m.statusMsg != "" {
		status = " │ " + m.statusMsg
	}
	if m.shareLink != "" {
		status += " │ share: " + m.shareLink
	}
	return styles.StatusBarStyle.Width(m.width).Render(help + status)
}

// listenEngine waits for the next engine event.
func (m *Model) listenEngine() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.eng.Events()
		if !ok {
			return nil
		}
		return engineEventMsg{ev: ev}
	}
}

type engineEventMsg struct {
	ev engine.Event
}

type confirmSwitchMsg struct {
	symbol string
}

type statusMsg string
