package panels

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hbrandt/coincast/internal/series"
	"github.com/hbrandt/coincast/internal/share"
	"github.com/hbrandt/coincast/internal/sim"
	"github.com/hbrandt/coincast/internal/viewport"
	"github.com/hbrandt/coincast/tui/styles"
)

const axisWidth = 11 // right-side price axis incl. separator

// timeframes selectable with the number keys.
var timeframes = []struct {
	Key   string
	Label string
	Span  time.Duration
}{
	{"1", "1m", time.Minute},
	{"2", "5m", 5 * time.Minute},
	{"3", "15m", 15 * time.Minute},
	{"4", "1h", time.Hour},
	{"5", "1d", 24 * time.Hour},
}

// ChartPanel renders the price series as a line chart with pan/zoom.
type ChartPanel struct {
	symbol string
	buf    *series.Buffer
	vp     *viewport.Viewport
	ges    *viewport.Gesture

	mode sim.Mode
	role sim.Role
	opts share.Options

	focused bool
	width   int
	height  int
}

// NewChartPanel creates the chart for a buffer capacity matching the engine's.
func NewChartPanel(opts share.Options, bufferCap int) *ChartPanel {
	return &ChartPanel{
		buf:  series.NewBuffer(bufferCap),
		vp:   viewport.New(1),
		ges:  viewport.NewGesture(1, 0),
		opts: opts,
	}
}

// Init initializes the panel.
func (p *ChartPanel) Init() tea.Cmd {
	return nil
}

// Update handles keyboard input for the panel.
func (p *ChartPanel) Update(msg tea.Msg) (*ChartPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		for _, tf := range timeframes {
			if key.Matches(msg, key.NewBinding(key.WithKeys(tf.Key))) {
				if !p.opts.ShowTimeframes {
					return p, nil
				}
				if last, ok := p.buf.Last(); ok {
					p.vp.SetTimeframe(tf.Span, last.Time)
				}
				return p, nil
			}
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("0", "r"))):
			p.vp.Reset()
		case key.Matches(msg, key.NewBinding(key.WithKeys("left", "h"))):
			p.vp.Pan(-4)
		case key.Matches(msg, key.NewBinding(key.WithKeys("right", "l"))):
			p.vp.Pan(4)
		case key.Matches(msg, key.NewBinding(key.WithKeys("+", "="))):
			p.zoom(viewport.ZoomIn, false)
		case key.Matches(msg, key.NewBinding(key.WithKeys("-"))):
			p.zoom(viewport.ZoomOut, false)
		}
	}
	return p, nil
}

// HandleMouse processes a pointer event in panel-local coordinates.
func (p *ChartPanel) HandleMouse(x, y int, m tea.MouseMsg) {
	switch m.Button {
	case tea.MouseButtonWheelUp:
		p.zoom(viewport.ZoomIn, p.overAxis(x))
		return
	case tea.MouseButtonWheelDown:
		p.zoom(viewport.ZoomOut, p.overAxis(x))
		return
	}

	switch m.Action {
	case tea.MouseActionPress:
		p.ges.Down(x, y)
	case tea.MouseActionMotion:
		dx, dy, state := p.ges.Move(x, y)
		switch state {
		case viewport.Dragging:
			p.vp.Pan(float64(dx))
		case viewport.ResizingY:
			p.vp.ResizeY(float64(dy))
		}
	case tea.MouseActionRelease:
		p.ges.Up()
	}
}

func (p *ChartPanel) zoom(dir viewport.ZoomDir, overYAxis bool) {
	last, ok := p.buf.Last()
	if !ok {
		return
	}
	p.vp.Zoom(dir, overYAxis, last.Time)
}

func (p *ChartPanel) overAxis(x int) bool {
	return x >= p.plotWidth()
}

func (p *ChartPanel) plotWidth() int {
	w := p.width - axisWidth - 4
	if w < 10 {
		w = 10
	}
	return w
}

// View renders the panel.
func (p *ChartPanel) View() string {
	plotW := p.plotWidth()
	plotH := p.height - 7
	if plotH < 5 {
		plotH = 5
	}

	visible := p.vp.VisibleSlice(p.buf)
	p.vp.ApplyAutoY(visible)

	var content string
	if len(visible) == 0 {
		content = lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render("Waiting for price data...")
	} else {
		content = p.renderChart(plotW, plotH, visible)
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	panel := lipgloss.JoinVertical(lipgloss.Left, p.renderHeader(), content)
	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *ChartPanel) renderHeader() string {
	if !p.opts.ShowHeader {
		return ""
	}

	title := styles.RenderTitle(p.symbol, p.focused)
	if last, ok := p.buf.Last(); ok {
		title += " " + styles.ChartLabelStyle.Render(styles.FormatPrice(last.Price))
	}
	switch p.mode {
	case sim.ModeSimulating:
		if p.role == sim.RoleViewer {
			title += " " + styles.ViewerBadgeStyle.Render("VIEWING")
		} else {
			title += " " + styles.SimBadgeStyle.Render("SIM")
		}
	case sim.ModeReverting:
		title += " " + styles.RevertBadgeStyle.Render("REVERTING")
	}
	if p.opts.ShowTimeframes {
		var keys []string
		for _, tf := range timeframes {
			keys = append(keys, tf.Key+":"+tf.Label)
		}
		title += "  " + styles.ChartAxisStyle.Render(strings.Join(keys, " "))
	}
	return title
}

func (p *ChartPanel) renderChart(width, height int, visible []series.Sample) string {
	xMin, xMax, ok := p.vp.XDomain()
	if !ok {
		xMin = visible[0].Time
		xMax = visible[len(visible)-1].Time
	}
	yMin, yMax, _ := p.vp.YDomain()
	if yMax <= yMin {
		yMax = yMin + 1
	}

	// Map each column to the nearest sample at or before its time.
	cols := make([]int, width)      // row index, -1 when no sample
	simCol := make([]bool, width)   // simulated flag per column
	for c := 0; c < width; c++ {
		t := xMin + int64((float64(c)+0.5)*float64(xMax-xMin)/float64(width))
		i := sort.Search(len(visible), func(i int) bool { return visible[i].Time > t })
		if i == 0 {
			cols[c] = -1
			continue
		}
		s := visible[i-1]
		ratio := (yMax - s.Price) / (yMax - yMin)
		row := int(ratio * float64(height-1))
		if row < 0 {
			row = 0
		}
		if row >= height {
			row = height - 1
		}
		cols[c] = row
		simCol[c] = s.Simulated
	}

	var b strings.Builder
	for row := 0; row < height; row++ {
		for c := 0; c < width; c++ {
			ch, style := p.cell(row, c, cols, simCol, height)
			b.WriteString(style.Render(string(ch)))
		}
		// Right-side price axis; the hit zone for the resize gesture.
		price := yMax - float64(row)/float64(height-1)*(yMax-yMin)
		b.WriteString(styles.ChartAxisStyle.Render(fmt.Sprintf("│%9s", styles.FormatPrice(price))))
		b.WriteString("\n")
	}

	b.WriteString(styles.ChartAxisStyle.Render(strings.Repeat("─", width) + "┴" + strings.Repeat("─", axisWidth-1)))
	b.WriteString("\n")
	b.WriteString(p.renderTimeAxis(width, xMin, xMax))
	return b.String()
}

// cell picks the glyph for one chart cell: the line point, a vertical
// connector between adjacent columns, a grid dot, or blank.
func (p *ChartPanel) cell(row, c int, cols []int, simCol []bool, height int) (rune, lipgloss.Style) {
	lineStyle := styles.LineStyle
	if simCol[c] {
		lineStyle = styles.SimLineStyle
	}

	r := cols[c]
	if r == row {
		return '●', lineStyle
	}
	if r >= 0 && c > 0 && cols[c-1] >= 0 {
		lo, hi := cols[c-1], r
		if lo > hi {
			lo, hi = hi, lo
		}
		if row > lo && row < hi {
			return '│', lineStyle
		}
	}
	if p.opts.ShowGrid && row%4 == 2 {
		return '┈', styles.GridStyle
	}
	return ' ', styles.GridStyle
}

func (p *ChartPanel) renderTimeAxis(width int, xMin, xMax int64) string {
	left := time.UnixMilli(xMin).Format("15:04:05")
	right := time.UnixMilli(xMax).Format("15:04:05")
	gap := width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	axis := left + strings.Repeat(" ", gap) + right
	if !p.vp.FollowingX() {
		axis += "  " + styles.ChartLabelStyle.Render("(0 to follow)")
	}
	return styles.ChartAxisStyle.Render(axis)
}

// SetFocus sets the focus state of the panel.
func (p *ChartPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *ChartPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.vp.SetWidth(p.plotWidth())
	p.ges.SetWidth(p.plotWidth() + axisWidth)
}

// SetSymbol resets the chart for a new asset.
func (p *ChartPanel) SetSymbol(symbol string) {
	p.symbol = symbol
	p.buf.Replace(nil)
	p.vp.Reset()
}

// SetMode updates the badge shown in the header.
func (p *ChartPanel) SetMode(mode sim.Mode, role sim.Role) {
	p.mode = mode
	p.role = role
}

// Append adds one sample and keeps the window following it.
func (p *ChartPanel) Append(s series.Sample) {
	if !p.buf.Append(s) {
		return
	}
	if _, _, ok := p.vp.XDomain(); !ok {
		// First data establishes a 15 minute window.
		p.vp.SetTimeframe(15*time.Minute, s.Time)
		return
	}
	p.vp.Follow(s.Time)
}

// SetSeries replaces the whole series, e.g. after an asset switch.
func (p *ChartPanel) SetSeries(samples []series.Sample) {
	p.buf.Replace(samples)
	p.vp.Reset()
	if last, ok := p.buf.Last(); ok {
		p.vp.SetTimeframe(15*time.Minute, last.Time)
	}
}
