package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hbrandt/coincast/internal/feed"
	"github.com/hbrandt/coincast/tui/styles"
)

// CoinSelectedMsg is sent when the user picks an asset.
type CoinSelectedMsg struct {
	Symbol string
}

// CoinsPanel lists the selectable assets.
type CoinsPanel struct {
	assets        []feed.Asset
	prices        map[string]float64
	active        string
	selectedIndex int

	focused bool
	width   int
	height  int
}

// NewCoinsPanel creates the asset list from the built-in catalog.
func NewCoinsPanel(active string) *CoinsPanel {
	assets := feed.Catalog()
	p := &CoinsPanel{
		assets: assets,
		prices: make(map[string]float64),
		active: active,
	}
	for i, a := range assets {
		if a.Symbol == active {
			p.selectedIndex = i
		}
	}
	return p
}

// Init initializes the panel.
func (p *CoinsPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *CoinsPanel) Update(msg tea.Msg) (*CoinsPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.assets)-1 {
				p.selectedIndex++
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			symbol := p.assets[p.selectedIndex].Symbol
			if symbol != p.active {
				return p, func() tea.Msg { return CoinSelectedMsg{Symbol: symbol} }
			}
		}
	}
	return p, nil
}

// View renders the panel.
func (p *CoinsPanel) View() string {
	var content strings.Builder

	header := fmt.Sprintf("%-10s %12s", "Symbol", "Price")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	for i, a := range p.assets {
		price := "-"
		if v, ok := p.prices[a.Symbol]; ok {
			price = styles.FormatPrice(v)
		}
		marker := " "
		if a.Symbol == p.active {
			marker = "▸"
		}
		row := fmt.Sprintf("%s%-9s %12s", marker, a.Symbol, price)

		style := styles.RowStyle
		if i == p.selectedIndex && p.focused {
			style = styles.SelectedRowStyle
		}
		content.WriteString(style.Render(row))
		if i < len(p.assets)-1 {
			content.WriteString("\n")
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}
	title := styles.RenderTitle("Coins", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())
	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *CoinsPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *CoinsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetActive marks the asset currently charted.
func (p *CoinsPanel) SetActive(symbol string) {
	p.active = symbol
}

// SetPrice records the latest price for a symbol's row.
func (p *CoinsPanel) SetPrice(symbol string, price float64) {
	p.prices[symbol] = price
}
