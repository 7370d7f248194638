package styles

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/hbrandt/coincast/internal/share"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7C3AED") // Purple
	AccentColor  = lipgloss.Color("#F59E0B") // Amber

	UpColor      = lipgloss.Color("#10B981") // Green
	DownColor    = lipgloss.Color("#EF4444") // Red
	NeutralColor = lipgloss.Color("#6B7280") // Gray

	BackgroundColor  = lipgloss.Color("#1F2937")
	BorderColor      = lipgloss.Color("#374151")
	FocusBorderColor = lipgloss.Color("#7C3AED")

	TextColor          = lipgloss.Color("#F9FAFB")
	TextSecondaryColor = lipgloss.Color("#9CA3AF")
	TextMutedColor     = lipgloss.Color("#6B7280")
)

// Panel styles
var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(FocusBorderColor).
				Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextSecondaryColor)

	RowStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Background(lipgloss.Color("#374151"))
)

// Chart styles
var (
	LineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	SimLineStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)

	GridStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2B3544"))

	ChartAxisStyle = lipgloss.NewStyle().
			Foreground(TextMutedColor)

	ChartLabelStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor)

	SimBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#111827")).
			Background(AccentColor).
			Padding(0, 1)

	RevertBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#111827")).
				Background(NeutralColor).
				Padding(0, 1)

	ViewerBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#111827")).
				Background(lipgloss.Color("45")).
				Padding(0, 1)
)

// Form styles
var (
	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	FocusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(FocusBorderColor).
				Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(DownColor)
)

// Status bar styles
var (
	StatusBarStyle = lipgloss.NewStyle().
			Background(BackgroundColor).
			Foreground(TextSecondaryColor).
			Padding(0, 1)

	StatusBarKeyStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	StatusBarDescStyle = lipgloss.NewStyle().
				Foreground(TextSecondaryColor)

	ConfirmStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#111827")).
			Background(AccentColor).
			Padding(0, 1)
)

// Configure applies the appearance overrides carried by a share/embed link.
func Configure(opts share.Options) {
	if opts.LineColor != "" {
		LineStyle = LineStyle.Foreground(lipgloss.Color(opts.LineColor))
	}
	if opts.TextColor != "" {
		c := lipgloss.Color(opts.TextColor)
		TextColor = c
		RowStyle = RowStyle.Foreground(c)
	}
	if opts.Background != "" && opts.Background != "transparent" {
		BackgroundColor = lipgloss.Color(opts.Background)
		StatusBarStyle = StatusBarStyle.Background(BackgroundColor)
	}
}

// RenderTitle renders a panel title bar.
func RenderTitle(title string, focused bool) string {
	style := TitleStyle
	if focused {
		style = style.Foreground(FocusBorderColor)
	}
	return style.Render(title)
}

// FormatPrice picks a precision that keeps small-cap prices readable.
func FormatPrice(p float64) string {
	switch {
	case p >= 1000:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.8f", p)
	}
}
