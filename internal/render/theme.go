package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/timvw/pane-runner/internal/model"
)

// Theme defines the colors used for rendered output and the watch TUI.
// Use DarkTheme() or LightTheme() to get a pre-built theme,
// or construct a custom Theme.
type Theme struct {
	Primary   lipgloss.Color // command header, title
	Secondary lipgloss.Color // table headers
	Accent    lipgloss.Color // data block frame
	Error     lipgloss.Color // failures, critical findings
	Warning   lipgloss.Color // findings heading, high findings
	Notice    lipgloss.Color // medium findings
	Success   lipgloss.Color // summary line, low findings
	Info      lipgloss.Color // informational findings
	Text      lipgloss.Color // primary text
	TextMuted lipgloss.Color // truncation notes, hints
	Border    lipgloss.Color // table borders, separators
}

// DarkTheme returns the default theme for dark terminal backgrounds.
func DarkTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#56b6c2"),
		Secondary: lipgloss.Color("#5c9cf5"),
		Accent:    lipgloss.Color("#9d7cd8"),
		Error:     lipgloss.Color("#e06c75"),
		Warning:   lipgloss.Color("#f5a742"),
		Notice:    lipgloss.Color("#e5c07b"),
		Success:   lipgloss.Color("#7fd88f"),
		Info:      lipgloss.Color("#5c9cf5"),
		Text:      lipgloss.Color("#eeeeee"),
		TextMuted: lipgloss.Color("#808080"),
		Border:    lipgloss.Color("#484848"),
	}
}

// LightTheme returns a theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#0969da"),
		Secondary: lipgloss.Color("#0550ae"),
		Accent:    lipgloss.Color("#6639ba"),
		Error:     lipgloss.Color("#cf222e"),
		Warning:   lipgloss.Color("#bf8700"),
		Notice:    lipgloss.Color("#9a6700"),
		Success:   lipgloss.Color("#116329"),
		Info:      lipgloss.Color("#0969da"),
		Text:      lipgloss.Color("#1f2328"),
		TextMuted: lipgloss.Color("#656d76"),
		Border:    lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// Styles holds all lipgloss styles derived from a Theme for one renderer.
type Styles struct {
	Header    lipgloss.Style
	Heading   lipgloss.Style
	Category  lipgloss.Style
	Summary   lipgloss.Style
	Failure   lipgloss.Style
	Frame     lipgloss.Style
	Key       lipgloss.Style
	Dim       lipgloss.Style
	Text      lipgloss.Style
	Border    lipgloss.Style
	TableHead lipgloss.Style
	TableCell lipgloss.Style

	importance map[model.Importance]lipgloss.Style
}

// NewStyles builds all styles from a theme on the given renderer.
func NewStyles(r *lipgloss.Renderer, t Theme) Styles {
	return Styles{
		Header:    r.NewStyle().Foreground(t.Primary),
		Heading:   r.NewStyle().Foreground(t.Warning),
		Category:  r.NewStyle().Bold(true),
		Summary:   r.NewStyle().Foreground(t.Success),
		Failure:   r.NewStyle().Foreground(t.Error),
		Frame:     r.NewStyle().Foreground(t.Accent),
		Key:       r.NewStyle().Bold(true),
		Dim:       r.NewStyle().Foreground(t.TextMuted),
		Text:      r.NewStyle().Foreground(t.Text),
		Border:    r.NewStyle().Foreground(t.Border),
		TableHead: r.NewStyle().Bold(true).Foreground(t.Secondary).Padding(0, 1),
		TableCell: r.NewStyle().Padding(0, 1),

		importance: map[model.Importance]lipgloss.Style{
			model.Critical: r.NewStyle().Bold(true).Foreground(t.Error),
			model.High:     r.NewStyle().Foreground(t.Warning),
			model.Medium:   r.NewStyle().Foreground(t.Notice),
			model.Low:      r.NewStyle().Foreground(t.Success),
			model.Info:     r.NewStyle().Foreground(t.Info),
		},
	}
}

// Importance returns the style for a finding severity.
func (s Styles) Importance(imp model.Importance) lipgloss.Style {
	if st, ok := s.importance[imp]; ok {
		return st
	}
	return s.Text
}

// Icon returns the marker printed before a finding.
func Icon(imp model.Importance) string {
	switch imp {
	case model.Critical:
		return "🔴"
	case model.High:
		return "🟠"
	case model.Medium:
		return "🟡"
	case model.Low:
		return "🟢"
	default:
		return "ℹ️ "
	}
}
