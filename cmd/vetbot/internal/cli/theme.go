package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wolfman30/vetbot/internal/chat"
)

// Theme holds the transcript styles.
type Theme struct {
	User    lipgloss.Style
	Bot     lipgloss.Style
	System  lipgloss.Style
	Error   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
}

// DefaultTheme returns the colored terminal theme.
func DefaultTheme() Theme {
	return Theme{
		User:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#93c5fd"}),
		Bot:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#111827", Dark: "#f3f4f6"}),
		System:  lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a")).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626")),
		Label:   lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706")),
	}
}

// PlainTheme renders without any styling.
func PlainTheme() Theme {
	s := lipgloss.NewStyle()
	return Theme{User: s, Bot: s, System: s, Error: s, Label: s, Muted: s, Success: s, Warning: s}
}

func (t Theme) messageStyle(kind chat.MessageType) (string, lipgloss.Style) {
	switch kind {
	case chat.TypeUser:
		return "you", t.User
	case chat.TypeSystem:
		return "system", t.System
	case chat.TypeError:
		return "error", t.Error
	default:
		return "vetbot", t.Bot
	}
}

// RenderMessage formats one transcript entry as "label> content", indenting
// continuation lines under the content.
func (t Theme) RenderMessage(m chat.Message) string {
	label, style := t.messageStyle(m.Type)
	prefix := label + "> "
	lines := strings.Split(m.Content, "\n")
	for i := range lines {
		lines[i] = style.Render(lines[i])
		if i > 0 {
			lines[i] = strings.Repeat(" ", len(prefix)) + lines[i]
		}
	}
	return t.Label.Render(prefix) + strings.Join(lines, "\n")
}
