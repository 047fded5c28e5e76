// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components the chat view renders with. It detects
// the terminal's color capability once at startup.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	RoleLabel       lipgloss.Style
	Timestamp       lipgloss.Style

	InputPrompt lipgloss.Style
	EditBanner  lipgloss.Style

	StatusBar    lipgloss.Style
	Generating   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme builds a theme for the current terminal. mode is "auto", "dark",
// or "light"; auto follows the terminal background.
func NewTheme(mode string) *Theme {
	isDark := termenv.HasDarkBackground()
	switch mode {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	}
	lipgloss.SetHasDarkBackground(isDark)

	return &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),

		Header: lipgloss.NewStyle().
			Background(SurfaceDim).
			Padding(0, 1),
		HeaderTitle: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),

		UserBubble: lipgloss.NewStyle().
			Foreground(UserBubbleFg).
			Background(UserBubbleBg).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(UserBubbleBorder).
			Padding(0, 1),
		AssistantBubble: lipgloss.NewStyle().
			Foreground(AssistantBubbleFg).
			Background(AssistantBubbleBg).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(AssistantBubbleBorder).
			Padding(0, 1),
		RoleLabel: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Bold(true),
		Timestamp: lipgloss.NewStyle().
			Foreground(TextMuted),

		InputPrompt: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),
		EditBanner: lipgloss.NewStyle().
			Foreground(Amber).
			Bold(true),

		StatusBar: lipgloss.NewStyle().
			Background(SurfaceDim).
			Foreground(TextSecondary).
			Padding(0, 1),
		Generating: lipgloss.NewStyle().
			Foreground(Amber),
		ShortcutKey: lipgloss.NewStyle().
			Foreground(Cyan),
		ShortcutDesc: lipgloss.NewStyle().
			Foreground(TextMuted),
	}
}
