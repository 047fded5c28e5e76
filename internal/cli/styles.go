// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/druva-tui/internal/ui/styles"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(styles.Purple)

	mutedStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	activeStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)
)
