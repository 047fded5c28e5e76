// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/morganforge/druva-tui/internal/model"
)

// View renders the full chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var sb strings.Builder
	sb.WriteString(m.headerView())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.inputView())
	sb.WriteString("\n")
	sb.WriteString(m.statusView())
	return sb.String()
}

// headerView shows the active conversation title and the list position.
func (m Model) headerView() string {
	convs := m.store.Conversations()
	active := m.store.ActiveID()

	position := ""
	for i, c := range convs {
		if c.ID == active {
			position = fmt.Sprintf(" [%d/%d]", i+1, len(convs))
			break
		}
	}

	title := m.store.Active().Title
	maxTitle := m.width - runewidth.StringWidth(position) - 10
	if maxTitle > 0 {
		title = runewidth.Truncate(title, maxTitle, "…")
	}

	line := m.theme.HeaderTitle.Render("druva ")
	line += m.theme.Timestamp.Render("· ")
	line += title + m.theme.Timestamp.Render(position)
	return m.theme.Header.Width(m.width).Render(line)
}

// inputView shows the composer, with an edit banner while rewriting a
// message.
func (m Model) inputView() string {
	if m.editingID == "" {
		return m.textarea.View()
	}
	banner := m.theme.EditBanner.Render("Editing message (esc to cancel)")
	return banner + "\n" + m.textarea.View()
}

// statusView shows either the generation indicator or the shortcut hints,
// plus any transient status text.
func (m Model) statusView() string {
	var left string
	if m.engine.Generating() {
		left = m.spin.View() + m.theme.Generating.Render(" generating… esc to stop")
	} else if m.status != "" {
		left = m.status
	} else {
		left = m.shortcuts()
	}
	return m.theme.StatusBar.Width(m.width).Render(left)
}

func (m Model) shortcuts() string {
	hints := []struct{ key, desc string }{
		{"enter", "send"},
		{"ctrl+n", "new"},
		{"ctrl+o", "switch"},
		{"ctrl+r", "regen"},
		{"ctrl+e", "edit"},
		{"ctrl+s", "export"},
		{"ctrl+c", "quit"},
	}

	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, m.theme.ShortcutKey.Render(h.key)+" "+m.theme.ShortcutDesc.Render(h.desc))
	}
	return strings.Join(parts, "  ")
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// renderConversation renders every message as a labelled bubble. Assistant
// content goes through the Markdown renderer; user content is shown verbatim.
func (m Model) renderConversation(conv *model.Conversation) string {
	if conv.IsEmpty() {
		return m.theme.Timestamp.Render("\n  Start a new conversation by typing below.")
	}

	width := contentWidth(m.width)
	var sb strings.Builder

	for i, msg := range conv.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}

		label := m.theme.RoleLabel.Render(msg.Role.DisplayName())
		stamp := m.theme.Timestamp.Render(msg.Time().Format("15:04"))
		sb.WriteString(label + " " + stamp + "\n")

		content := msg.Content
		if content == "" && msg.Role == model.RoleAssistant {
			content = "…"
		}

		switch msg.Role {
		case model.RoleUser:
			bubble := m.theme.UserBubble.MaxWidth(width)
			sb.WriteString(bubble.Render(wrap(content, width-4)))
		default:
			sb.WriteString(m.renderMarkdown(content, width))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderMarkdown renders assistant content through glamour, falling back to
// plain wrapped text when the renderer is unavailable.
func (m Model) renderMarkdown(content string, width int) string {
	if m.renderer != nil {
		if out, err := m.renderer.Render(content); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	bubble := m.theme.AssistantBubble.MaxWidth(width)
	return bubble.Render(wrap(content, width-4))
}

// wrap soft-wraps text to the given display width.
func wrap(s string, width int) string {
	if width < 10 {
		width = 10
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}
