// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/druva-tui/internal/engine"
	"github.com/morganforge/druva-tui/internal/store"
	"github.com/morganforge/druva-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// storeChangedMsg arrives after any store mutation, including every
// streaming fold.
type storeChangedMsg struct{}

// genFinishedMsg arrives when a generation session reaches a terminal state.
type genFinishedMsg struct {
	state engine.State
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat view state.
type Model struct {
	store  *store.Store
	engine *engine.Engine
	theme  *styles.Theme
	keys   keyMap

	viewport viewport.Model
	textarea textarea.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	changes <-chan struct{}

	// editingID is the user message being rewritten, or empty. While set,
	// submitting resubmits through the engine's edit path.
	editingID string

	status string
}

// New creates the chat view over the given store and engine.
func New(st *store.Store, eng *engine.Engine, theme *styles.Theme) Model {
	ta := textarea.New()
	ta.Placeholder = "Message Druva..."
	ta.Prompt = "│ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Amber)

	return Model{
		store:    st,
		engine:   eng,
		theme:    theme,
		keys:     defaultKeyMap(),
		textarea: ta,
		spin:     sp,
		changes:  st.Subscribe(),
	}
}

// Init starts the cursor blink and the store change listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForChange(m.changes))
}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForChange blocks on the store's change channel and converts each signal
// into a message. Re-issued after every receipt so signals are never missed.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

// waitForDone delivers the session's terminal state.
func waitForDone(ch <-chan engine.State) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return genFinishedMsg{state: <-ch}
	}
}

// newRenderer builds a glamour renderer sized to the viewport.
func newRenderer(width int, isDark bool) *glamour.TermRenderer {
	style := glamour.WithStandardStyle("light")
	if isDark {
		style = glamour.WithStandardStyle("dark")
	}

	renderer, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil
	}
	return renderer
}
