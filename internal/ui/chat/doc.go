// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat view for the druva TUI.
//
// The view is a thin collaborator over the conversation store and the
// generation engine: it renders store snapshots and translates key presses
// into engine calls. Store change signals and session terminal states arrive
// as Bubble Tea messages, so all state handling stays inside Update.
package chat
