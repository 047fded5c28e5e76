// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the druva command line interface: the interactive
// REPL used on plain terminals, plus the list, export, and config commands.
//
// Commands:
//
//	druva               Launch the TUI (or the REPL without a tty)
//	druva chat          Interactive REPL chat
//	druva list          List saved conversations
//	druva export        Export a conversation to Markdown or JSON
//	druva config        Show the resolved configuration
//	druva version       Print the version
package cli
