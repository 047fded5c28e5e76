// druva - A terminal chat client for the Groq API.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/morganforge/druva-tui/internal/cli"
	"github.com/morganforge/druva-tui/internal/config"
	"github.com/morganforge/druva-tui/internal/ui/chat"
	"github.com/morganforge/druva-tui/internal/ui/styles"
)

func main() {
	args := os.Args[1:]

	// Explicit commands and non-tty sessions go through the CLI.
	if len(args) > 0 || !term.IsTerminal(int(os.Stdout.Fd())) {
		os.Exit(cli.Run(args))
	}

	if err := runTUI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	config.SetGlobal(cfg)

	// Hot-reload config edits while the TUI runs. A failed reload is logged
	// by the watcher and the previous config stays in effect.
	if watcher, err := config.NewWatcher(nil); err == nil {
		if err := watcher.Watch(); err == nil {
			defer watcher.Close()
		}
	}

	st, eng, kv, err := cli.BuildEngine(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	// The TUI owns the screen; route stdlib log output to a file.
	if logFile, err := openLogFile(); err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	theme := styles.NewTheme(cfg.UI.Theme)
	program := tea.NewProgram(
		chat.New(st, eng, theme),
		tea.WithAltScreen(),
	)
	_, err = program.Run()
	return err
}

func openLogFile() (*os.File, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureConfigDir(); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "druva.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}
