// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/morganforge/druva-tui/internal/config"
	"github.com/morganforge/druva-tui/internal/engine"
	"github.com/morganforge/druva-tui/internal/export"
	"github.com/morganforge/druva-tui/internal/groq"
	"github.com/morganforge/druva-tui/internal/storage"
	"github.com/morganforge/druva-tui/internal/store"
)

// Version is stamped by the build; "dev" otherwise.
var Version = "dev"

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes a CLI command and returns the process exit code.
func Run(args []string) int {
	parser := NewArgParser(args)

	var err error
	switch parser.Subcommand() {
	case "", "chat":
		err = runChat(parser)
	case "list":
		err = runList(parser)
	case "export":
		err = runExport(parser)
	case "config":
		err = runConfig(parser)
	case "version":
		fmt.Printf("druva %s\n", Version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", parser.Subcommand())
		printUsage()
		return 1
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("Error:"), err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Print(`druva - streaming chat client for Groq

Usage:
  druva [command] [flags]

Commands:
  chat      Interactive chat (default)
  list      List saved conversations
  export    Export a conversation (--format md|json, --id ID, --out DIR)
  config    Show the resolved configuration
  version   Print the version
  help      Show this help

Flags:
  --model NAME    Override the completion model
  --config PATH   Use an explicit config file
`)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig resolves configuration, honoring an explicit --config path.
func loadConfig(parser *ArgParser) (*config.Config, error) {
	if path := parser.Flag("config"); path != "" {
		cfg, err := config.LoadFromPath(path)
		if err != nil {
			return nil, err
		}
		config.SetGlobal(cfg)
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// OpenKV opens the persistence backend the configuration selects.
func OpenKV(cfg *config.Config) (storage.KV, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		path := cfg.Storage.Path
		if path == "" {
			dir, err := config.ConfigDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "state.db")
		}
		return storage.NewSQLiteKV(path)
	default:
		if cfg.Storage.Path != "" {
			return storage.NewFileKVWithDir(cfg.Storage.Path)
		}
		return storage.NewFileKV()
	}
}

// BuildEngine wires the store, stream client, and engine from config.
func BuildEngine(cfg *config.Config) (*store.Store, *engine.Engine, storage.KV, error) {
	kv, err := OpenKV(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	st := store.New(kv)
	client := groq.NewClient(cfg.Groq)
	eng := engine.New(st, client, time.Duration(cfg.Stream.TypingDelayMs)*time.Millisecond)
	return st, eng, kv, nil
}

// =============================================================================
// LIST COMMAND
// =============================================================================

func runList(parser *ArgParser) error {
	cfg, err := loadConfig(parser)
	if err != nil {
		return err
	}
	kv, err := OpenKV(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	st := store.New(kv)
	active := st.ActiveID()

	for i, conv := range st.Conversations() {
		marker := " "
		if conv.ID == active {
			marker = activeStyle.Render("*")
		}
		fmt.Printf("%s %2d. %s  %s\n",
			marker, i+1,
			titleStyle.Render(conv.Title),
			mutedStyle.Render(fmt.Sprintf("(%d messages, %s)", len(conv.Messages), conv.ID)),
		)
	}
	return nil
}

// =============================================================================
// EXPORT COMMAND
// =============================================================================

func runExport(parser *ArgParser) error {
	cfg, err := loadConfig(parser)
	if err != nil {
		return err
	}
	kv, err := OpenKV(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	st := store.New(kv)
	conv := st.Active()
	if id := parser.Flag("id"); id != "" {
		conv, err = st.Conversation(id)
		if err != nil {
			return err
		}
	}

	opts := export.DefaultOptions()
	if dir := parser.Flag("out", "o"); dir != "" {
		opts.OutputDir = dir
	}

	var path string
	switch format := parser.Flag("format", "f"); format {
	case "", "md", "markdown":
		path, err = export.Markdown(conv, opts)
	case "json":
		path, err = export.JSON(conv, opts)
	default:
		return fmt.Errorf("unknown export format %q (want md or json)", format)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Exported to %s\n", path)
	return nil
}

// =============================================================================
// CONFIG COMMAND
// =============================================================================

func runConfig(parser *ArgParser) error {
	cfg, err := loadConfig(parser)
	if err != nil {
		return err
	}

	key := cfg.Groq.APIKey
	if key == "" {
		key = mutedStyle.Render("(not set)")
	} else {
		key = maskKey(key)
	}

	fmt.Printf("%s\n", titleStyle.Render("Groq"))
	fmt.Printf("  api_key:     %s\n", key)
	fmt.Printf("  base_url:    %s\n", cfg.Groq.BaseURL)
	fmt.Printf("  model:       %s\n", cfg.Groq.Model)
	fmt.Printf("  temperature: %g\n", cfg.Groq.Temperature)
	fmt.Printf("%s\n", titleStyle.Render("Storage"))
	fmt.Printf("  backend:     %s\n", cfg.Storage.Backend)
	if cfg.Storage.Path != "" {
		fmt.Printf("  path:        %s\n", cfg.Storage.Path)
	}
	fmt.Printf("%s\n", titleStyle.Render("Stream"))
	fmt.Printf("  typing_delay_ms: %d\n", cfg.Stream.TypingDelayMs)
	fmt.Printf("%s\n", titleStyle.Render("UI"))
	fmt.Printf("  theme:       %s\n", cfg.UI.Theme)
	return nil
}

// maskKey hides all but the edges of a credential.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
