// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive REPL chat for plain terminals.
//
// Interactive commands:
//   /new              Start a new conversation
//   /list             List conversations
//   /switch N         Switch to conversation N (from /list)
//   /delete           Delete the current conversation
//   /regen            Regenerate the last answer
//   /edit             Edit the last question and resubmit
//   /export [format]  Export the conversation (md or json)
//   /help             Show commands
//   /quit             Exit
//   Ctrl+C            Stop the current generation
//   Ctrl+D            Exit

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/morganforge/druva-tui/internal/config"
	"github.com/morganforge/druva-tui/internal/engine"
	"github.com/morganforge/druva-tui/internal/export"
	"github.com/morganforge/druva-tui/internal/model"
	"github.com/morganforge/druva-tui/internal/store"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI wraps liner with persistent input history.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with history loaded from the config dir.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.loadHistory()
	return cli
}

func (c *ChatCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// ReadInputWithSuggestion reads a line pre-filled with existing text.
func (c *ChatCLI) ReadInputWithSuggestion(prompt, text string) (string, error) {
	return c.line.PromptWithSuggestion(prompt, text, len(text))
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession holds the REPL's collaborators.
type chatSession struct {
	store   *store.Store
	engine  *engine.Engine
	changes <-chan struct{}
	input   *ChatCLI
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

func runChat(parser *ArgParser) error {
	cfg, err := loadConfig(parser)
	if err != nil {
		return err
	}
	if m := parser.Flag("model", "m"); m != "" {
		cfg.Groq.Model = m
	}

	st, eng, kv, err := BuildEngine(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	sess := &chatSession{
		store:   st,
		engine:  eng,
		changes: st.Subscribe(),
		input:   NewChatCLI(),
	}
	defer sess.input.Close()

	printWelcome(sess)

	// First Ctrl+C stops the in-flight generation; at the prompt liner
	// converts it to ErrPromptAborted instead.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			sess.engine.Stop()
		}
	}()

	for {
		input, err := sess.input.ReadInput(promptStyle.Render("druva> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or a closed terminal.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := sess.handleSlashCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := sess.send(input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}
}

func printWelcome(sess *chatSession) {
	fmt.Println(titleStyle.Render("druva") + mutedStyle.Render(" - chat with Groq"))
	conv := sess.store.Active()
	if !conv.IsEmpty() {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("Resuming %q (%d messages). /help for commands.",
			conv.Title, len(conv.Messages))))
	} else {
		fmt.Println(mutedStyle.Render("Type a message to start, /help for commands."))
	}
	fmt.Println()
}

// =============================================================================
// STREAM PRINTING
// =============================================================================

// send starts a generation and prints fragments as they fold into the store.
func (s *chatSession) send(input string) error {
	done, err := s.engine.Send(input)
	if err != nil {
		return err
	}
	s.printStream(done)
	return nil
}

// printStream follows the live assistant message by diffing its content on
// every store change signal, writing only the unseen suffix.
func (s *chatSession) printStream(done <-chan engine.State) {
	fmt.Print(assistantStyle.Render("Druva: "))

	printed := 0
	flush := func() {
		content := s.liveContent()
		if len(content) > printed {
			fmt.Print(content[printed:])
			printed = len(content)
		}
	}

	for {
		select {
		case <-s.changes:
			flush()
		case state := <-done:
			flush()
			fmt.Println()
			if state == engine.StateCancelled {
				fmt.Println(warningStyle.Render("[stopped]"))
			}
			fmt.Println()
			return
		}
	}
}

// liveContent returns the trailing assistant message's content.
func (s *chatSession) liveContent() string {
	last := s.store.Active().LastMessage()
	if last == nil || last.Role != model.RoleAssistant {
		return ""
	}
	return last.Content
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand executes one command. The bool result is false when the
// REPL should exit.
func (s *chatSession) handleSlashCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch cmd {
	case "/help", "/h":
		fmt.Println(mutedStyle.Render(`/new       start a new conversation
/list      list conversations
/switch N  switch to conversation N
/delete    delete the current conversation
/regen     regenerate the last answer
/edit      edit the last question and resubmit
/export    export the conversation (md or json)
/quit      exit`))
		return true, nil

	case "/quit", "/q":
		return false, nil

	case "/new", "/n":
		conv := s.store.NewConversation()
		fmt.Println(mutedStyle.Render("Started " + conv.Title))
		return true, nil

	case "/list", "/l":
		active := s.store.ActiveID()
		for i, conv := range s.store.Conversations() {
			marker := "  "
			if conv.ID == active {
				marker = activeStyle.Render("* ")
			}
			fmt.Printf("%s%2d. %s %s\n", marker, i+1, conv.Title,
				mutedStyle.Render(fmt.Sprintf("(%d messages)", len(conv.Messages))))
		}
		return true, nil

	case "/switch", "/s":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return true, fmt.Errorf("usage: /switch N")
		}
		convs := s.store.Conversations()
		if n < 1 || n > len(convs) {
			return true, fmt.Errorf("no conversation %d", n)
		}
		if err := s.store.Select(convs[n-1].ID); err != nil {
			return true, err
		}
		fmt.Println(mutedStyle.Render("Switched to " + convs[n-1].Title))
		return true, nil

	case "/delete", "/d":
		title := s.store.Active().Title
		if err := s.store.Delete(s.store.ActiveID()); err != nil {
			return true, err
		}
		fmt.Println(mutedStyle.Render("Deleted " + title))
		return true, nil

	case "/regen", "/r":
		last := s.store.Active().LastMessage()
		if last == nil {
			return true, fmt.Errorf("nothing to regenerate")
		}
		done, err := s.engine.Regenerate(last.ID)
		if err != nil {
			return true, err
		}
		if done == nil {
			return true, fmt.Errorf("no user message to regenerate from")
		}
		s.printStream(done)
		return true, nil

	case "/edit", "/e":
		return true, s.editLast()

	case "/export":
		conv := s.store.Active()
		opts := export.DefaultOptions()
		var path string
		var err error
		if arg == "json" {
			path, err = export.JSON(conv, opts)
		} else {
			path, err = export.Markdown(conv, opts)
		}
		if err != nil {
			return true, err
		}
		fmt.Println(mutedStyle.Render("Exported to " + path))
		return true, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// editLast re-prompts with the last user message for rewriting.
func (s *chatSession) editLast() error {
	conv := s.store.Active()
	var target *model.Message
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == model.RoleUser {
			target = conv.Messages[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no user message to edit")
	}

	newText, err := s.input.ReadInputWithSuggestion(promptStyle.Render("edit> "), target.Content)
	if err != nil {
		// Aborted edit; leave everything as it was.
		fmt.Println()
		return nil
	}

	done, err := s.engine.EditAndResubmit(target.ID, newText)
	if err != nil {
		return err
	}
	if done == nil {
		fmt.Println(mutedStyle.Render("Unchanged."))
		return nil
	}
	s.printStream(done)
	return nil
}
