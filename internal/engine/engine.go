// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/morganforge/druva-tui/internal/groq"
	"github.com/morganforge/druva-tui/internal/model"
	"github.com/morganforge/druva-tui/internal/store"
)

// =============================================================================
// STATES AND ERRORS
// =============================================================================

// State is the lifecycle of one generation session.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// failedMessage replaces the assistant content wholesale when the stream
// raises a real error after it already produced content. Request-level
// failures never reach this path; the stream client converts those to
// display text itself.
const failedMessage = "Sorry, I encountered an error."

var (
	// ErrEmptyMessage is returned when a send or edit carries only whitespace.
	ErrEmptyMessage = errors.New("message is empty")
)

// =============================================================================
// STREAM CLIENT
// =============================================================================

// StreamClient opens one streamed completion. *groq.Client satisfies it;
// tests substitute fakes.
type StreamClient interface {
	OpenStream(ctx context.Context, history []groq.ChatMessage, prompt string) groq.Stream
}

// =============================================================================
// ENGINE
// =============================================================================

// session is the transient identity of one live generation: the placeholder
// it is filling plus the cancellation handle for its request. The engine
// holds no conversation data of its own.
type session struct {
	conversationID string
	messageID      string
	cancel         context.CancelFunc
	state          State
}

// Engine enforces the single-generation invariant and performs the fragment
// fold. Entry points return a channel that delivers the session's terminal
// state; a nil channel means no session was started.
type Engine struct {
	mu      sync.Mutex
	store   *store.Store
	client  StreamClient
	current *session

	// typingDelay paces fragment folds so responses render at a readable
	// speed. Zero disables pacing.
	typingDelay time.Duration
}

// New creates an engine over the given store and stream client.
func New(st *store.Store, client StreamClient, typingDelay time.Duration) *Engine {
	return &Engine{
		store:       st,
		client:      client,
		typingDelay: typingDelay,
	}
}

// Generating reports whether a session is in Requesting or Streaming.
func (e *Engine) Generating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// State returns the live session's state, or StateIdle.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return StateIdle
	}
	return e.current.state
}

// Stop cancels the live generation, if any. The assistant message keeps
// whatever content had accumulated; no error text is appended.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelCurrentLocked()
}

// cancelCurrentLocked triggers the live session's cancellation handle. The
// session goroutine observes the cancelled context and finishes on its own;
// the handle is released there.
func (e *Engine) cancelCurrentLocked() {
	if e.current != nil && e.current.cancel != nil {
		e.current.cancel()
	}
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// Send appends a new user message to the active conversation and streams the
// assistant's answer into a fresh placeholder. A prior live session is
// cancelled before the new request starts.
func (e *Engine) Send(text string) (<-chan State, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	conv := e.store.Active()
	history := chatHistory(conv.Messages)

	userMsg := model.NewUserMessage(text)
	if err := e.store.AppendMessage(conv.ID, userMsg); err != nil {
		return nil, err
	}

	return e.start(conv.ID, history, text), nil
}

// EditAndResubmit rewrites one user message and regenerates from it,
// discarding every later message. If the trimmed new text equals the trimmed
// original, nothing changes and no session starts.
func (e *Engine) EditAndResubmit(messageID, newText string) (<-chan State, error) {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return nil, ErrEmptyMessage
	}

	conv := e.store.Active()
	msg := conv.MessageByID(messageID)
	if msg == nil {
		return nil, store.ErrMessageNotFound
	}
	if store.TrimEqual(msg.Content, newText) {
		return nil, nil
	}

	if err := e.store.TruncateAfter(conv.ID, messageID); err != nil {
		return nil, err
	}
	if err := e.store.UpdateMessageContent(conv.ID, messageID, newText); err != nil {
		return nil, err
	}

	history := chatHistory(conv.Messages[:conv.IndexOf(messageID)])
	return e.start(conv.ID, history, newText), nil
}

// Regenerate streams a fresh answer to an earlier user message, discarding
// every message after it. An assistant id resolves to its preceding user
// message; if no valid user message exists the call is a silent no-op.
func (e *Engine) Regenerate(messageID string) (<-chan State, error) {
	conv := e.store.Active()

	i := conv.IndexOf(messageID)
	if i < 0 {
		return nil, store.ErrMessageNotFound
	}
	if conv.Messages[i].Role == model.RoleAssistant {
		i--
	}
	if i < 0 || conv.Messages[i].Role != model.RoleUser {
		return nil, nil
	}
	userMsg := conv.Messages[i]

	if err := e.store.TruncateAfter(conv.ID, userMsg.ID); err != nil {
		return nil, err
	}

	history := chatHistory(conv.Messages[:i])
	return e.start(conv.ID, history, userMsg.Content), nil
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// start supersedes any live session, appends the placeholder assistant
// message, and launches the streaming fold. The placeholder exists before
// the first fragment arrives so collaborators always have an anchor.
func (e *Engine) start(conversationID string, history []groq.ChatMessage, prompt string) <-chan State {
	ctx, cancel := context.WithCancel(context.Background())

	placeholder := model.NewAssistantMessage()
	sess := &session{
		conversationID: conversationID,
		messageID:      placeholder.ID,
		cancel:         cancel,
		state:          StateRequesting,
	}

	e.mu.Lock()
	e.cancelCurrentLocked()
	e.current = sess
	e.mu.Unlock()

	if err := e.store.AppendMessage(conversationID, placeholder); err != nil {
		// The conversation vanished between snapshot and append. Nothing to
		// stream into; release the slot.
		e.finish(sess, StateFailed)
		done := make(chan State, 1)
		done <- StateFailed
		close(done)
		return done
	}

	done := make(chan State, 1)
	go e.run(ctx, sess, history, prompt, done)
	return done
}

// run drives one stream to a terminal state. Fragments fold strictly in
// arrival order; the store receives the full accumulator each time, never
// the bare delta.
func (e *Engine) run(ctx context.Context, sess *session, history []groq.ChatMessage, prompt string, done chan State) {
	stream := e.client.OpenStream(ctx, history, prompt)
	defer stream.Close()

	e.setState(sess, StateStreaming)

	var limiter *rate.Limiter
	if e.typingDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(e.typingDelay), 1)
	}

	var acc strings.Builder
	terminal := StateCompleted

	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A failure after real content: replace the message wholesale.
			e.store.UpdateMessageContent(sess.conversationID, sess.messageID, failedMessage)
			terminal = StateFailed
			break
		}

		acc.WriteString(fragment)
		e.store.UpdateMessageContent(sess.conversationID, sess.messageID, acc.String())

		if limiter != nil {
			limiter.Wait(ctx)
		}
	}

	if terminal == StateCompleted && ctx.Err() != nil {
		// Cancellation ends the stream silently; partial content stands.
		terminal = StateCancelled
	}

	e.finish(sess, terminal)
	done <- terminal
	close(done)
}

func (e *Engine) setState(sess *session, state State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess.state = state
}

// finish records the terminal state and releases the generation slot if the
// session still owns it. A superseded session must not clear its successor.
func (e *Engine) finish(sess *session, state State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess.state = state
	sess.cancel()
	if e.current == sess {
		e.current = nil
	}
}

// chatHistory converts store messages to wire messages.
func chatHistory(messages []*model.Message) []groq.ChatMessage {
	history := make([]groq.ChatMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, groq.ChatMessage{
			Role:    m.Role.String(),
			Content: m.Content,
		})
	}
	return history
}
