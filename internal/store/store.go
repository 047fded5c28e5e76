// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/morganforge/druva-tui/internal/model"
	"github.com/morganforge/druva-tui/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrConversationNotFound is returned when an operation names an unknown
	// conversation id. Callers driving the UI may ignore it; ids shown on
	// screen always exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrMessageNotFound is returned when an operation names an unknown
	// message id within an existing conversation.
	ErrMessageNotFound = errors.New("message not found")
)

// =============================================================================
// STORE
// =============================================================================

// Store is the single source of truth for conversations. All mutations are
// serialized behind one mutex; every mutation persists the full conversation
// set and the active pointer, then notifies subscribers.
//
// RELIABILITY: reads return deep copies, so a caller holding a snapshot never
// observes a later mutation mid-render.
type Store struct {
	mu sync.Mutex
	kv storage.KV

	conversations []*model.Conversation
	activeID      string

	subscribers []chan struct{}
}

// New creates a Store backed by kv and loads any persisted state.
//
// If the saved conversation list is absent, empty, or unreadable, the store
// starts with exactly one fresh conversation. A bad saved payload is logged
// and treated as no saved state.
func New(kv storage.KV) *Store {
	s := &Store{kv: kv}
	s.load()
	return s
}

func (s *Store) load() {
	raw, err := s.kv.Get(storage.KeyConversations)
	if err == nil {
		var convs []*model.Conversation
		if jsonErr := json.Unmarshal(raw, &convs); jsonErr != nil {
			log.Printf("store: discarding unreadable conversation state: %v", jsonErr)
		} else {
			s.conversations = convs
		}
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		log.Printf("store: loading conversations: %v", err)
	}

	if len(s.conversations) == 0 {
		s.conversations = []*model.Conversation{model.NewConversation()}
		s.activeID = s.conversations[0].ID
		s.persistLocked()
		return
	}

	// Restore the active pointer; fall back to the front of the list when
	// the saved id no longer exists.
	if raw, err := s.kv.Get(storage.KeyActiveConversation); err == nil {
		var id string
		if json.Unmarshal(raw, &id) == nil && s.indexOfLocked(id) >= 0 {
			s.activeID = id
		}
	}
	if s.activeID == "" {
		s.activeID = s.conversations[0].ID
	}
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe returns a channel that receives a signal after every mutation.
// The channel is buffered; a slow consumer coalesces bursts into one signal.
func (s *Store) Subscribe() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{}, 1)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

func (s *Store) notifyLocked() {
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// =============================================================================
// READS
// =============================================================================

// Conversations returns a deep copy of the conversation list, newest first.
func (s *Store) Conversations() []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = c.Clone()
	}
	return out
}

// ActiveID returns the id of the active conversation.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns a deep copy of the active conversation.
func (s *Store) Active() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations[s.indexOfLocked(s.activeID)].Clone()
}

// Conversation returns a deep copy of the conversation with the given id.
func (s *Store) Conversation(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return nil, ErrConversationNotFound
	}
	return s.conversations[i].Clone(), nil
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// NewConversation creates an empty conversation, inserts it at the front of
// the list, and makes it active. Returns a copy of the new conversation.
func (s *Store) NewConversation() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := model.NewConversation()
	s.conversations = append([]*model.Conversation{conv}, s.conversations...)
	s.activeID = conv.ID

	s.persistLocked()
	s.notifyLocked()
	return conv.Clone()
}

// Select makes the conversation with the given id active.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfLocked(id) < 0 {
		return ErrConversationNotFound
	}
	s.activeID = id

	s.persistLocked()
	s.notifyLocked()
	return nil
}

// Delete removes the conversation with the given id. If it was active, the
// front of the remaining list becomes active. Deleting the last conversation
// clears the persisted keys and immediately creates a fresh conversation, so
// at least one conversation always exists.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return ErrConversationNotFound
	}
	s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)

	if len(s.conversations) == 0 {
		// An empty list is never persisted; the keys are removed outright
		// and the replacement conversation re-creates them.
		s.removeKeys()
		conv := model.NewConversation()
		s.conversations = []*model.Conversation{conv}
		s.activeID = conv.ID
	} else if s.activeID == id {
		s.activeID = s.conversations[0].ID
	}

	s.persistLocked()
	s.notifyLocked()
	return nil
}

// =============================================================================
// MESSAGE MUTATIONS
// =============================================================================

// AppendMessage appends a copy of msg to the conversation's message list.
// The first user message also sets the conversation title; the title is
// never recomputed after that.
func (s *Store) AppendMessage(conversationID string, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(conversationID)
	if i < 0 {
		return ErrConversationNotFound
	}
	conv := s.conversations[i]

	if msg.Role == model.RoleUser && !s.hasUserMessageLocked(conv) {
		conv.Title = model.TitleFromContent(msg.Content)
	}
	conv.Messages = append(conv.Messages, msg.Clone())

	s.persistLocked()
	s.notifyLocked()
	return nil
}

// UpdateMessageContent replaces one message's content wholesale and
// refreshes its timestamp. Streaming folds call this with the accumulated
// text on every fragment, so the operation is idempotent by replacement.
func (s *Store) UpdateMessageContent(conversationID, messageID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(conversationID)
	if i < 0 {
		return ErrConversationNotFound
	}
	msg := s.conversations[i].MessageByID(messageID)
	if msg == nil {
		return ErrMessageNotFound
	}

	msg.Content = content
	msg.Timestamp = model.NowMillis()

	s.persistLocked()
	s.notifyLocked()
	return nil
}

// TruncateAfter removes every message after the given message, keeping the
// message itself. Edit and regenerate flows use this to discard superseded
// answers; history stays a single linear sequence.
func (s *Store) TruncateAfter(conversationID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(conversationID)
	if i < 0 {
		return ErrConversationNotFound
	}
	conv := s.conversations[i]

	j := conv.IndexOf(messageID)
	if j < 0 {
		return ErrMessageNotFound
	}
	conv.Messages = conv.Messages[:j+1]

	s.persistLocked()
	s.notifyLocked()
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) indexOfLocked(id string) int {
	for i, c := range s.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) hasUserMessageLocked(conv *model.Conversation) bool {
	for _, m := range conv.Messages {
		if m.Role == model.RoleUser {
			return true
		}
	}
	return false
}

// TrimEqual reports whether two message bodies are identical after trimming
// surrounding whitespace. Used to decide whether an edit changed anything.
func TrimEqual(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persistLocked writes both keys. Persistence failures do not abort the
// mutation; the in-memory state is authoritative and the failure is logged.
func (s *Store) persistLocked() {
	raw, err := json.Marshal(s.conversations)
	if err != nil {
		log.Printf("store: encoding conversations: %v", err)
		return
	}
	if err := s.kv.Set(storage.KeyConversations, raw); err != nil {
		log.Printf("store: saving conversations: %v", err)
	}

	active, _ := json.Marshal(s.activeID)
	if err := s.kv.Set(storage.KeyActiveConversation, active); err != nil {
		log.Printf("store: saving active conversation: %v", err)
	}
}

func (s *Store) removeKeys() {
	if err := s.kv.Delete(storage.KeyConversations); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		log.Printf("store: clearing conversations: %v", err)
	}
	if err := s.kv.Delete(storage.KeyActiveConversation); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		log.Printf("store: clearing active conversation: %v", err)
	}
}
