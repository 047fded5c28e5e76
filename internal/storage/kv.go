// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import "errors"

// Well-known keys. These mirror the keys the original web client used in
// localStorage, so an exported conversations blob stays recognizable.
const (
	// KeyConversations holds the JSON array of all conversations.
	KeyConversations = "druva-conversations"

	// KeyActiveConversation holds the JSON string of the active conversation ID.
	KeyActiveConversation = "druva-active-conversation"
)

// ErrKeyNotFound indicates the key has no stored value.
var ErrKeyNotFound = errors.New("key not found")

// KV is the persistence contract the conversation store depends on.
//
// Implementations must make Set durable before returning; the engine treats
// every mutation as saved once Set returns.
type KV interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Set durably stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Close releases any underlying resources.
	Close() error
}
