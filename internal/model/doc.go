// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// A Conversation is a titled, strictly linear sequence of messages: edits and
// regenerations truncate-and-replace history, they never fork it. Timestamps
// are milliseconds since epoch to stay compatible with the persisted JSON
// format.
package model
