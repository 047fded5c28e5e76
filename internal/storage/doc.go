// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local key-value store that persists
// conversation state across sessions.
//
// The conversation engine only needs load-once / save-on-change semantics
// over two well-known keys, so the interface is a minimal KV contract with
// two interchangeable backends:
//
//   - FileKV: one file per key with atomic, fsynced writes (default)
//   - SQLiteKV: a single kv table in an embedded SQLite database
//
// Both store exactly what the original web client kept in localStorage.
package storage
