// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory conversation set and the active
// conversation pointer, and persists both through a key-value backend on
// every mutation. It is the single owner of conversation data; readers get
// deep copies and never alias internal state.
package store
