// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine drives streamed assistant responses. It is the only
// component allowed to start a generation: it assembles the request history,
// appends the placeholder assistant message, folds incoming fragments into
// the conversation store, and owns cancellation. At most one generation is
// live at a time, process-wide; starting a new one supersedes the old.
package engine
