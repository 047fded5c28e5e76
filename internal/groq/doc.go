// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package groq implements the streaming client for Groq's OpenAI-compatible
// chat completions endpoint.
//
// The client exposes one operation: open a cancellable streaming request and
// consume it through a pull interface (Recv returns the next text fragment or
// io.EOF). Request-level failures never surface as errors; they are converted
// at this lowest layer into a single human-readable fragment so callers need
// no separate error channel to show something to the user. The only error
// Recv can return is a transport failure after real content has already been
// produced, which the generation engine handles separately.
package groq
