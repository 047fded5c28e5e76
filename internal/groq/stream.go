// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package groq

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// =============================================================================
// STREAM INTERFACE
// =============================================================================

// Stream is a lazy sequence of text fragments from one completion request.
//
// Recv returns the next fragment, or io.EOF when the stream ends normally.
// Cancellation is a normal end, never an error. The only error Recv returns
// is a transport failure after at least one real fragment was produced; the
// caller decides how to present that (see the engine's Failed state).
type Stream interface {
	Recv() (string, error)
	Close()
}

// =============================================================================
// SSE READER
// =============================================================================

// sseReader splits a response body into server-sent events. Reads may split
// one event across chunks or deliver several events at once; the buffered
// reader keeps the unconsumed remainder between calls.
type sseReader struct {
	reader *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{reader: bufio.NewReader(r)}
}

// readEvent returns the data payload of the next event, or io.EOF at the end
// of the body. Only "data:" fields matter for this endpoint; other fields and
// comments are skipped.
func (s *sseReader) readEvent() ([]byte, error) {
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			// ReadBytes hands back any partial final line with the error.
			line = bytes.TrimRight(line, "\r\n")
			if bytes.HasPrefix(line, []byte("data:")) {
				dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
			}
			if err == io.EOF && len(dataLines) > 0 {
				// Flush a final event without a trailing blank line.
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line terminates the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Ignore event:, id:, retry: and ":" comment lines.
	}
}

// =============================================================================
// STREAM IMPLEMENTATIONS
// =============================================================================

// staticStream yields a fixed list of fragments then ends. Used for the
// failure classes that are converted to display text before or instead of
// any network read.
type staticStream struct {
	fragments []string
}

func newStaticStream(fragments ...string) *staticStream {
	return &staticStream{fragments: fragments}
}

func (s *staticStream) Recv() (string, error) {
	if len(s.fragments) == 0 {
		return "", io.EOF
	}
	next := s.fragments[0]
	s.fragments = s.fragments[1:]
	return next, nil
}

func (s *staticStream) Close() {}

// sseStream consumes a live response body.
type sseStream struct {
	ctx     context.Context
	body    io.ReadCloser
	reader  *sseReader
	yielded bool // a real fragment has been produced
	done    bool
}

func (s *sseStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		// Cancellation is silent normal termination.
		if s.ctx.Err() != nil {
			return s.finish()
		}

		data, err := s.reader.readEvent()
		if err != nil {
			if err == io.EOF || s.ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return s.finish()
			}
			if !s.yielded {
				// The request failed before producing anything the user saw;
				// surface it as an ordinary displayable fragment.
				s.done = true
				s.body.Close()
				return classifyTransport(err), nil
			}
			// Mid-stream failure after real content: the one true error path.
			s.body.Close()
			s.done = true
			return "", fmt.Errorf("stream interrupted: %w", err)
		}

		// Termination sentinel.
		if bytes.Equal(data, []byte("[DONE]")) {
			return s.finish()
		}

		// Skip frames that do not parse; a malformed frame must not abort
		// the stream.
		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			continue
		}

		if content := chunk.content(); content != "" {
			s.yielded = true
			return content, nil
		}
		if chunk.done() {
			return s.finish()
		}
	}
}

func (s *sseStream) finish() (string, error) {
	s.done = true
	s.body.Close()
	return "", io.EOF
}

func (s *sseStream) Close() {
	s.done = true
	s.body.Close()
}

// =============================================================================
// OPENING A STREAM
// =============================================================================

// OpenStream issues one streaming completion request. The caller-supplied
// history must not include the placeholder assistant message; the system
// preamble is prepended and the new user prompt appended internally.
//
// OpenStream never returns an error: every request-level failure comes back
// as a Stream that yields exactly one human-readable fragment. Cancel the
// context to abort the request; the stream then terminates silently.
func (c *Client) OpenStream(ctx context.Context, history []ChatMessage, prompt string) Stream {
	if !c.IsConfigured() {
		return newStaticStream(msgMissingKey)
	}

	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, NewUserMessage(prompt))

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      true,
		Temperature: c.temperature,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return newStaticStream(fmt.Sprintf("Something unexpected happened: %v. Let's try that again.", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return newStaticStream(classifyTransport(err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Superseded before the connection opened; nothing to show.
			return newStaticStream()
		}
		return newStaticStream(classifyTransport(err))
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		return newStaticStream(classifyStatus(resp.StatusCode, body))
	}

	return &sseStream{
		ctx:    ctx,
		body:   resp.Body,
		reader: newSSEReader(resp.Body),
	}
}
