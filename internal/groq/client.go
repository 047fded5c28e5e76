// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package groq

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/morganforge/druva-tui/internal/config"
)

// Configuration constants for the Groq API.
const (
	// DefaultBaseURL is the base URL for Groq's OpenAI-compatible API.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "llama-3.3-70b-versatile"

	// DefaultTemperature is the sampling temperature.
	DefaultTemperature = 0.7
)

// systemPrompt is the fixed preamble prepended to every request. It is not
// part of the caller-supplied history.
const systemPrompt = `You are Druva, a warm, friendly, and emotionally intelligent AI assistant.

Respond with genuine warmth and empathy, like a close friend. Use casual,
conversational language while staying helpful and concise. Celebrate the
user's successes, show understanding when they are frustrated, and ask
follow-up questions when you sense genuine interest. When giving code, always
use proper markdown code blocks with language tags. When you cannot do
something, say so plainly and offer an alternative.`

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// sharedStreamingClient serves all streaming requests. It carries no overall
// timeout: a streaming response lives as long as its context.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Error variables for common failure classes.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("Groq API key not configured")

	// ErrAuthFailed indicates authentication failed.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage represents a single message in the request payload.
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// chatRequest is the body of a streaming completion request.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
}

// streamChunk represents a single decoded SSE frame.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// content returns the text delta of the first choice.
func (c *streamChunk) content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// done returns true when the frame carries a finish reason.
func (c *streamChunk) done() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != ""
}

// apiErrorResponse represents an error response body from the API.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Groq completions endpoint.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewClient creates a client from the Groq section of the configuration.
// An empty API key is allowed: the first Stream call will produce a
// configuration-missing fragment instead of touching the network.
func NewClient(cfg config.GroqConfig) *Client {
	c := &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient:  sharedStreamingClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.temperature == 0 {
		c.temperature = DefaultTemperature
	}
	return c
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// =============================================================================
// FAILURE CLASSIFICATION
// =============================================================================

// User-facing failure messages, one per failure class. Remote failures are
// surfaced as display text rather than errors so the upper layers have no
// separate error branch for the common case.
const (
	msgMissingKey = "Error: GROQ_API_KEY is not set. Add it to ~/.druva/config.toml " +
		"or export it in your environment, then try again."
	msgAuthFailed = "There's a problem with the configured API key. " +
		"Please check your Groq credentials and try again."
	msgRateLimited = "We're going a bit too fast - the API rate limit was reached. " +
		"Give it a moment and try again."
	msgConnectivity = "I'm having trouble reaching the server. " +
		"Check your internet connection and try again."
)

// classifyStatus converts a non-success HTTP response into one displayable
// fragment: authentication, rate-limit, or unknown.
func classifyStatus(statusCode int, body []byte) string {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return msgAuthFailed
	case http.StatusTooManyRequests:
		return msgRateLimited
	}

	detail := fmt.Sprintf("HTTP %d", statusCode)
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		detail = apiErr.Error.Message
	}
	return fmt.Sprintf("Something unexpected happened: %s. Let's try that again.", detail)
}

// classifyTransport converts a connection-level failure into the
// connectivity fragment.
func classifyTransport(err error) string {
	_ = err // the cause is not actionable for the user beyond "check the network"
	return msgConnectivity
}
