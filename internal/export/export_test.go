// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/morganforge/druva-tui/internal/model"
)

func sampleConversation() *model.Conversation {
	conv := model.NewConversation()
	conv.Title = "Sample chat"
	conv.Messages = []*model.Message{
		model.NewUserMessage("What is Go?"),
		model.NewMessage(model.RoleAssistant, "A programming language."),
	}
	return conv
}

func TestMarkdownExport(t *testing.T) {
	content, err := NewMarkdownExporter(nil).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	text := string(content)
	for _, want := range []string{"# Sample chat", "### You", "### Druva", "What is Go?"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestMarkdownExportRejectsEmpty(t *testing.T) {
	if _, err := NewMarkdownExporter(nil).Export(model.NewConversation()); err == nil {
		t.Error("expected an error for a conversation with no messages")
	}
}

func TestJSONExportRoundTrips(t *testing.T) {
	conv := sampleConversation()
	content, err := NewJSONExporter().Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var decoded model.Conversation
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.ID != conv.ID || len(decoded.Messages) != 2 {
		t.Errorf("decoded conversation does not match the original")
	}
}

func TestToFileWritesAndNames(t *testing.T) {
	dir := t.TempDir()
	opts := &Options{OutputDir: dir}

	path, err := Markdown(sampleConversation(), opts)
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}

	if filepath.Ext(path) != ".md" {
		t.Errorf("extension = %q, want .md", filepath.Ext(path))
	}
	if !strings.HasPrefix(filepath.Base(path), "Sample_chat") {
		t.Errorf("filename = %q, want title-derived prefix", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a/b:c", "a-b-c"},
		{"hello world", "hello_world"},
		{"", "conversation"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
