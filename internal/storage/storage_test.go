// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// backends returns every KV implementation under test.
func backends(t *testing.T) map[string]KV {
	t.Helper()

	fileKV, err := NewFileKVWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKVWithDir failed: %v", err)
	}

	sqliteKV, err := NewSQLiteKV(filepath.Join(t.TempDir(), "druva.db"))
	if err != nil {
		t.Fatalf("NewSQLiteKV failed: %v", err)
	}
	t.Cleanup(func() { sqliteKV.Close() })

	return map[string]KV{"file": fileKV, "sqlite": sqliteKV}
}

func TestKVSetGetDelete(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := kv.Get(KeyConversations); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("Get on empty store: err = %v, want ErrKeyNotFound", err)
			}

			if err := kv.Set(KeyConversations, []byte(`[{"id":"chat-1"}]`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := kv.Set(KeyActiveConversation, []byte(`"chat-1"`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			got, err := kv.Get(KeyConversations)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(got) != `[{"id":"chat-1"}]` {
				t.Errorf("Get = %q", got)
			}

			// Overwrite replaces.
			if err := kv.Set(KeyActiveConversation, []byte(`"chat-2"`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got, _ = kv.Get(KeyActiveConversation)
			if string(got) != `"chat-2"` {
				t.Errorf("after overwrite Get = %q", got)
			}

			if err := kv.Delete(KeyConversations); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := kv.Get(KeyConversations); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("Get after delete: err = %v, want ErrKeyNotFound", err)
			}

			// Deleting an absent key is fine.
			if err := kv.Delete("never-set"); err != nil {
				t.Errorf("Delete of absent key: %v", err)
			}
		})
	}
}

func TestFileKVWritesRestrictedPermissions(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKVWithDir(dir)
	if err != nil {
		t.Fatalf("NewFileKVWithDir failed: %v", err)
	}

	if err := kv.Set(KeyConversations, []byte("[]")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, KeyConversations+".json"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}
}

func TestSQLiteKVPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "druva.db")

	kv, err := NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("NewSQLiteKV failed: %v", err)
	}
	if err := kv.Set(KeyActiveConversation, []byte(`"chat-9"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(KeyActiveConversation)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != `"chat-9"` {
		t.Errorf("Get after reopen = %q", got)
	}
}
