// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/morganforge/druva-tui/internal/util"
)

// =============================================================================
// FILE-BACKED KV
// =============================================================================

// FileKV stores each key as one JSON file under a base directory.
// Writes go through util.AtomicWriteFile so a crash mid-save leaves the
// previous complete value in place.
type FileKV struct {
	// BaseDir is the directory holding one file per key.
	// Default: ~/.druva/state/
	BaseDir string
}

// NewFileKV creates a file-backed store under the default data directory.
func NewFileKV() (*FileKV, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewFileKVWithDir(filepath.Join(homeDir, ".druva", "state"))
}

// NewFileKVWithDir creates a file-backed store under a custom directory.
func NewFileKVWithDir(baseDir string) (*FileKV, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &FileKV{BaseDir: baseDir}, nil
}

// Get returns the value for key, or ErrKeyNotFound.
func (s *FileKV) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set durably stores value under key.
func (s *FileKV) Set(key string, value []byte) error {
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(s.filePath(key), value, 0600); err != nil {
		return fmt.Errorf("failed to persist %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Absent keys are not an error.
func (s *FileKV) Delete(key string) error {
	if err := os.Remove(s.filePath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *FileKV) Close() error {
	return nil
}

// filePath maps a key to its on-disk file. Keys are fixed constants, but the
// separator replacement keeps an unexpected key from escaping the base dir.
func (s *FileKV) filePath(key string) string {
	safe := strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(s.BaseDir, safe+".json")
}
