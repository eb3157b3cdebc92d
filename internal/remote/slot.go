// Package remote provides the single remote backup slot that cloud upload
// and download talk to, plus a small HTTP server that hosts slots for many
// identities.
//
// A slot holds at most one opaque backup blob. Put overwrites it; the last
// writer wins.
package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Slot is the remote key-value slot holding one backup blob.
type Slot interface {
	// Put replaces the stored blob.
	Put(ctx context.Context, blob string) error

	// Get returns the stored blob. ok is false when the slot is empty.
	Get(ctx context.Context) (blob string, ok bool, err error)
}

// MemorySlot is an in-process slot.
//
// Thread-safety: MemorySlot is safe for concurrent use via internal mutex.
type MemorySlot struct {
	mu   sync.Mutex
	blob string
	ok   bool
	puts int
	gets int
}

// NewMemorySlot returns an empty in-memory slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

// Put replaces the stored blob.
func (s *MemorySlot) Put(_ context.Context, blob string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob, s.ok = blob, true
	s.puts++
	return nil
}

// Get returns the stored blob.
func (s *MemorySlot) Get(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	return s.blob, s.ok, nil
}

// Calls returns how many times Put and Get have been called.
func (s *MemorySlot) Calls() (puts, gets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts, s.gets
}

// FileSlot keeps the blob in a single file, e.g. inside a synced folder.
// A missing or empty file is an empty slot.
type FileSlot struct {
	Path string
}

// NewFileSlot returns a slot backed by the file at path.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{Path: path}
}

// Put writes the blob to a temporary file next to Path and renames it into
// place, so readers never see a partial blob.
func (s *FileSlot) Put(_ context.Context, blob string) error {
	if err := WriteFileAtomic(s.Path, []byte(blob)); err != nil {
		return fmt.Errorf("file slot put: %w", err)
	}
	return nil
}

// Get reads the blob.
func (s *FileSlot) Get(_ context.Context) (string, bool, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("file slot get: %w", err)
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

// WriteFileAtomic writes data to path via a temporary file in the same
// directory followed by a rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // No-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
