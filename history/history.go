// Package history keeps the most recent transcriptions on disk.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"murmur/log"
)

const MaxItems = 5

type Item struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is a bounded, newest-first list. An empty path keeps it in memory.
type Store struct {
	path string
	now  func() time.Time

	mu        sync.Mutex
	items     []Item
	listeners []func([]Item)

	// saveMu orders writes to path. Each save reads the list it writes
	// under it, so the file never goes back to an older state.
	saveMu sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Open creates a store and loads any saved items. A missing or corrupt
// file yields an empty history.
func Open(path string) *Store {
	s := New(path)
	if err := s.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("history: %v", err)
	}
	return s
}

// OnChange registers fn to receive a snapshot after every change.
func (s *Store) OnChange(fn func([]Item)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify(items []Item) {
	s.mu.Lock()
	fns := append([]func([]Item)(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(items)
	}
}

func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decoding %s: %w", s.path, err)
	}
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// Add records text at the front. Blank text is ignored.
func (s *Store) Add(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	item := Item{ID: uuid.New(), Text: text, Timestamp: s.now()}

	s.mu.Lock()
	s.items = append([]Item{item}, s.items...)
	if len(s.items) > MaxItems {
		s.items = s.items[:MaxItems]
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist()
	s.notify(snapshot)
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	s.persist()
	s.notify(nil)
}

func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []Item {
	return append([]Item(nil), s.items...)
}

func (s *Store) persist() {
	if s.path == "" {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	items := s.Items()
	if items == nil {
		items = []Item{}
	}
	if err := save(s.path, items); err != nil {
		log.Warnf("history: saving: %v", err)
	}
}

func save(path string, items []Item) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
