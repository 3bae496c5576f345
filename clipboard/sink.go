package clipboard

import (
	"fmt"
	"sync"
	"time"

	"murmur/log"
)

type SinkConfig struct {
	AutoPaste    bool
	Restore      bool
	PasteDelay   time.Duration
	RestoreDelay time.Duration
}

func DefaultSinkConfig() SinkConfig {
	return SinkConfig{
		AutoPaste:    true,
		Restore:      true,
		PasteDelay:   150 * time.Millisecond,
		RestoreDelay: 600 * time.Millisecond,
	}
}

// Sink delivers transcribed text to the focused application by placing it
// on the clipboard and sending the paste keystroke.
type Sink struct {
	board Board
	paste func() error
	cfg   SinkConfig

	mu      sync.Mutex
	pending *time.Timer
}

func NewSink(board Board, paste func() error, cfg SinkConfig) *Sink {
	return &Sink{board: board, paste: paste, cfg: cfg}
}

func (s *Sink) Insert(text string) error {
	if text == "" {
		return nil
	}
	pasting := s.cfg.AutoPaste && s.paste != nil

	var prev string
	if pasting && s.cfg.Restore {
		prev, _ = s.board.Read()
	}
	if err := s.board.Copy(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	if !pasting {
		return nil
	}

	if s.cfg.PasteDelay > 0 {
		time.Sleep(s.cfg.PasteDelay)
	}
	if err := s.paste(); err != nil {
		return fmt.Errorf("paste: %w", err)
	}

	if s.cfg.Restore && prev != "" && prev != text {
		s.scheduleRestore(prev, text)
	}
	return nil
}

// scheduleRestore puts prev back unless something else replaced text on
// the clipboard in the meantime.
func (s *Sink) scheduleRestore(prev, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = time.AfterFunc(s.cfg.RestoreDelay, func() {
		cur, err := s.board.Read()
		if err != nil || cur != text {
			return
		}
		if err := s.board.Copy(prev); err != nil {
			log.Warnf("clipboard restore failed: %v", err)
		}
	})
}

// Close cancels a pending restore.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}
