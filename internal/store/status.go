package store

import (
	"log/slog"
	"time"
)

// Status is the save state shown to the user. It has no effect on
// correctness.
type Status int

const (
	// StatusIdle means no write is pending.
	StatusIdle Status = iota
	// StatusSaving means a debounced write is scheduled or in flight.
	StatusSaving
	// StatusSaved means the last write succeeded; it reverts to idle after
	// the configured display window.
	StatusSaved
)

func (s Status) String() string {
	switch s {
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	default:
		return "idle"
	}
}

// MarshalText renders the status as its name in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Store) setStatusLocked(next Status) {
	if s.savedTimer != nil {
		s.savedTimer.Stop()
		s.savedTimer = nil
	}
	if s.status != next {
		slog.Debug("save status changed", "document_key", s.cfg.Key, "from", s.status.String(), "to", next.String())
	}
	s.status = next

	if next != StatusSaved || s.closed {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.cfg.SavedDisplay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.savedTimer == timer && s.status == StatusSaved {
			s.savedTimer = nil
			s.status = StatusIdle
		}
	})
	s.savedTimer = timer
}
