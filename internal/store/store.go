// Package store holds the authoritative in-memory budget document and keeps
// a remote copy eventually consistent with it.
//
// Local mutations are applied immediately and pushed to the remote after a
// quiet period (debounce). Pushes are whole-document upserts: the last write
// wins. Change notifications from other sessions replace the local document
// wholesale. A notification that arrives while a local write is still
// waiting on its debounce timer cancels that write, so the remote copy wins
// deterministically; a write already in flight cannot be recalled.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Pirozshki/FinancePro/internal/ledger"
	"github.com/Pirozshki/FinancePro/internal/models"
	"github.com/shopspring/decimal"
)

// Remote is the hosted single-row document store with push notifications.
type Remote interface {
	// Fetch returns the stored document, or nil if none exists.
	Fetch(ctx context.Context, key string) (*models.BudgetDocument, error)
	// Upsert overwrites the stored document unconditionally.
	Upsert(ctx context.Context, key string, doc *models.BudgetDocument) error
	// Subscribe calls onChange with every document written by another
	// session until the returned function is called.
	Subscribe(ctx context.Context, key string, onChange func(*models.BudgetDocument)) (func(), error)
}

// Config controls the store timing and identity.
type Config struct {
	Key          string
	Debounce     time.Duration
	SavedDisplay time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the production timings for key.
func DefaultConfig(key string) Config {
	return Config{
		Key:          key,
		Debounce:     time.Second,
		SavedDisplay: 2 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Store is safe for concurrent use. Documents returned by the store are
// shared and must be treated as read-only.
type Store struct {
	remote Remote
	cfg    Config

	mu          sync.Mutex
	doc         *models.BudgetDocument
	status      Status
	pending     *time.Timer
	generation  uint64
	inFlight    int
	drained     chan struct{}
	savedTimer  *time.Timer
	unsubscribe func()
	closed      bool
}

// New creates a store holding the default document. Call Start to load the
// remote copy and subscribe to changes.
func New(remote Remote, cfg Config) *Store {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	return &Store{
		remote: remote,
		cfg:    cfg,
		doc:    models.DefaultDocument(),
		status: StatusIdle,
	}
}

// Start fetches the remote document and subscribes to its changes. Remote
// failures are logged and never fatal: a failed or empty fetch leaves the
// default document in place, unsaved until the first local mutation.
func (s *Store) Start(ctx context.Context) {
	doc, err := s.remote.Fetch(ctx, s.cfg.Key)
	switch {
	case err != nil:
		slog.Error("failed to fetch budget document, starting from defaults", "document_key", s.cfg.Key, "error", err)
	case doc == nil:
		slog.Info("no remote budget document, starting from defaults", "document_key", s.cfg.Key)
	default:
		s.mu.Lock()
		s.doc = doc
		s.mu.Unlock()
		slog.Info("loaded budget document", "document_key", s.cfg.Key, "months", len(doc.MonthlyData))
	}

	unsubscribe, err := s.remote.Subscribe(ctx, s.cfg.Key, s.applyRemote)
	if err != nil {
		slog.Error("failed to subscribe to budget changes", "document_key", s.cfg.Key, "error", err)
		return
	}

	s.mu.Lock()
	closed := s.closed
	if !closed {
		s.unsubscribe = unsubscribe
	}
	s.mu.Unlock()

	// The subscriber may be blocked in applyRemote, so stop it unlocked.
	if closed {
		unsubscribe()
	}
}

// Document returns the current document.
func (s *Store) Document() *models.BudgetDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Status returns the current save status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Apply runs op against the current document, makes the result current and
// schedules a debounced push. A failing op leaves the store unchanged.
func (s *Store) Apply(op ledger.Op) (*models.BudgetDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := op(s.doc)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	s.scheduleLocked()
	return doc, nil
}

// SetIncome replaces the document income.
func (s *Store) SetIncome(amount decimal.Decimal) *models.BudgetDocument {
	doc, _ := s.Apply(func(d *models.BudgetDocument) (*models.BudgetDocument, error) {
		return ledger.SetIncome(d, amount), nil
	})
	return doc
}

// AddTransaction prepends t to monthKey.
func (s *Store) AddTransaction(monthKey string, t models.Transaction) (*models.BudgetDocument, error) {
	return s.Apply(func(d *models.BudgetDocument) (*models.BudgetDocument, error) {
		if t.ID == 0 {
			t.ID = ledger.NextID(d)
		}
		return ledger.AddTransaction(d, monthKey, t)
	})
}

// DeleteTransaction removes transaction id from monthKey.
func (s *Store) DeleteTransaction(monthKey string, id int64) *models.BudgetDocument {
	doc, _ := s.Apply(func(d *models.BudgetDocument) (*models.BudgetDocument, error) {
		return ledger.DeleteTransaction(d, monthKey, id), nil
	})
	return doc
}

// UpdateTransactionCategory recategorizes transaction id in monthKey.
func (s *Store) UpdateTransactionCategory(monthKey string, id int64, category string) *models.BudgetDocument {
	doc, _ := s.Apply(func(d *models.BudgetDocument) (*models.BudgetDocument, error) {
		return ledger.UpdateTransactionCategory(d, monthKey, id, category), nil
	})
	return doc
}

// UpdateLimit sets a category limit for monthKey.
func (s *Store) UpdateLimit(monthKey, category string, amount decimal.Decimal) (*models.BudgetDocument, error) {
	return s.Apply(func(d *models.BudgetDocument) (*models.BudgetDocument, error) {
		return ledger.UpdateLimit(d, monthKey, category, amount)
	})
}

// MergeBulkTransactions files a confirmed import batch by date.
func (s *Store) MergeBulkTransactions(txns []models.Transaction) (*models.BudgetDocument, error) {
	return s.Apply(func(d *models.BudgetDocument) (*models.BudgetDocument, error) {
		return ledger.MergeBulkTransactions(d, txns)
	})
}

// Flush writes a pending change immediately instead of waiting for the
// debounce timer, then waits for every write already in flight. It returns
// once nothing is pending or in flight, or when ctx is done.
func (s *Store) Flush(ctx context.Context) error {
	var err error

	s.mu.Lock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
		s.generation++
		doc := s.doc
		s.beginWriteLocked()
		s.mu.Unlock()

		err = s.write(ctx, doc)
		s.mu.Lock()
	}
	drained := s.drained
	s.mu.Unlock()

	if drained == nil {
		return err
	}
	select {
	case <-drained:
		return err
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for in-flight save: %w", ctx.Err())
	}
}

// Close cancels any pending write and the remote subscription. Call Flush
// first to keep unsaved edits.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	if s.savedTimer != nil {
		s.savedTimer.Stop()
		s.savedTimer = nil
	}
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	// Stopping the subscription waits for a callback in progress, and that
	// callback needs s.mu.
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Store) scheduleLocked() {
	if s.closed {
		return
	}
	if s.pending != nil {
		s.pending.Stop()
	}
	s.generation++
	gen := s.generation
	s.pending = time.AfterFunc(s.cfg.Debounce, func() { s.fire(gen) })
	s.setStatusLocked(StatusSaving)
}

func (s *Store) fire(gen uint64) {
	s.mu.Lock()
	// A newer mutation or a remote update superseded this timer.
	if gen != s.generation || s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	doc := s.doc
	s.beginWriteLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	_ = s.write(ctx, doc)
}

// beginWriteLocked registers a write that the caller will issue with write.
func (s *Store) beginWriteLocked() {
	if s.inFlight == 0 {
		s.drained = make(chan struct{})
	}
	s.inFlight++
}

// write pushes doc. The caller must have called beginWriteLocked.
func (s *Store) write(ctx context.Context, doc *models.BudgetDocument) error {
	err := s.remote.Upsert(ctx, s.cfg.Key, doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if s.inFlight == 0 {
		close(s.drained)
		s.drained = nil
	}

	if err != nil {
		slog.Error("failed to save budget document", "document_key", s.cfg.Key, "error", err)
		if s.pending == nil && s.inFlight == 0 {
			s.setStatusLocked(StatusIdle)
		}
		return err
	}

	slog.Debug("saved budget document", "document_key", s.cfg.Key)
	if s.pending == nil && s.inFlight == 0 {
		s.setStatusLocked(StatusSaved)
	}
	return nil
}

func (s *Store) applyRemote(doc *models.BudgetDocument) {
	if doc == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
		s.generation++
		slog.Warn("remote budget update discarded unsaved local changes", "document_key", s.cfg.Key)
	}
	s.doc = doc
	if s.inFlight == 0 {
		s.setStatusLocked(StatusIdle)
	}
	slog.Info("applied remote budget update", "document_key", s.cfg.Key)
}
