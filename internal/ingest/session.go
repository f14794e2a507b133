// Package ingest drives a statement import from upload through review to
// commit into the budget document.
package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Pirozshki/FinancePro/internal/categorize"
	"github.com/Pirozshki/FinancePro/internal/csvparse"
	"github.com/Pirozshki/FinancePro/internal/models"
	"github.com/shopspring/decimal"
)

// Stage is the step an import session is on.
type Stage string

const (
	StageUpload Stage = "upload"
	StageReview Stage = "review"
	StageDone   Stage = "done"
)

// User-facing messages for the two non-success outcomes of an upload.
const (
	MessageFormat    = "Could not read this file. Make sure you exported it as a CSV from Chase."
	MessageNoExpense = "No expense transactions found in this file. Chase credits and payments are excluded automatically."
)

var (
	// ErrNotReviewing is returned for review actions outside the review
	// stage.
	ErrNotReviewing = errors.New("no import under review")
	// ErrUnknownCategory is returned when overriding with a category the
	// document does not define.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNoSuchRow is returned for an out-of-range candidate index.
	ErrNoSuchRow = errors.New("no such row")
)

// Candidate is a parsed debit awaiting confirmation.
type Candidate struct {
	Date              string          `json:"date"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	SourceCategory    string          `json:"sourceCategory,omitempty"`
	SuggestedCategory string          `json:"suggestedCategory,omitempty"`
	Category          string          `json:"category"`
}

// Committer receives a confirmed batch. *store.Store satisfies it.
type Committer interface {
	MergeBulkTransactions(txns []models.Transaction) (*models.BudgetDocument, error)
}

// State is a snapshot of a session for the presentation layer.
type State struct {
	Stage      Stage       `json:"stage"`
	Source     string      `json:"source,omitempty"`
	Candidates []Candidate `json:"candidates"`
	Categories []string    `json:"categories,omitempty"`
	Message    string      `json:"message,omitempty"`
	Imported   int         `json:"imported"`
}

// Session is one import, safe for concurrent use.
type Session struct {
	mapper *categorize.Mapper

	mu         sync.Mutex
	stage      Stage
	source     string
	candidates []Candidate
	categories []string
	message    string
	imported   int
}

// NewSession returns a session on the upload stage.
func NewSession(mapper *categorize.Mapper) *Session {
	if mapper == nil {
		mapper = categorize.NewMapper(nil)
	}
	return &Session{mapper: mapper, stage: StageUpload}
}

// Load parses statement content and moves the session to review. The
// categories are the document's current vocabulary; unmapped rows get the
// first one as a placeholder. On a format error or an empty statement the
// session stays on upload with an explanatory message and the parse error
// is returned.
func (s *Session) Load(source, content string, categories []string) error {
	res, err := csvparse.ParseStatement(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case errors.Is(err, csvparse.ErrNoExpenses):
		s.resetLocked(MessageNoExpense)
		slog.Info("statement has no expense rows", "source", source, "skipped", res.Skipped)
		return err
	case err != nil:
		s.resetLocked(MessageFormat)
		slog.Warn("unreadable statement", "source", source, "error", err)
		return err
	}

	fallback := ""
	if len(categories) > 0 {
		fallback = categories[0]
	}

	candidates := make([]Candidate, len(res.Records))
	suggested := 0
	for i, r := range res.Records {
		c := Candidate{
			Date:           r.Date,
			Description:    r.Description,
			Amount:         r.Amount,
			SourceCategory: r.SourceCategory,
		}
		var ok bool
		c.Category, ok = s.mapper.Resolve(r.SourceCategory, fallback)
		if ok {
			c.SuggestedCategory = c.Category
			suggested++
		}
		candidates[i] = c
	}

	s.stage = StageReview
	s.source = source
	s.candidates = candidates
	s.categories = slices.Clone(categories)
	s.message = ""
	s.imported = 0

	slog.Info("statement ready for review",
		"source", source,
		"candidates", len(candidates),
		"auto_categorized", suggested,
		"skipped", res.Skipped,
	)
	return nil
}

// SetCategory overrides the category of candidate index.
func (s *Session) SetCategory(index int, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageReview {
		return ErrNotReviewing
	}
	if index < 0 || index >= len(s.candidates) {
		return fmt.Errorf("%w: %d", ErrNoSuchRow, index)
	}
	if len(s.categories) > 0 && !slices.Contains(s.categories, category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	s.candidates[index].Category = category
	return nil
}

// Confirm commits the reviewed batch and moves the session to done.
// Nothing reaches the committer before Confirm.
func (s *Session) Confirm(c Committer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageReview {
		return 0, ErrNotReviewing
	}

	txns := make([]models.Transaction, len(s.candidates))
	for i, cand := range s.candidates {
		txns[i] = models.Transaction{
			Description: cand.Description,
			Amount:      cand.Amount,
			Category:    cand.Category,
			Date:        cand.Date,
			Type:        models.TransactionExpense,
		}
	}

	if _, err := c.MergeBulkTransactions(txns); err != nil {
		s.message = "Import failed: " + err.Error()
		return 0, fmt.Errorf("failed to merge imported transactions: %w", err)
	}

	s.stage = StageDone
	s.imported = len(txns)
	s.message = ""
	slog.Info("statement imported", "source", s.source, "transactions", len(txns))
	return len(txns), nil
}

// Reset discards any review in progress.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked("")
}

// State returns a copy of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Stage:      s.stage,
		Source:     s.source,
		Candidates: append([]Candidate{}, s.candidates...),
		Categories: slices.Clone(s.categories),
		Message:    s.message,
		Imported:   s.imported,
	}
}

func (s *Session) resetLocked(message string) {
	s.stage = StageUpload
	s.source = ""
	s.candidates = nil
	s.categories = nil
	s.message = message
	s.imported = 0
}
