package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Pirozshki/FinancePro/internal/ingest"
	"github.com/Pirozshki/FinancePro/internal/models"
	"github.com/Pirozshki/FinancePro/internal/store"
	"github.com/shopspring/decimal"
)

// BudgetStore is the local copy of the shared budget document.
type BudgetStore interface {
	Document() *models.BudgetDocument
	Status() store.Status
	SetIncome(amount decimal.Decimal) *models.BudgetDocument
	AddTransaction(monthKey string, t models.Transaction) (*models.BudgetDocument, error)
	DeleteTransaction(monthKey string, id int64) *models.BudgetDocument
	UpdateTransactionCategory(monthKey string, id int64, category string) *models.BudgetDocument
	UpdateLimit(monthKey, category string, amount decimal.Decimal) (*models.BudgetDocument, error)
	MergeBulkTransactions(txns []models.Transaction) (*models.BudgetDocument, error)
}

// ImportSession is the statement review workflow.
type ImportSession interface {
	Load(source, content string, categories []string) error
	SetCategory(index int, category string) error
	Confirm(c ingest.Committer) (int, error)
	Reset()
	State() ingest.State
}

// StatementArchive keeps raw uploaded statements.
type StatementArchive interface {
	Save(ctx context.Context, filename, content string) (string, error)
	Open(ctx context.Context, blobName string) (string, error)
}

// Dependencies holds the services required by the handlers. Archive is
// optional.
type Dependencies struct {
	Store   BudgetStore
	Import  ImportSession
	Archive StatementArchive
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("invalid request body", "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
