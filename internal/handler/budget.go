package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Pirozshki/FinancePro/internal/ledger"
	"github.com/Pirozshki/FinancePro/internal/models"
	"github.com/Pirozshki/FinancePro/internal/store"
	"github.com/shopspring/decimal"
)

type budgetResponse struct {
	Document *models.BudgetDocument `json:"document"`
	Status   store.Status           `json:"status"`
}

func (d *Dependencies) writeBudget(w http.ResponseWriter, status int, doc *models.BudgetDocument) {
	WriteJSON(w, status, budgetResponse{Document: doc, Status: d.Store.Status()})
}

// HandleGetBudget returns the current document and save status.
func (d *Dependencies) HandleGetBudget(w http.ResponseWriter, r *http.Request) {
	d.writeBudget(w, http.StatusOK, d.Store.Document())
}

// HandleSetIncome replaces the monthly income.
func (d *Dependencies) HandleSetIncome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Income *decimal.Decimal `json:"income"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Income == nil {
		WriteError(w, http.StatusBadRequest, "Missing income")
		return
	}

	doc := d.Store.SetIncome(*req.Income)
	slog.Info("income updated", "income", req.Income.String())
	d.writeBudget(w, http.StatusOK, doc)
}

// HandleMonthSummary returns totals for one month.
func (d *Dependencies) HandleMonthSummary(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, d.Store.Document().Summarize(month))
}

// HandleAddTransaction records a manual entry in a month.
func (d *Dependencies) HandleAddTransaction(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	var t models.Transaction
	if !decodeBody(w, r, &t) {
		return
	}
	if t.Description == "" || t.Amount.IsZero() {
		WriteError(w, http.StatusBadRequest, "Description and a non-zero amount are required")
		return
	}
	t.ID = 0

	doc, err := d.Store.AddTransaction(month, t)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	slog.Info("transaction added", "month", month, "category", t.Category, "amount", t.Amount.String())
	d.writeBudget(w, http.StatusCreated, doc)
}

// HandleDeleteTransaction removes a transaction. Unknown ids are a no-op.
func (d *Dependencies) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	doc := d.Store.DeleteTransaction(month, id)
	slog.Info("transaction deleted", "month", month, "id", id)
	d.writeBudget(w, http.StatusOK, doc)
}

// HandleUpdateTransactionCategory recategorizes a transaction.
func (d *Dependencies) HandleUpdateTransactionCategory(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Category == "" {
		WriteError(w, http.StatusBadRequest, "Missing category")
		return
	}

	doc := d.Store.UpdateTransactionCategory(month, id, req.Category)
	d.writeBudget(w, http.StatusOK, doc)
}

// HandleUpdateLimit sets a category spending limit for a month.
func (d *Dependencies) HandleUpdateLimit(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Category string           `json:"category"`
		Amount   *decimal.Decimal `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Category == "" || req.Amount == nil {
		WriteError(w, http.StatusBadRequest, "Category and amount are required")
		return
	}

	doc, err := d.Store.UpdateLimit(month, req.Category, *req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	d.writeBudget(w, http.StatusOK, doc)
}

func monthParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	month := r.PathValue("month")
	if !models.IsMonth(month) {
		WriteError(w, http.StatusBadRequest, "Unknown month: "+month)
		return "", false
	}
	return month, true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return 0, false
	}
	return id, true
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnknownMonth),
		errors.Is(err, ledger.ErrInvalidDate),
		errors.Is(err, ledger.ErrMonthMismatch):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("ledger update failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to update budget: "+err.Error())
	}
}
