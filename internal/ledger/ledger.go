// Package ledger implements the mutations applied to a budget document.
// Every operation is a pure function: it takes the current document and
// returns a new one, leaving its input untouched.
package ledger

import (
	"errors"
	"fmt"

	"github.com/Pirozshki/FinancePro/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownMonth is returned for a month key that is not a month name.
	ErrUnknownMonth = errors.New("unknown month")
	// ErrInvalidDate is returned when a transaction date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid transaction date")
	// ErrMonthMismatch is returned when a dated transaction is filed under
	// a month other than the one its date falls in.
	ErrMonthMismatch = errors.New("transaction date does not fall in month")
)

// Op is a document mutation. The store applies ops against its current
// document.
type Op func(doc *models.BudgetDocument) (*models.BudgetDocument, error)

// SetIncome replaces the document income. Any value is accepted.
func SetIncome(doc *models.BudgetDocument, amount decimal.Decimal) *models.BudgetDocument {
	out := doc.Clone()
	out.Income = amount
	return out
}

// AddTransaction prepends t to the ledger of monthKey, creating the ledger
// if needed. A dated transaction must fall in monthKey.
func AddTransaction(doc *models.BudgetDocument, monthKey string, t models.Transaction) (*models.BudgetDocument, error) {
	if !models.IsMonth(monthKey) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMonth, monthKey)
	}
	if t.Date != "" {
		month, err := models.MonthOf(t.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
		if month != monthKey {
			return nil, fmt.Errorf("%w: %s is in %s, not %s", ErrMonthMismatch, t.Date, month, monthKey)
		}
	}
	if t.Type == "" {
		t.Type = models.TransactionExpense
	}
	t.Amount = t.Amount.Abs()

	out := doc.Clone()
	prepend(out, monthKey, t)
	return out, nil
}

// DeleteTransaction removes the transaction with the given id from
// monthKey. A missing month or id leaves the document unchanged.
func DeleteTransaction(doc *models.BudgetDocument, monthKey string, id int64) *models.BudgetDocument {
	out := doc.Clone()
	m, ok := out.MonthlyData[monthKey]
	if !ok {
		return out
	}
	kept := m.Expenses[:0]
	for _, t := range m.Expenses {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	m.Expenses = kept
	return out
}

// UpdateTransactionCategory sets the category of the matching transaction
// in place. A missing month or id leaves the document unchanged.
func UpdateTransactionCategory(doc *models.BudgetDocument, monthKey string, id int64, category string) *models.BudgetDocument {
	out := doc.Clone()
	m, ok := out.MonthlyData[monthKey]
	if !ok {
		return out
	}
	for i := range m.Expenses {
		if m.Expenses[i].ID == id {
			m.Expenses[i].Category = category
		}
	}
	return out
}

// UpdateLimit sets the spending limit of category for monthKey, creating
// the ledger if needed. The amount is stored verbatim.
func UpdateLimit(doc *models.BudgetDocument, monthKey, category string, amount decimal.Decimal) (*models.BudgetDocument, error) {
	if !models.IsMonth(monthKey) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMonth, monthKey)
	}
	out := doc.Clone()
	m := ensureMonth(out, monthKey)
	m.Limits[category] = amount
	return out, nil
}

// MergeBulkTransactions files every transaction under the month of its own
// date, assigning each a fresh id. Incoming ids are ignored. The batch is
// rejected as a whole if any date is invalid.
func MergeBulkTransactions(doc *models.BudgetDocument, txns []models.Transaction) (*models.BudgetDocument, error) {
	months := make([]string, len(txns))
	for i, t := range txns {
		month, err := models.MonthOf(t.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidDate, i, err)
		}
		months[i] = month
	}

	out := doc.Clone()
	next := NextID(out)
	for i, t := range txns {
		t.ID = next
		next++
		t.Amount = t.Amount.Abs()
		if t.Type == "" {
			t.Type = models.TransactionExpense
		}
		prepend(out, months[i], t)
	}
	return out, nil
}

// NextID returns an id greater than every id in the document.
func NextID(doc *models.BudgetDocument) int64 {
	var max int64
	for _, m := range doc.MonthlyData {
		if m == nil {
			continue
		}
		for _, t := range m.Expenses {
			if t.ID > max {
				max = t.ID
			}
		}
	}
	return max + 1
}

func ensureMonth(doc *models.BudgetDocument, monthKey string) *models.MonthLedger {
	if doc.MonthlyData == nil {
		doc.MonthlyData = map[string]*models.MonthLedger{}
	}
	m, ok := doc.MonthlyData[monthKey]
	if !ok || m == nil {
		m = models.NewMonthLedger()
		doc.MonthlyData[monthKey] = m
	}
	if m.Limits == nil {
		m.Limits = map[string]decimal.Decimal{}
	}
	return m
}

func prepend(doc *models.BudgetDocument, monthKey string, t models.Transaction) {
	m := ensureMonth(doc, monthKey)
	m.Expenses = append([]models.Transaction{t}, m.Expenses...)
}
