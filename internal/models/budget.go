package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the storage format of Transaction.Date.
const DateLayout = "2006-01-02"

// TransactionType distinguishes spending from income entries.
type TransactionType string

const (
	TransactionExpense TransactionType = "expense"
	TransactionIncome  TransactionType = "income"
)

// Transaction is a single ledger entry. Amount is always stored as an
// absolute value; Type carries the direction.
type Transaction struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Type        TransactionType `json:"type,omitempty"`
}

// IsIncome reports whether the entry is an income entry. Entries without a
// type are expenses.
func (t Transaction) IsIncome() bool {
	return t.Type == TransactionIncome
}

// MonthLedger holds one calendar month of transactions and spending limits.
type MonthLedger struct {
	Expenses []Transaction             `json:"expenses"`
	Limits   map[string]decimal.Decimal `json:"limits"`
}

// NewMonthLedger returns an empty ledger.
func NewMonthLedger() *MonthLedger {
	return &MonthLedger{
		Expenses: []Transaction{},
		Limits:   map[string]decimal.Decimal{},
	}
}

// Clone returns a deep copy of the ledger.
func (m *MonthLedger) Clone() *MonthLedger {
	if m == nil {
		return NewMonthLedger()
	}
	out := &MonthLedger{
		Expenses: make([]Transaction, len(m.Expenses)),
		Limits:   make(map[string]decimal.Decimal, len(m.Limits)),
	}
	copy(out.Expenses, m.Expenses)
	for k, v := range m.Limits {
		out.Limits[k] = v
	}
	return out
}

// BudgetDocument is the single shared root object synchronized between
// sessions. MonthlyData is keyed by English month name.
type BudgetDocument struct {
	Income      decimal.Decimal         `json:"income"`
	Categories  []string                `json:"categories"`
	MonthlyData map[string]*MonthLedger `json:"monthlyData"`
}

// DefaultDocument returns the document used when no remote copy exists.
func DefaultDocument() *BudgetDocument {
	return &BudgetDocument{
		Income:      decimal.NewFromInt(DefaultIncome),
		Categories:  DefaultCategories(),
		MonthlyData: map[string]*MonthLedger{},
	}
}

// Clone returns a deep copy of the document. Mutations operate on clones
// so previously handed out values never change underneath their holders.
func (d *BudgetDocument) Clone() *BudgetDocument {
	if d == nil {
		return nil
	}
	out := &BudgetDocument{
		Income:      d.Income,
		Categories:  make([]string, len(d.Categories)),
		MonthlyData: make(map[string]*MonthLedger, len(d.MonthlyData)),
	}
	copy(out.Categories, d.Categories)
	for k, v := range d.MonthlyData {
		out.MonthlyData[k] = v.Clone()
	}
	return out
}

// Month returns the ledger for monthKey, or an empty ledger if the month
// has no data yet. The returned value must not be modified.
func (d *BudgetDocument) Month(monthKey string) *MonthLedger {
	if m, ok := d.MonthlyData[monthKey]; ok && m != nil {
		return m
	}
	return NewMonthLedger()
}

// Months lists the valid MonthlyData keys in calendar order.
var Months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// IsMonth reports whether key is one of the twelve month names.
func IsMonth(key string) bool {
	for _, m := range Months {
		if m == key {
			return true
		}
	}
	return false
}

// MonthOf returns the MonthlyData key for an ISO (YYYY-MM-DD) date.
func MonthOf(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t.Month().String(), nil
}
