package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategorySpend is the total spent in one category for a month.
type CategorySpend struct {
	Category  string          `json:"category"`
	Spent     decimal.Decimal `json:"spent"`
	Limit     decimal.Decimal `json:"limit"`
	HasLimit  bool            `json:"hasLimit"`
	OverLimit bool            `json:"overLimit"`
}

// MonthSummary aggregates one month's ledger against the document income.
type MonthSummary struct {
	Month            string          `json:"month"`
	Income           decimal.Decimal `json:"income"`
	TotalSpent       decimal.Decimal `json:"totalSpent"`
	ExtraIncome      decimal.Decimal `json:"extraIncome"`
	Balance          decimal.Decimal `json:"balance"`
	TotalLimit       decimal.Decimal `json:"totalLimit"`
	ProjectedSavings decimal.Decimal `json:"projectedSavings"`
	Categories       []CategorySpend `json:"categories"`
}

// Summarize builds the summary for monthKey. Income-type entries are kept
// out of the spending totals and reported as ExtraIncome.
func (d *BudgetDocument) Summarize(monthKey string) MonthSummary {
	ledger := d.Month(monthKey)

	s := MonthSummary{
		Month:       monthKey,
		Income:      d.Income,
		TotalSpent:  decimal.Zero,
		ExtraIncome: decimal.Zero,
		TotalLimit:  decimal.Zero,
	}

	totals := make(map[string]decimal.Decimal)
	for _, t := range ledger.Expenses {
		if t.IsIncome() {
			s.ExtraIncome = s.ExtraIncome.Add(t.Amount)
			continue
		}
		s.TotalSpent = s.TotalSpent.Add(t.Amount)
		totals[t.Category] = totals[t.Category].Add(t.Amount)
	}
	for _, v := range ledger.Limits {
		s.TotalLimit = s.TotalLimit.Add(v)
	}

	s.Balance = s.Income.Sub(s.TotalSpent)
	s.ProjectedSavings = s.Income.Sub(s.TotalLimit)

	for cat, spent := range totals {
		cs := CategorySpend{Category: cat, Spent: spent}
		// A zero limit means the category is not capped.
		if limit, ok := ledger.Limits[cat]; ok && limit.IsPositive() {
			cs.Limit = limit
			cs.HasLimit = true
			cs.OverLimit = spent.GreaterThan(limit)
		}
		s.Categories = append(s.Categories, cs)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		if c := s.Categories[i].Spent.Cmp(s.Categories[j].Spent); c != 0 {
			return c > 0
		}
		return s.Categories[i].Category < s.Categories[j].Category
	})

	return s
}
