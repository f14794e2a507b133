// Package categorize maps statement categories onto the user's own
// category vocabulary.
package categorize

import "github.com/Pirozshki/FinancePro/internal/models"

// VendorCategories maps Chase category labels to budget categories.
var VendorCategories = map[string]string{
	"Food & Drink":       models.CategoryDining,
	"Groceries":          models.CategoryGroceries,
	"Travel":             models.CategoryTravel,
	"Gas":                models.CategoryTransport,
	"Automotive":         models.CategoryTransport,
	"Bills & Utilities":  models.CategoryUtilities,
	"Home":               models.CategoryRent,
	"Mortgage & Rent":    models.CategoryRent,
	"Entertainment":      models.CategoryFamily,
	"Health & Wellness":  models.CategoryGroceries,
	"Fees & Adjustments": models.CategoryUtilities,
}

// Mapper resolves vendor labels through a fixed table.
type Mapper struct {
	table map[string]string
}

// NewMapper returns a Mapper over table. A nil table uses
// VendorCategories.
func NewMapper(table map[string]string) *Mapper {
	if table == nil {
		table = VendorCategories
	}
	return &Mapper{table: table}
}

// Suggest returns the mapped category for an exact vendor label match.
func (m *Mapper) Suggest(vendorLabel string) (string, bool) {
	if vendorLabel == "" {
		return "", false
	}
	c, ok := m.table[vendorLabel]
	return c, ok
}

// Resolve returns the suggestion for vendorLabel, or fallback when the
// label is unmapped. The boolean reports whether a suggestion was used.
func (m *Mapper) Resolve(vendorLabel, fallback string) (string, bool) {
	if c, ok := m.Suggest(vendorLabel); ok {
		return c, true
	}
	return fallback, false
}
