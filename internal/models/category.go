package models

// Default category labels for a freshly created document, in display order.
const (
	CategoryRent      = "🏠 Rent/Mortgage"
	CategoryGroceries = "🛒 Groceries"
	CategoryUtilities = "⚡ Utilities"
	CategoryFamily    = "🎢 Kids/Family"
	CategoryCubsTrip  = "⚾ Cubs Trip"
	CategoryTransport = "🚗 Transport"
	CategoryTravel    = "✈️ Travel"
	CategoryDining    = "🍔 Dining Out"
	CategorySavings   = "💰 Savings"
)

// DefaultIncome is the monthly baseline income of a new document.
const DefaultIncome = 20000

// DefaultCategories returns the category list of a new document.
// A fresh slice is returned on every call.
func DefaultCategories() []string {
	return []string{
		CategoryRent,
		CategoryGroceries,
		CategoryUtilities,
		CategoryFamily,
		CategoryCubsTrip,
		CategoryTransport,
		CategoryTravel,
		CategoryDining,
		CategorySavings,
	}
}
