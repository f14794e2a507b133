package ledger

import (
	"testing"

	"github.com/Pirozshki/FinancePro/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDoc() *models.BudgetDocument {
	return &models.BudgetDocument{
		Income:      decimal.NewFromInt(5000),
		Categories:  []string{"Groceries", "Rent"},
		MonthlyData: map[string]*models.MonthLedger{},
	}
}

func TestAddTransaction_CreatesMonth(t *testing.T) {
	doc := newDoc()
	milk := models.Transaction{
		ID:          1,
		Description: "Milk",
		Amount:      decimal.NewFromFloat(4.5),
		Category:    "Groceries",
		Date:        "2025-01-05",
		Type:        models.TransactionExpense,
	}

	out, err := AddTransaction(doc, "January", milk)
	require.NoError(t, err)

	require.Contains(t, out.MonthlyData, "January")
	assert.Equal(t, []models.Transaction{milk}, out.MonthlyData["January"].Expenses)
	assert.Empty(t, doc.MonthlyData, "input document must not change")
}

func TestAddTransaction_Prepends(t *testing.T) {
	doc := newDoc()
	doc, err := AddTransaction(doc, "May", models.Transaction{ID: 1, Date: "2025-05-01", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	doc, err = AddTransaction(doc, "May", models.Transaction{ID: 2, Date: "2025-05-02", Amount: decimal.NewFromInt(2)})
	require.NoError(t, err)

	ids := []int64{}
	for _, e := range doc.MonthlyData["May"].Expenses {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{2, 1}, ids)
}

func TestAddTransaction_Rejects(t *testing.T) {
	doc := newDoc()

	_, err := AddTransaction(doc, "Smarch", models.Transaction{ID: 1})
	assert.ErrorIs(t, err, ErrUnknownMonth)

	_, err = AddTransaction(doc, "March", models.Transaction{ID: 1, Date: "2025-04-01"})
	assert.ErrorIs(t, err, ErrMonthMismatch)

	_, err = AddTransaction(doc, "March", models.Transaction{ID: 1, Date: "03/01/2025"})
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestAddTransaction_StoresAbsoluteAmount(t *testing.T) {
	out, err := AddTransaction(newDoc(), "June", models.Transaction{ID: 7, Amount: decimal.NewFromFloat(-12.25)})
	require.NoError(t, err)

	got := out.MonthlyData["June"].Expenses[0]
	assert.True(t, got.Amount.Equal(decimal.NewFromFloat(12.25)))
	assert.Equal(t, models.TransactionExpense, got.Type)
}

func TestDeleteTransaction(t *testing.T) {
	doc := newDoc()
	doc, _ = AddTransaction(doc, "May", models.Transaction{ID: 1})
	doc, _ = AddTransaction(doc, "May", models.Transaction{ID: 2})

	out := DeleteTransaction(doc, "May", 1)
	require.Len(t, out.MonthlyData["May"].Expenses, 1)
	assert.Equal(t, int64(2), out.MonthlyData["May"].Expenses[0].ID)
	assert.Len(t, doc.MonthlyData["May"].Expenses, 2, "input document must not change")

	same := DeleteTransaction(out, "May", 42)
	assert.Equal(t, out, same)

	noMonth := DeleteTransaction(out, "July", 2)
	assert.NotContains(t, noMonth.MonthlyData, "July")
}

func TestUpdateTransactionCategory(t *testing.T) {
	doc := newDoc()
	doc, _ = AddTransaction(doc, "May", models.Transaction{ID: 1, Category: "Groceries"})

	out := UpdateTransactionCategory(doc, "May", 1, "Rent")
	assert.Equal(t, "Rent", out.MonthlyData["May"].Expenses[0].Category)
	assert.Equal(t, "Groceries", doc.MonthlyData["May"].Expenses[0].Category)

	unchanged := UpdateTransactionCategory(out, "May", 99, "Groceries")
	assert.Equal(t, "Rent", unchanged.MonthlyData["May"].Expenses[0].Category)
}

func TestUpdateLimit(t *testing.T) {
	out, err := UpdateLimit(newDoc(), "August", "Rent", decimal.NewFromInt(-5))
	require.NoError(t, err)

	assert.True(t, out.MonthlyData["August"].Limits["Rent"].Equal(decimal.NewFromInt(-5)))
	assert.Empty(t, out.MonthlyData["August"].Expenses)

	_, err = UpdateLimit(newDoc(), "", "Rent", decimal.Zero)
	assert.ErrorIs(t, err, ErrUnknownMonth)
}

func TestDeleteKeepsLimits(t *testing.T) {
	doc, _ := UpdateLimit(newDoc(), "May", "Rent", decimal.NewFromInt(1000))
	doc, _ = AddTransaction(doc, "May", models.Transaction{ID: 1, Category: "Rent"})

	out := DeleteTransaction(doc, "May", 1)
	assert.Empty(t, out.MonthlyData["May"].Expenses)
	assert.True(t, out.MonthlyData["May"].Limits["Rent"].Equal(decimal.NewFromInt(1000)))
}

func TestSetIncome(t *testing.T) {
	doc := newDoc()
	out := SetIncome(doc, decimal.Zero)
	assert.True(t, out.Income.IsZero())
	assert.True(t, doc.Income.Equal(decimal.NewFromInt(5000)))
}

func TestMergeBulkTransactions_FilesByDate(t *testing.T) {
	batch := []models.Transaction{
		{Description: "Trader Joes", Amount: decimal.NewFromFloat(45.2), Category: "Groceries", Date: "2025-01-05"},
		{Description: "Landlord", Amount: decimal.NewFromInt(1500), Category: "Rent", Date: "2025-03-01"},
		{Description: "Whole Foods", Amount: decimal.NewFromInt(30), Category: "Groceries", Date: "2025-01-20"},
	}

	out, err := MergeBulkTransactions(newDoc(), batch)
	require.NoError(t, err)

	for _, tx := range batch {
		month, _ := models.MonthOf(tx.Date)
		found := 0
		for key, m := range out.MonthlyData {
			for _, e := range m.Expenses {
				if e.Description == tx.Description {
					found++
					assert.Equal(t, month, key)
				}
			}
		}
		assert.Equal(t, 1, found, tx.Description)
	}

	assert.Len(t, out.MonthlyData["January"].Expenses, 2)
	assert.Len(t, out.MonthlyData["March"].Expenses, 1)
	assert.Equal(t, models.TransactionExpense, out.MonthlyData["March"].Expenses[0].Type)
}

func TestMergeBulkTransactions_NoDedup(t *testing.T) {
	tx := models.Transaction{Description: "Coffee", Amount: decimal.NewFromInt(3), Date: "2025-02-10"}

	doc, err := MergeBulkTransactions(newDoc(), []models.Transaction{tx})
	require.NoError(t, err)
	doc, err = MergeBulkTransactions(doc, []models.Transaction{tx})
	require.NoError(t, err)

	exp := doc.MonthlyData["February"].Expenses
	require.Len(t, exp, 2)
	assert.NotEqual(t, exp[0].ID, exp[1].ID)
}

func TestMergeBulkTransactions_UniqueIDsWithinBatch(t *testing.T) {
	doc, _ := AddTransaction(newDoc(), "April", models.Transaction{ID: 10, Date: "2025-04-01"})
	batch := make([]models.Transaction, 50)
	for i := range batch {
		batch[i] = models.Transaction{ID: 10, Date: "2025-04-02", Amount: decimal.NewFromInt(1)}
	}

	out, err := MergeBulkTransactions(doc, batch)
	require.NoError(t, err)

	seen := map[int64]bool{}
	for _, e := range out.MonthlyData["April"].Expenses {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
	}
	assert.Len(t, seen, 51)
}

func TestMergeBulkTransactions_RejectsBadDate(t *testing.T) {
	doc := newDoc()
	_, err := MergeBulkTransactions(doc, []models.Transaction{
		{Date: "2025-01-01"},
		{Date: "not a date"},
	})
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.Empty(t, doc.MonthlyData)
}
