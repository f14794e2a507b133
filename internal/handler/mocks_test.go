package handler

import (
	"context"

	"github.com/Pirozshki/FinancePro/internal/ingest"
	"github.com/Pirozshki/FinancePro/internal/models"
	"github.com/Pirozshki/FinancePro/internal/store"
	"github.com/shopspring/decimal"
)

// MockBudgetStore is a mock implementation of BudgetStore.
type MockBudgetStore struct {
	DocumentFunc                  func() *models.BudgetDocument
	StatusFunc                    func() store.Status
	SetIncomeFunc                 func(amount decimal.Decimal) *models.BudgetDocument
	AddTransactionFunc            func(monthKey string, t models.Transaction) (*models.BudgetDocument, error)
	DeleteTransactionFunc         func(monthKey string, id int64) *models.BudgetDocument
	UpdateTransactionCategoryFunc func(monthKey string, id int64, category string) *models.BudgetDocument
	UpdateLimitFunc               func(monthKey, category string, amount decimal.Decimal) (*models.BudgetDocument, error)
	MergeBulkTransactionsFunc     func(txns []models.Transaction) (*models.BudgetDocument, error)
}

func (m *MockBudgetStore) Document() *models.BudgetDocument {
	if m.DocumentFunc != nil {
		return m.DocumentFunc()
	}
	return models.DefaultDocument()
}

func (m *MockBudgetStore) Status() store.Status {
	if m.StatusFunc != nil {
		return m.StatusFunc()
	}
	return store.StatusIdle
}

func (m *MockBudgetStore) SetIncome(amount decimal.Decimal) *models.BudgetDocument {
	if m.SetIncomeFunc != nil {
		return m.SetIncomeFunc(amount)
	}
	return models.DefaultDocument()
}

func (m *MockBudgetStore) AddTransaction(monthKey string, t models.Transaction) (*models.BudgetDocument, error) {
	if m.AddTransactionFunc != nil {
		return m.AddTransactionFunc(monthKey, t)
	}
	return models.DefaultDocument(), nil
}

func (m *MockBudgetStore) DeleteTransaction(monthKey string, id int64) *models.BudgetDocument {
	if m.DeleteTransactionFunc != nil {
		return m.DeleteTransactionFunc(monthKey, id)
	}
	return models.DefaultDocument()
}

func (m *MockBudgetStore) UpdateTransactionCategory(monthKey string, id int64, category string) *models.BudgetDocument {
	if m.UpdateTransactionCategoryFunc != nil {
		return m.UpdateTransactionCategoryFunc(monthKey, id, category)
	}
	return models.DefaultDocument()
}

func (m *MockBudgetStore) UpdateLimit(monthKey, category string, amount decimal.Decimal) (*models.BudgetDocument, error) {
	if m.UpdateLimitFunc != nil {
		return m.UpdateLimitFunc(monthKey, category, amount)
	}
	return models.DefaultDocument(), nil
}

func (m *MockBudgetStore) MergeBulkTransactions(txns []models.Transaction) (*models.BudgetDocument, error) {
	if m.MergeBulkTransactionsFunc != nil {
		return m.MergeBulkTransactionsFunc(txns)
	}
	return models.DefaultDocument(), nil
}

// MockImportSession is a mock implementation of ImportSession.
type MockImportSession struct {
	LoadFunc        func(source, content string, categories []string) error
	SetCategoryFunc func(index int, category string) error
	ConfirmFunc     func(c ingest.Committer) (int, error)
	ResetFunc       func()
	StateFunc       func() ingest.State
}

func (m *MockImportSession) Load(source, content string, categories []string) error {
	if m.LoadFunc != nil {
		return m.LoadFunc(source, content, categories)
	}
	return nil
}

func (m *MockImportSession) SetCategory(index int, category string) error {
	if m.SetCategoryFunc != nil {
		return m.SetCategoryFunc(index, category)
	}
	return nil
}

func (m *MockImportSession) Confirm(c ingest.Committer) (int, error) {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(c)
	}
	return 0, nil
}

func (m *MockImportSession) Reset() {
	if m.ResetFunc != nil {
		m.ResetFunc()
	}
}

func (m *MockImportSession) State() ingest.State {
	if m.StateFunc != nil {
		return m.StateFunc()
	}
	return ingest.State{Stage: ingest.StageUpload, Candidates: []ingest.Candidate{}}
}

// MockArchive is a mock implementation of StatementArchive.
type MockArchive struct {
	SaveFunc func(ctx context.Context, filename, content string) (string, error)
	OpenFunc func(ctx context.Context, blobName string) (string, error)
}

func (m *MockArchive) Save(ctx context.Context, filename, content string) (string, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, filename, content)
	}
	return "uploads/20240301-120000-" + filename, nil
}

func (m *MockArchive) Open(ctx context.Context, blobName string) (string, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, blobName)
	}
	return "", nil
}
