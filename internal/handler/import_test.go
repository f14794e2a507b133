package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Pirozshki/FinancePro/internal/categorize"
	"github.com/Pirozshki/FinancePro/internal/csvparse"
	"github.com/Pirozshki/FinancePro/internal/ingest"
	"github.com/Pirozshki/FinancePro/internal/models"
	"github.com/Pirozshki/FinancePro/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chaseStatement = "Transaction Date,Post Date,Description,Category,Type,Amount,Memo\n" +
	"03/05/2024,03/06/2024,JEWEL OSCO 123,Groceries,Sale,-54.20,\n" +
	"03/07/2024,03/08/2024,PAYMENT THANK YOU,,Payment,500.00,\n" +
	"03/09/2024,03/10/2024,ODD SHOP,Shopping,Sale,-12.00,\n"

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleImportUpload_Success(t *testing.T) {
	var archived, loaded string
	var categories []string
	deps := &Dependencies{
		Store: &MockBudgetStore{},
		Archive: &MockArchive{SaveFunc: func(ctx context.Context, filename, content string) (string, error) {
			archived = content
			assert.Equal(t, "march.csv", filename)
			return "uploads/20240301-120000-march.csv", nil
		}},
		Import: &MockImportSession{
			LoadFunc: func(source, content string, cats []string) error {
				loaded, categories = content, cats
				return nil
			},
			StateFunc: func() ingest.State {
				return ingest.State{Stage: ingest.StageReview, Candidates: []ingest.Candidate{{Description: "JEWEL OSCO 123"}}}
			},
		},
	}

	w := httptest.NewRecorder()
	deps.Routes().ServeHTTP(w, uploadRequest(t, "march.csv", chaseStatement))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, chaseStatement, archived)
	assert.Equal(t, chaseStatement, loaded)
	assert.Equal(t, models.DefaultCategories(), categories)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "review", resp["status"])
	assert.Equal(t, "review", resp["stage"])
	assert.Equal(t, "uploads/20240301-120000-march.csv", resp["blobName"])
}

func TestHandleImportUpload_ArchiveFailureStillLoads(t *testing.T) {
	loadedCalled := false
	deps := &Dependencies{
		Store: &MockBudgetStore{},
		Archive: &MockArchive{SaveFunc: func(ctx context.Context, filename, content string) (string, error) {
			return "", errors.New("blob unavailable")
		}},
		Import: &MockImportSession{LoadFunc: func(source, content string, cats []string) error {
			loadedCalled = true
			return nil
		}},
	}

	w := httptest.NewRecorder()
	deps.Routes().ServeHTTP(w, uploadRequest(t, "march.csv", chaseStatement))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, loadedCalled)
}

func TestHandleImportUpload_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		loadErr    error
		wantCode   int
		wantStatus string
	}{
		{"format error", fmt.Errorf("%w: no header row", csvparse.ErrFormat), http.StatusUnprocessableEntity, "error"},
		{"no expenses", csvparse.ErrNoExpenses, http.StatusOK, "empty"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := &Dependencies{
				Store: &MockBudgetStore{},
				Import: &MockImportSession{LoadFunc: func(source, content string, cats []string) error {
					return tt.loadErr
				}},
			}

			w := httptest.NewRecorder()
			deps.Routes().ServeHTTP(w, uploadRequest(t, "x.csv", "junk"))

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantStatus != "" {
				var resp map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantStatus, resp["status"])
			}
		})
	}
}

func TestHandleImportUpload_MissingFile(t *testing.T) {
	deps := &Dependencies{Store: &MockBudgetStore{}, Import: &MockImportSession{}}
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	deps.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleImportArchived(t *testing.T) {
	var loadedSource string
	deps := &Dependencies{
		Store: &MockBudgetStore{},
		Archive: &MockArchive{OpenFunc: func(ctx context.Context, blobName string) (string, error) {
			assert.Equal(t, "uploads/20240301-120000-march.csv", blobName)
			return chaseStatement, nil
		}},
		Import: &MockImportSession{LoadFunc: func(source, content string, cats []string) error {
			loadedSource = source
			return nil
		}},
	}

	w := serve(deps, http.MethodPost, "/api/import/archived", `{"blobName":"uploads/20240301-120000-march.csv"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20240301-120000-march.csv", loadedSource)
}

func TestHandleImportArchived_Errors(t *testing.T) {
	noArchive := &Dependencies{Store: &MockBudgetStore{}, Import: &MockImportSession{}}
	assert.Equal(t, http.StatusNotFound, serve(noArchive, http.MethodPost, "/api/import/archived", `{"blobName":"uploads/a.csv"}`).Code)

	missing := &Dependencies{
		Store:  &MockBudgetStore{},
		Import: &MockImportSession{},
		Archive: &MockArchive{OpenFunc: func(ctx context.Context, blobName string) (string, error) {
			return "", errors.New("blob not found")
		}},
	}
	assert.Equal(t, http.StatusBadRequest, serve(missing, http.MethodPost, "/api/import/archived", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(missing, http.MethodPost, "/api/import/archived", `{"blobName":"uploads/a.csv"}`).Code)
}

func TestHandleImportSetCategory_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"ok", nil, http.StatusOK},
		{"not reviewing", ingest.ErrNotReviewing, http.StatusConflict},
		{"no such row", fmt.Errorf("%w: 9", ingest.ErrNoSuchRow), http.StatusNotFound},
		{"unknown category", fmt.Errorf("%w: \"x\"", ingest.ErrUnknownCategory), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotIndex int
			deps := &Dependencies{Store: &MockBudgetStore{}, Import: &MockImportSession{
				SetCategoryFunc: func(index int, category string) error {
					gotIndex = index
					return tt.err
				},
			}}

			w := serve(deps, http.MethodPatch, "/api/import/rows/2", `{"category":"🚗 Transport"}`)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, 2, gotIndex)
		})
	}

	deps := &Dependencies{Store: &MockBudgetStore{}, Import: &MockImportSession{}}
	assert.Equal(t, http.StatusBadRequest, serve(deps, http.MethodPatch, "/api/import/rows/two", `{"category":"x"}`).Code)
}

func TestHandleImportConfirm(t *testing.T) {
	budget := &MockBudgetStore{}
	deps := &Dependencies{Store: budget, Import: &MockImportSession{
		ConfirmFunc: func(c ingest.Committer) (int, error) {
			assert.Same(t, budget, c)
			return 3, nil
		},
	}}

	w := serve(deps, http.MethodPost, "/api/import/confirm", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp["imported"])
}

func TestHandleImportConfirm_Errors(t *testing.T) {
	conflict := &Dependencies{Store: &MockBudgetStore{}, Import: &MockImportSession{
		ConfirmFunc: func(c ingest.Committer) (int, error) { return 0, ingest.ErrNotReviewing },
	}}
	assert.Equal(t, http.StatusConflict, serve(conflict, http.MethodPost, "/api/import/confirm", "").Code)

	failed := &Dependencies{Store: &MockBudgetStore{}, Import: &MockImportSession{
		ConfirmFunc: func(c ingest.Committer) (int, error) { return 0, errors.New("invalid date") },
	}}
	assert.Equal(t, http.StatusInternalServerError, serve(failed, http.MethodPost, "/api/import/confirm", "").Code)
}

func TestHandleImportDiscard(t *testing.T) {
	reset := false
	deps := &Dependencies{Store: &MockBudgetStore{}, Import: &MockImportSession{ResetFunc: func() { reset = true }}}

	w := serve(deps, http.MethodDelete, "/api/import", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reset)
}

type nopRemote struct{}

func (nopRemote) Fetch(ctx context.Context, key string) (*models.BudgetDocument, error) {
	return nil, nil
}

func (nopRemote) Upsert(ctx context.Context, key string, doc *models.BudgetDocument) error {
	return nil
}

func (nopRemote) Subscribe(ctx context.Context, key string, onChange func(*models.BudgetDocument)) (func(), error) {
	return func() {}, nil
}

func TestImportFlow_EndToEnd(t *testing.T) {
	budget := store.New(nopRemote{}, store.Config{Key: "1", Debounce: time.Hour, SavedDisplay: time.Millisecond})
	defer budget.Close()
	deps := &Dependencies{
		Store:  budget,
		Import: ingest.NewSession(categorize.NewMapper(nil)),
	}
	mux := deps.Routes()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, uploadRequest(t, "march.csv", chaseStatement))
	require.Equal(t, http.StatusOK, w.Code)

	var state ingest.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.Len(t, state.Candidates, 2)
	assert.Equal(t, models.CategoryGroceries, state.Candidates[0].Category)
	assert.Equal(t, "2024-03-05", state.Candidates[0].Date)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/import/rows/1", strings.NewReader(`{"category":"`+models.CategoryFamily+`"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/import/confirm", nil))
	require.Equal(t, http.StatusOK, w.Code)

	march := budget.Document().MonthlyData["March"]
	require.NotNil(t, march)
	require.Len(t, march.Expenses, 2)
	byDesc := map[string]models.Transaction{}
	for _, txn := range march.Expenses {
		byDesc[txn.Description] = txn
	}
	assert.True(t, byDesc["JEWEL OSCO 123"].Amount.Equal(decimal.RequireFromString("54.20")))
	assert.Equal(t, models.CategoryFamily, byDesc["ODD SHOP"].Category)
	assert.Equal(t, store.StatusSaving, budget.Status())
}
