package handler

import (
	"net/http"
)

// Routes registers every API endpoint on a new mux.
func (d *Dependencies) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/budget", d.HandleGetBudget)
	mux.HandleFunc("PUT /api/income", d.HandleSetIncome)
	mux.HandleFunc("GET /api/months/{month}/summary", d.HandleMonthSummary)
	mux.HandleFunc("POST /api/months/{month}/transactions", d.HandleAddTransaction)
	mux.HandleFunc("DELETE /api/months/{month}/transactions/{id}", d.HandleDeleteTransaction)
	mux.HandleFunc("PATCH /api/months/{month}/transactions/{id}", d.HandleUpdateTransactionCategory)
	mux.HandleFunc("PUT /api/months/{month}/limits", d.HandleUpdateLimit)

	mux.HandleFunc("GET /api/import", d.HandleImportState)
	mux.HandleFunc("POST /api/import", d.HandleImportUpload)
	mux.HandleFunc("DELETE /api/import", d.HandleImportDiscard)
	mux.HandleFunc("POST /api/import/archived", d.HandleImportArchived)
	mux.HandleFunc("PATCH /api/import/rows/{index}", d.HandleImportSetCategory)
	mux.HandleFunc("POST /api/import/confirm", d.HandleImportConfirm)

	// Azure Functions custom handler entry point when request forwarding
	// is disabled on the host.
	mux.HandleFunc("/HttpTrigger", HandleHttpTrigger(mux))

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "save_status": d.Store.Status().String()})
	})

	return mux
}
