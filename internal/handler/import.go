package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/Pirozshki/FinancePro/internal/csvparse"
	"github.com/Pirozshki/FinancePro/internal/ingest"
)

const maxUploadBytes = 10 << 20

type importResponse struct {
	ingest.State
	Status   string `json:"status"`
	BlobName string `json:"blobName,omitempty"`
}

// HandleImportState returns the import under review, if any.
func (d *Dependencies) HandleImportState(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, importResponse{State: d.Import.State(), Status: "ok"})
}

// HandleImportUpload accepts a Chase CSV export, archives it and opens it
// for review.
func (d *Dependencies) HandleImportUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		slog.Warn("failed to parse multipart form", "error", err, "max_size_mb", maxUploadBytes>>20)
		WriteError(w, http.StatusBadRequest, "File too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Warn("failed to get file from form", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to get file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read uploaded file", "filename", header.Filename, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	content := string(data)
	filename := filepath.Base(header.Filename)
	slog.Info("received statement upload", "filename", filename, "size_bytes", len(data))

	var blobName string
	if d.Archive != nil {
		blobName, err = d.Archive.Save(r.Context(), filename, content)
		if err != nil {
			// The statement can still be reviewed without its archived copy.
			slog.Error("failed to archive statement", "filename", filename, "error", err)
		}
	}

	d.loadStatement(w, filename, content, blobName)
}

// HandleImportArchived re-opens a previously archived statement for review.
func (d *Dependencies) HandleImportArchived(w http.ResponseWriter, r *http.Request) {
	if d.Archive == nil {
		WriteError(w, http.StatusNotFound, "Statement archive is not configured")
		return
	}

	var req struct {
		BlobName string `json:"blobName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.BlobName == "" {
		WriteError(w, http.StatusBadRequest, "Missing blobName")
		return
	}

	content, err := d.Archive.Open(r.Context(), req.BlobName)
	if err != nil {
		slog.Error("failed to open archived statement", "blob_name", req.BlobName, "error", err)
		WriteError(w, http.StatusNotFound, "Failed to open archived statement: "+err.Error())
		return
	}

	d.loadStatement(w, filepath.Base(req.BlobName), content, req.BlobName)
}

func (d *Dependencies) loadStatement(w http.ResponseWriter, source, content, blobName string) {
	err := d.Import.Load(source, content, d.Store.Document().Categories)
	resp := importResponse{State: d.Import.State(), BlobName: blobName}

	switch {
	case errors.Is(err, csvparse.ErrNoExpenses):
		resp.Status = "empty"
		WriteJSON(w, http.StatusOK, resp)
	case errors.Is(err, csvparse.ErrFormat):
		resp.Status = "error"
		WriteJSON(w, http.StatusUnprocessableEntity, resp)
	case err != nil:
		slog.Error("failed to load statement", "source", source, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to load statement: "+err.Error())
	default:
		resp.Status = "review"
		WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleImportSetCategory overrides the category of one candidate row.
func (d *Dependencies) HandleImportSetCategory(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid row index")
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := d.Import.SetCategory(index, req.Category); err != nil {
		switch {
		case errors.Is(err, ingest.ErrNotReviewing):
			WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ingest.ErrNoSuchRow):
			WriteError(w, http.StatusNotFound, err.Error())
		default:
			WriteError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	WriteJSON(w, http.StatusOK, importResponse{State: d.Import.State(), Status: "review"})
}

// HandleImportConfirm merges the reviewed rows into the budget.
func (d *Dependencies) HandleImportConfirm(w http.ResponseWriter, r *http.Request) {
	n, err := d.Import.Confirm(d.Store)
	if err != nil {
		if errors.Is(err, ingest.ErrNotReviewing) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("failed to confirm import", "error", err)
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "imported",
		"imported": n,
		"document": d.Store.Document(),
	})
}

// HandleImportDiscard abandons the current import.
func (d *Dependencies) HandleImportDiscard(w http.ResponseWriter, r *http.Request) {
	d.Import.Reset()
	WriteJSON(w, http.StatusOK, importResponse{State: d.Import.State(), Status: "discarded"})
}
