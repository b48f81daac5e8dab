package handlers

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/annaehugo/freepharma/internal/models"
	"github.com/annaehugo/freepharma/internal/nfe"
)

// importNFe receives an NFe XML as multipart form data and runs the full
// ingestion pipeline. The response status follows the result status:
// SUCCESS maps to 200, ERROR to 400 and INTERNAL_ERROR to 500.
func (r *Router) importNFe(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseMultipartForm(r.cfg.Upload.MaxSizeBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := req.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Form field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, r.cfg.Upload.MaxSizeBytes+1))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	var unit *models.Unit
	if unitID := req.FormValue("unitId"); unitID != "" {
		unit, err = r.repo.GetUnit(req.Context(), unitID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to load unit")
			return
		}
		if unit == nil {
			respondError(w, http.StatusBadRequest, "Unknown unit")
			return
		}
	}

	upload := &nfe.Upload{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		UserID:      req.FormValue("userId"),
		Note:        req.FormValue("note"),
	}

	result := r.importer.Import(req.Context(), upload, unit)

	status := http.StatusOK
	switch result.Status {
	case nfe.StatusError:
		status = http.StatusBadRequest
	case nfe.StatusInternalError:
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, result.ToMap())
}

// listImports returns the ingestion audit trail, newest first.
func (r *Router) listImports(w http.ResponseWriter, req *http.Request) {
	records, err := r.repo.ListImportRecords(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list imports")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// getImport returns one import record by id.
func (r *Router) getImport(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	record, err := r.repo.GetImportRecord(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load import record")
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "Import record not found")
		return
	}
	respondJSON(w, http.StatusOK, record)
}
