package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/annaehugo/freepharma/internal/repository"
	"github.com/annaehugo/freepharma/internal/services/inconsistency"
)

// listInconsistencies returns findings filtered by the query string:
// invoiceId, type, status and unresolved=true are supported.
func (r *Router) listInconsistencies(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	filter := repository.InconsistencyFilter{
		InvoiceID:  q.Get("invoiceId"),
		Type:       q.Get("type"),
		Status:     q.Get("status"),
		Unresolved: q.Get("unresolved") == "true",
	}

	findings, err := r.inconsistencies.List(req.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list inconsistencies")
		return
	}
	respondJSON(w, http.StatusOK, findings)
}

// getInconsistency returns one finding by id.
func (r *Router) getInconsistency(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	finding, err := r.inconsistencies.Get(req.Context(), id)
	if err != nil {
		if errors.Is(err, inconsistency.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Inconsistency not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to load inconsistency")
		return
	}
	respondJSON(w, http.StatusOK, finding)
}

type resolutionRequest struct {
	Notes string `json:"notes"`
}

// resolveInconsistency marks a finding as resolved.
func (r *Router) resolveInconsistency(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	var body resolutionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	finding, err := r.inconsistencies.Resolve(req.Context(), id, body.Notes)
	if err != nil {
		if errors.Is(err, inconsistency.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Inconsistency not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to resolve inconsistency")
		return
	}
	respondJSON(w, http.StatusOK, finding)
}

// reopenInconsistency puts a resolved finding back into circulation.
func (r *Router) reopenInconsistency(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	var body resolutionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	finding, err := r.inconsistencies.Reopen(req.Context(), id, body.Notes)
	if err != nil {
		if errors.Is(err, inconsistency.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Inconsistency not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to reopen inconsistency")
		return
	}
	respondJSON(w, http.StatusOK, finding)
}
