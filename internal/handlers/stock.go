package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/annaehugo/freepharma/internal/services/stock"
)

// listStock returns stock records, optionally scoped to one unit via the
// unitId query parameter.
func (r *Router) listStock(w http.ResponseWriter, req *http.Request) {
	records, err := r.stock.List(req.Context(), req.URL.Query().Get("unitId"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list stock")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// getStock returns one stock record by id.
func (r *Router) getStock(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	record, err := r.stock.Get(req.Context(), id)
	if err != nil {
		if errors.Is(err, stock.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Stock record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to load stock record")
		return
	}
	respondJSON(w, http.StatusOK, record)
}

type adjustStockRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
	UserID   string `json:"userId"`
}

// adjustStock sets a new quantity on a stock record, writing an audit entry.
func (r *Router) adjustStock(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	var body adjustStockRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if body.Reason == "" {
		respondError(w, http.StatusBadRequest, "Adjustment reason is required")
		return
	}

	record, err := r.stock.Adjust(req.Context(), id, body.Quantity, body.Reason, body.UserID)
	if err != nil {
		switch {
		case errors.Is(err, stock.ErrNotFound):
			respondError(w, http.StatusNotFound, "Stock record not found")
		case errors.Is(err, stock.ErrNegativeQuantity), errors.Is(err, stock.ErrBlocked):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "Failed to adjust stock")
		}
		return
	}
	respondJSON(w, http.StatusOK, record)
}

type blockStockRequest struct {
	Reason string `json:"reason"`
}

// blockStock freezes a stock record against movements.
func (r *Router) blockStock(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	var body blockStockRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	record, err := r.stock.Block(req.Context(), id, body.Reason)
	if err != nil {
		if errors.Is(err, stock.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Stock record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to block stock")
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// unblockStock lifts a block.
func (r *Router) unblockStock(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	record, err := r.stock.Unblock(req.Context(), id)
	if err != nil {
		if errors.Is(err, stock.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Stock record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to unblock stock")
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// listStockAdjustments returns the audit trail of one stock record.
func (r *Router) listStockAdjustments(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	adjustments, err := r.stock.Adjustments(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list adjustments")
		return
	}
	respondJSON(w, http.StatusOK, adjustments)
}
