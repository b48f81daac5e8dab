package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// listSuppliers returns all registered suppliers.
func (r *Router) listSuppliers(w http.ResponseWriter, req *http.Request) {
	suppliers, err := r.repo.ListSuppliers(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list suppliers")
		return
	}
	respondJSON(w, http.StatusOK, suppliers)
}

// getSupplier returns one supplier by id.
func (r *Router) getSupplier(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	supplier, err := r.repo.GetSupplier(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load supplier")
		return
	}
	if supplier == nil {
		respondError(w, http.StatusNotFound, "Supplier not found")
		return
	}
	respondJSON(w, http.StatusOK, supplier)
}
