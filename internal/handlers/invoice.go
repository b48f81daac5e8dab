package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/annaehugo/freepharma/internal/services/danfe"
)

// listInvoices returns all imported invoices.
func (r *Router) listInvoices(w http.ResponseWriter, req *http.Request) {
	invoices, err := r.repo.ListInvoices(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list invoices")
		return
	}
	respondJSON(w, http.StatusOK, invoices)
}

// getInvoice returns one invoice with its supplier and items.
func (r *Router) getInvoice(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	invoice, err := r.repo.GetInvoice(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load invoice")
		return
	}
	if invoice == nil {
		respondError(w, http.StatusNotFound, "Invoice not found")
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

// downloadDanfe renders the invoice summary sheet as a PDF.
func (r *Router) downloadDanfe(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	invoice, err := r.repo.GetInvoice(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load invoice")
		return
	}
	if invoice == nil {
		respondError(w, http.StatusNotFound, "Invoice not found")
		return
	}

	pdf, err := danfe.Generate(invoice)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate DANFE")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="danfe_%s.pdf"`, invoice.Number))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
