package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/annaehugo/freepharma/internal/buildinfo"
	"github.com/annaehugo/freepharma/internal/config"
	"github.com/annaehugo/freepharma/internal/middleware"
	"github.com/annaehugo/freepharma/internal/nfe"
	"github.com/annaehugo/freepharma/internal/repository"
	"github.com/annaehugo/freepharma/internal/services/inconsistency"
	"github.com/annaehugo/freepharma/internal/services/stock"
)

// Router wraps the mux router with the repositories and services the
// handlers need.
type Router struct {
	*mux.Router
	cfg             *config.Config
	repo            *repository.Repository
	importer        *nfe.Importer
	stock           *stock.Service
	inconsistencies *inconsistency.Service
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(cfg *config.Config, repo *repository.Repository) *Router {
	r := &Router{
		Router:          mux.NewRouter(),
		cfg:             cfg,
		repo:            repo,
		importer:        nfe.NewImporter(repo, cfg.Upload.MaxSizeBytes),
		stock:           stock.New(repo),
		inconsistencies: inconsistency.New(repo),
	}

	r.Use(middleware.RequestLogger)

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret))

	// NFe ingestion
	api.HandleFunc("/nfe/import", r.importNFe).Methods("POST")
	api.HandleFunc("/nfe/imports", r.listImports).Methods("GET")
	api.HandleFunc("/nfe/imports/{id}", r.getImport).Methods("GET")

	// Invoices
	api.HandleFunc("/invoices", r.listInvoices).Methods("GET")
	api.HandleFunc("/invoices/{id}", r.getInvoice).Methods("GET")
	api.HandleFunc("/invoices/{id}/danfe", r.downloadDanfe).Methods("GET")

	// Inconsistencies
	api.HandleFunc("/inconsistencies", r.listInconsistencies).Methods("GET")
	api.HandleFunc("/inconsistencies/{id}", r.getInconsistency).Methods("GET")
	api.HandleFunc("/inconsistencies/{id}/resolve", r.resolveInconsistency).Methods("POST")
	api.HandleFunc("/inconsistencies/{id}/reopen", r.reopenInconsistency).Methods("POST")

	// Stock
	api.HandleFunc("/stock", r.listStock).Methods("GET")
	api.HandleFunc("/stock/{id}", r.getStock).Methods("GET")
	api.HandleFunc("/stock/{id}/adjust", r.adjustStock).Methods("POST")
	api.HandleFunc("/stock/{id}/block", r.blockStock).Methods("POST")
	api.HandleFunc("/stock/{id}/unblock", r.unblockStock).Methods("POST")
	api.HandleFunc("/stock/{id}/adjustments", r.listStockAdjustments).Methods("GET")

	// Suppliers
	api.HandleFunc("/suppliers", r.listSuppliers).Methods("GET")
	api.HandleFunc("/suppliers/{id}", r.getSupplier).Methods("GET")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"commit":    buildinfo.CommitHash,
		"buildTime": buildinfo.BuildTime,
		"startTime": buildinfo.StartTime,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
