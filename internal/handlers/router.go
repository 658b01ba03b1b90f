package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xelth-com/eckcutgo/internal/buildinfo"
	"github.com/xelth-com/eckcutgo/internal/middleware"
	"github.com/xelth-com/eckcutgo/internal/services/imports"
	"github.com/xelth-com/eckcutgo/internal/store"
)

// Router wraps the mux router and the services behind it
type Router struct {
	*mux.Router
	imports *imports.Service
	store   store.Store
	log     *zap.Logger
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(svc *imports.Service, st store.Store, log *zap.Logger) *Router {
	r := &Router{
		Router:  mux.NewRouter(),
		imports: svc,
		store:   st,
		log:     log,
	}
	r.Use(middleware.Recoverer(log), middleware.RequestLogger(log))

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Import routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/imports", r.parseBundle).Methods("POST")
	api.HandleFunc("/imports/workbook", r.parseWorkbook).Methods("POST")
	api.HandleFunc("/imports/{session}", r.getSession).Methods("GET")
	api.HandleFunc("/imports/{session}/convert", r.convert).Methods("POST")

	// Work order routes
	api.HandleFunc("/workorders/{id}", r.getWorkOrder).Methods("GET")
	api.HandleFunc("/workorders/{id}/labels", r.workOrderLabels).Methods("GET")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	resp := buildinfo.Fields()
	resp["status"] = "ok"
	resp["service"] = "eckcut"
	resp["database"] = "ok"

	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()
	if err := r.store.Ping(ctx); err != nil {
		r.log.Warn("Health check: database unavailable", zap.Error(err))
		resp["status"] = "degraded"
		resp["database"] = "unavailable"
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
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

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, imports.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, imports.ErrEmptyImport):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
