// Package main provides the API router setup.
package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/medbill-ai/coding-engine/cmd/coding-engine-api/handlers"
	"github.com/medbill-ai/coding-engine/cmd/coding-engine-api/middleware"
	"github.com/medbill-ai/coding-engine/internal/config"
	"github.com/medbill-ai/coding-engine/internal/monitoring"
	"github.com/medbill-ai/coding-engine/internal/observability"
	"github.com/medbill-ai/coding-engine/pkg/engine"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, eng *engine.Engine, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.ReadTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"coding-engine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ready","catalogSize":%d,"vectorAvailable":%t}`,
			eng.CatalogSize(), eng.VectorAvailable())
	})

	auditLogger := monitoring.NewAuditLogger(logger, eng.Cache(), 0)
	suggestionHandler := handlers.NewSuggestionHandler(logger, eng, auditLogger)
	codeHandler := handlers.NewCodeHandler(logger, eng)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/suggestions", func(r chi.Router) {
			r.Post("/", suggestionHandler.Suggest)
		})

		r.Route("/codes", func(r chi.Router) {
			r.Get("/", codeHandler.Search)
			r.Get("/{code}", codeHandler.Get)
		})
	})

	return r
}
