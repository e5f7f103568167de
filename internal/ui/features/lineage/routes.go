package lineage

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/chartline-io/chartline/internal/engine"
)

// SetupRoutes registers the lineage feature routes.
func SetupRoutes(router chi.Router, eng *engine.Engine, logger *slog.Logger) {
	handlers := NewHandlers(eng, logger)

	router.Route("/api/lineage", func(r chi.Router) {
		r.Post("/", handlers.ComputeLineage)
		r.Post("/graph", handlers.BuildGraph)
	})
}
