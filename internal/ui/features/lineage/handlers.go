// Package lineage provides the lineage API handlers.
package lineage

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"log/slog"

	"github.com/chartline-io/chartline/internal/engine"
)

// Handlers provides HTTP handlers for the lineage feature.
type Handlers struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng *engine.Engine, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handlers{engine: eng, logger: logger}
}

// ComputeLineage handles POST /api/lineage.
func (h *Handlers) ComputeLineage(w http.ResponseWriter, r *http.Request) {
	var req LineageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.engine.ComputeLineage(req.SQL, req.FilterDateColumn)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BuildGraph handles POST /api/lineage/graph.
func (h *Handlers) BuildGraph(w http.ResponseWriter, r *http.Request) {
	var req GraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.engine.BuildGraphAndLayout(engine.GraphRequest{
		SQL:              req.SQL,
		FilterDateColumn: req.FilterDateColumn,
		Width:            req.Viewport.Width,
		Height:           req.Viewport.Height,
		IncludeColumns:   req.IncludeColumns,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeEngineError maps facade errors to HTTP statuses. Oversized input is
// checked first since it also matches the invalid-input sentinel.
func (h *Handlers) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrSQLTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, engine.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("lineage computation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
