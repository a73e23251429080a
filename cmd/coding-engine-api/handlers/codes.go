package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medbill-ai/coding-engine/internal/catalog"
	"github.com/medbill-ai/coding-engine/internal/observability"
	"github.com/medbill-ai/coding-engine/internal/suggest"
	"github.com/medbill-ai/coding-engine/pkg/engine"
)

// CodeHandler handles catalog lookup and search requests.
type CodeHandler struct {
	logger *observability.Logger
	engine *engine.Engine
}

// NewCodeHandler creates a new code handler.
func NewCodeHandler(logger *observability.Logger, eng *engine.Engine) *CodeHandler {
	return &CodeHandler{
		logger: logger,
		engine: eng,
	}
}

// Get handles GET /api/v1/codes/{code}.
func (h *CodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	rec, ok := h.engine.GetCode(code)
	if !ok {
		writeError(w, http.StatusNotFound, "code not found", code)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Search handles GET /api/v1/codes?query=...&category=...&slot=...
func (h *CodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required", "")
		return
	}

	filters := suggest.SearchFilters{
		Category: catalog.Category(r.URL.Query().Get("category")),
		Slot:     catalog.ParseSlot(r.URL.Query().Get("slot")),
	}

	records := h.engine.SearchCodes(query, filters)
	if records == nil {
		records = []*catalog.CodeRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(records),
		"results": records,
	})
}
