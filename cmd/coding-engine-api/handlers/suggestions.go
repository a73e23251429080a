// Package handlers provides HTTP handlers for the Coding Engine API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/medbill-ai/coding-engine/internal/catalog"
	"github.com/medbill-ai/coding-engine/internal/monitoring"
	"github.com/medbill-ai/coding-engine/internal/observability"
	"github.com/medbill-ai/coding-engine/internal/suggest"
	"github.com/medbill-ai/coding-engine/pkg/engine"
)

const maxSuggestionsCap = 20

// SuggestionHandler handles billing-code suggestion requests.
type SuggestionHandler struct {
	logger *observability.Logger
	engine *engine.Engine
	audit  *monitoring.AuditLogger
}

// NewSuggestionHandler creates a new suggestion handler.
func NewSuggestionHandler(logger *observability.Logger, eng *engine.Engine, audit *monitoring.AuditLogger) *SuggestionHandler {
	return &SuggestionHandler{
		logger: logger,
		engine: eng,
		audit:  audit,
	}
}

// SuggestionRequestDTO represents the API request for suggestions.
type SuggestionRequestDTO struct {
	ClinicalText   string   `json:"clinicalText"`
	EncounterType  string   `json:"encounterType,omitempty"`
	TimeOfDay      string   `json:"timeOfDay,omitempty"`
	Specialty      string   `json:"specialty,omitempty"`
	ExistingCodes  []string `json:"existingCodes,omitempty"`
	MaxSuggestions int      `json:"maxSuggestions,omitempty"`
}

// Suggest handles POST /api/v1/suggestions.
func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO SuggestionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if reqDTO.ClinicalText == "" {
		writeError(w, http.StatusBadRequest, "clinicalText is required", "")
		return
	}
	if reqDTO.MaxSuggestions < 0 || reqDTO.MaxSuggestions > maxSuggestionsCap {
		writeError(w, http.StatusBadRequest, "maxSuggestions must be between 1 and 20", "")
		return
	}

	var slot catalog.TimeSlot
	if reqDTO.TimeOfDay != "" {
		slot = catalog.ParseSlot(reqDTO.TimeOfDay)
		if slot == "" {
			writeError(w, http.StatusBadRequest, "invalid timeOfDay", "valid values: Day, Evening, Night, Weekend")
			return
		}
	}

	resp, err := h.engine.Process(ctx, suggest.Request{
		ClinicalText:   reqDTO.ClinicalText,
		EncounterType:  reqDTO.EncounterType,
		TimeOfDay:      slot,
		Specialty:      reqDTO.Specialty,
		ExistingCodes:  reqDTO.ExistingCodes,
		MaxSuggestions: reqDTO.MaxSuggestions,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Suggestion processing failed")
		writeError(w, http.StatusInternalServerError, "suggestion processing failed", err.Error())
		return
	}

	if h.audit != nil {
		codes := make([]string, len(resp.Suggestions))
		for i, s := range resp.Suggestions {
			codes[i] = s.Record.Code
		}
		h.audit.Record(ctx, monitoring.AuditEvent{
			RequestID:       resp.RequestID,
			TimeSlot:        string(resp.TimeSlot),
			SuggestedCodes:  codes,
			TotalRevenue:    resp.TotalRevenue.StringFixed(2),
			OverallRisk:     string(resp.OverallRisk),
			ComplianceScore: resp.ComplianceScore,
			Cached:          resp.Cached,
			LatencyMs:       resp.LatencyMs,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{"error": message}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
