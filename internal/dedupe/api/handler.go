package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fairfinder/internal/dedupe"
	"fairfinder/internal/models"
)

type Handler struct {
	ScanService      *dedupe.ScanService
	DefaultThreshold float64
}

// FindDuplicates handles GET /admin/duplicates/{entityType}. An optional
// threshold query param overrides the configured default.
func (h *Handler) FindDuplicates(w http.ResponseWriter, r *http.Request) {
	entityType := models.EntityType(chi.URLParam(r, "entityType"))

	threshold := h.DefaultThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			http.Error(w, "threshold must be a number between 0 and 1", http.StatusBadRequest)
			return
		}
		threshold = parsed
	}

	result, err := h.ScanService.FindDuplicates(r.Context(), entityType, threshold)
	if err != nil {
		if errors.Is(err, dedupe.ErrUnknownEntityType) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Duplicate scan failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
