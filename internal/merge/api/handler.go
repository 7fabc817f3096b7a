package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fairfinder/internal/auth"
	"fairfinder/internal/merge"
	"fairfinder/internal/models"
	"fairfinder/internal/utils"
)

type Handler struct {
	MergeService *merge.MergeService
}

// GetMergePreview handles GET /admin/merge/{entityType}/preview with
// primary_id and duplicate_id query params.
func (h *Handler) GetMergePreview(w http.ResponseWriter, r *http.Request) {
	entityType := models.EntityType(chi.URLParam(r, "entityType"))
	primaryID := r.URL.Query().Get("primary_id")
	duplicateID := r.URL.Query().Get("duplicate_id")

	if primaryID == "" || duplicateID == "" {
		http.Error(w, "primary_id and duplicate_id are required", http.StatusBadRequest)
		return
	}

	preview, err := h.MergeService.GetMergePreview(r.Context(), entityType, primaryID, duplicateID)
	if err != nil {
		writeMergeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(preview)
}

// ExecuteMerge handles POST /admin/merge/{entityType} with a JSON body
// naming the primary and duplicate ids.
func (h *Handler) ExecuteMerge(w http.ResponseWriter, r *http.Request) {
	entityType := models.EntityType(chi.URLParam(r, "entityType"))

	var req struct {
		PrimaryID   string `json:"primary_id"`
		DuplicateID string `json:"duplicate_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.PrimaryID == "" || req.DuplicateID == "" {
		http.Error(w, "primary_id and duplicate_id are required", http.StatusBadRequest)
		return
	}

	result, err := h.MergeService.ExecuteMerge(r.Context(), entityType, req.PrimaryID, req.DuplicateID, auth.UserID(r.Context()))
	if err != nil {
		writeMergeError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("merge completed", result))
}

func writeMergeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, merge.ErrUnknownEntityType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, merge.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, merge.ErrMergeInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Merge failed: "+err.Error(), http.StatusInternalServerError)
	}
}
