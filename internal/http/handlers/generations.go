package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type generationResponse struct {
	ID            string              `json:"id"`
	TaskID        string              `json:"task_id"`
	Prompt        string              `json:"prompt"`
	RefinedPrompt string              `json:"refined_prompt"`
	Status        string              `json:"status"`
	ErrorCode     string              `json:"error_code,omitempty"`
	ErrorDetail   string              `json:"error_detail,omitempty"`
	Thumbnails    []thumbnailResponse `json:"thumbnails"`
	CreatedAt     time.Time           `json:"created_at"`
	FinishedAt    time.Time           `json:"finished_at"`
}

// GetGeneration returns a recorded generation with its stored assets.
func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	if a.History == nil {
		a.error(w, http.StatusServiceUnavailable, "history_disabled", "generation history is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid generation id")
		return
	}
	rec, err := a.History.Get(r.Context(), id)
	if err != nil {
		a.Logger.Error().Err(err).Str("generation_id", id).Msg("load generation")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load generation")
		return
	}
	if rec == nil {
		a.error(w, http.StatusNotFound, "not_found", "generation not found")
		return
	}

	out := generationResponse{
		ID:            rec.ID,
		TaskID:        rec.TaskID,
		Prompt:        rec.Prompt,
		RefinedPrompt: rec.RefinedPrompt,
		Status:        rec.Status,
		ErrorCode:     rec.ErrorCode,
		ErrorDetail:   rec.ErrorDetail,
		Thumbnails:    make([]thumbnailResponse, 0, len(rec.Assets)),
		CreatedAt:     rec.CreatedAt,
		FinishedAt:    rec.FinishedAt,
	}
	for _, asset := range rec.Assets {
		out.Thumbnails = append(out.Thumbnails, thumbnailResponse{
			URL:       asset.PublicURL,
			StorageID: asset.StorageID,
			Variant:   asset.Variant,
			TaskID:    asset.SourceTaskID,
		})
	}
	a.json(w, http.StatusOK, out)
}
