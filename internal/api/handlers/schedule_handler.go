package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/minhvu/schedly-be/internal/auth"
	"github.com/minhvu/schedly-be/internal/models"
	"github.com/minhvu/schedly-be/internal/services"
)

// ScheduleHandler handles HTTP requests for schedules.
type ScheduleHandler struct {
	service services.ScheduleServiceProvider
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(service services.ScheduleServiceProvider) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// SchedulePayload defines the structure for create/update requests.
type SchedulePayload struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Tags        *string   `json:"tags"`
	Priority    *string   `json:"priority"`
	Deadline    time.Time `json:"deadline"`
	IsCompleted bool      `json:"isCompleted"`
}

func (p SchedulePayload) toInput() services.ScheduleInput {
	return services.ScheduleInput{
		Title:       p.Title,
		Description: p.Description,
		Tags:        p.Tags,
		Priority:    p.Priority,
		Deadline:    p.Deadline,
		IsCompleted: p.IsCompleted,
	}
}

// List returns the caller's schedules ordered by ascending deadline. The
// owner comes from the token, never from the request.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	schedules, err := h.service.ListForUser(claims.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to list schedules")
		respondError(w, err)
		return
	}
	if schedules == nil {
		schedules = []models.Schedule{}
	}
	respondJSON(w, http.StatusOK, schedules)
}

// Create adds a schedule owned by the caller.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	var payload SchedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	schedule, err := h.service.Create(claims.UserID, payload.toInput())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, schedule)
}

// Update replaces the fields of a schedule the caller owns.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	id := chi.URLParam(r, "id")

	var payload SchedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	schedule, err := h.service.Update(claims.UserID, id, payload.toInput())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, schedule)
}

// Delete removes a schedule. Deleting an already-absent schedule succeeds.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(claims.UserID, id); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Schedule deleted successfully")
}
