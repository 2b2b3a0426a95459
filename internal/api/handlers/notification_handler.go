package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/minhvu/schedly-be/internal/auth"
	"github.com/minhvu/schedly-be/internal/models"
	"github.com/minhvu/schedly-be/internal/services"
)

// NotificationHandler handles HTTP requests for notifications.
type NotificationHandler struct {
	service services.NotificationServiceProvider
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(service services.NotificationServiceProvider) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	notifications, err := h.service.ListForUser(claims.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to list notifications")
		respondError(w, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	respondJSON(w, http.StatusOK, notifications)
}

// Create adds a notification, or refreshes the existing one when the caller
// already has a notification for the same schedule.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	var payload struct {
		ScheduleID *string `json:"scheduleId"`
		Title      string  `json:"title"`
		Content    *string `json:"content"`
		Priority   *string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	notification, err := h.service.CreateOrUpdate(claims.UserID, services.NotificationInput{
		ScheduleID: payload.ScheduleID,
		Title:      payload.Title,
		Content:    payload.Content,
		Priority:   payload.Priority,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, notification)
}

// Update applies a partial update: fields absent from the body keep their
// stored values.
func (h *NotificationHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	id := chi.URLParam(r, "id")

	var payload struct {
		Title    *string `json:"title"`
		Content  *string `json:"content"`
		Priority *string `json:"priority"`
		IsRead   *bool   `json:"isRead"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	notification, err := h.service.Update(claims.UserID, id, services.NotificationPatch{
		Title:    payload.Title,
		Content:  payload.Content,
		Priority: payload.Priority,
		IsRead:   payload.IsRead,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, notification)
}

// MarkRead flips the read flag.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	id := chi.URLParam(r, "id")

	var payload struct {
		IsRead bool `json:"isRead"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	notification, err := h.service.SetRead(claims.UserID, id, payload.IsRead)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, notification)
}

// Delete removes a notification. Like schedules, deleting an already-absent
// row succeeds.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(claims.UserID, id); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Notification deleted successfully")
}
