package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/minhvu/schedly-be/internal/apperr"
	"github.com/minhvu/schedly-be/internal/auth"
	"github.com/minhvu/schedly-be/internal/services"
)

// UserHandler handles HTTP requests for accounts and authentication.
type UserHandler struct {
	service  services.UserServiceProvider
	tokens   *auth.TokenService
	eventSvc services.EventServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, tokens *auth.TokenService, eventSvc services.EventServiceProvider) *UserHandler {
	return &UserHandler{service: service, tokens: tokens, eventSvc: eventSvc}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginPayload defines the structure for login requests. The identifier
// matches either a username or an email.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.Register(payload.Username, payload.Email, payload.Password, payload.Role)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed to register user")
		respondError(w, err)
		return
	}

	h.eventSvc.Record(user.ID, "auth.register", "info", "Account created.")
	respondJSON(w, http.StatusCreated, user)
}

// Login handles user authentication and access token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.Authenticate(payload.Username, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("identifier", payload.Username).Msg("Failed authentication attempt")
		respondError(w, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue token")
		respondError(w, err)
		return
	}

	h.eventSvc.Record(user.ID, "auth.login", "info", "Signed in.")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// ForgotPassword initiates a password reset. The response is identical
// whether or not the email exists, so the endpoint cannot be used to probe
// for accounts.
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	const uniformReply = "If the email exists, password reset instructions will be sent."

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" {
		respondMessage(w, http.StatusBadRequest, "Email is required")
		return
	}

	user, err := h.service.FindByEmail(payload.Email)
	if err != nil {
		// Unknown email gets the uniform reply; real failures still 500.
		if errors.Is(err, apperr.ErrNotFound) {
			respondMessage(w, http.StatusOK, uniformReply)
			return
		}
		log.Error().Err(err).Msg("Forgot-password lookup failed")
		respondError(w, err)
		return
	}

	token, err := h.tokens.IssueResetToken(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue reset token")
		respondError(w, err)
		return
	}
	if err := h.service.StoreResetToken(user.ID, token, time.Now().Add(auth.ResetTokenTTL)); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to store reset token")
		respondError(w, err)
		return
	}

	// Delivery (email/SMS) is outside this service; the token is only
	// logged at debug level in development builds.
	log.Debug().Str("user_id", user.ID).Msg("Password reset token issued")
	h.eventSvc.Record(user.ID, "auth.reset_requested", "warn", "Password reset requested.")
	respondMessage(w, http.StatusOK, uniformReply)
}

// ResetPassword consumes a reset token and sets a new password.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Token == "" || payload.NewPassword == "" {
		respondMessage(w, http.StatusBadRequest, "Token and new password are required")
		return
	}

	userID, err := h.tokens.VerifyResetToken(payload.Token)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.ResetPassword(userID, payload.Token, payload.NewPassword); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Password reset rejected")
		respondError(w, err)
		return
	}

	h.eventSvc.Record(userID, "auth.password_reset", "warn", "Password reset via token.")
	respondMessage(w, http.StatusOK, "Password has been reset")
}

// ChangePasswordByBody changes a password for the user id supplied in the
// request body. No token is required, only the current password. A weaker
// variant kept for the mobile client's pre-login flow.
func (h *UserHandler) ChangePasswordByBody(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID          string `json:"userId"`
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil ||
		payload.UserID == "" || payload.CurrentPassword == "" || payload.NewPassword == "" {
		respondMessage(w, http.StatusBadRequest, "userId, currentPassword and newPassword are required")
		return
	}

	h.changePassword(w, payload.UserID, payload.CurrentPassword, payload.NewPassword)
}

// Get handles retrieving a user's own profile.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, id, ok := h.requireSelf(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(id)
	if err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("Failed to get user")
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Update handles a partial profile update: fields absent from the body keep
// their stored values.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, id, ok := h.requireSelf(w, r)
	if !ok {
		return
	}

	var payload struct {
		Username  *string `json:"username"`
		Email     *string `json:"email"`
		AvatarURL *string `json:"avatarUrl"`
		DOB       *string `json:"dob"`
		Gender    *string `json:"gender"`
		Phone     *string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.UpdateProfile(id, services.ProfileUpdate{
		Username:  payload.Username,
		Email:     payload.Email,
		AvatarURL: payload.AvatarURL,
		DOB:       payload.DOB,
		Gender:    payload.Gender,
		Phone:     payload.Phone,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("Failed to update profile")
		respondError(w, err)
		return
	}

	h.eventSvc.Record(id, "user.update", "info", "Profile updated.")
	respondJSON(w, http.StatusOK, user)
}

// ChangePassword handles the token-scoped password change for the user in
// the path, which must be the caller.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	_, id, ok := h.requireSelf(w, r)
	if !ok {
		return
	}

	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil ||
		payload.CurrentPassword == "" || payload.NewPassword == "" {
		respondMessage(w, http.StatusBadRequest, "currentPassword and newPassword are required")
		return
	}

	h.changePassword(w, id, payload.CurrentPassword, payload.NewPassword)
}

// changePassword verifies the current password, then rotates it.
func (h *UserHandler) changePassword(w http.ResponseWriter, userID, currentPassword, newPassword string) {
	ok, err := h.service.VerifyCurrentPassword(userID, currentPassword)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Password verification failed")
		respondError(w, err)
		return
	}
	if !ok {
		respondMessage(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	if err := h.service.ChangePassword(userID, newPassword); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to change password")
		respondError(w, err)
		return
	}

	h.eventSvc.Record(userID, "auth.password_change", "warn", "Password changed.")
	respondMessage(w, http.StatusOK, "Password updated successfully")
}

// requireSelf resolves the path id and enforces that it matches the caller.
// The identity comparison happens before any lookup, so probing another
// user's id always yields forbidden, never a hint about existence.
func (h *UserHandler) requireSelf(w http.ResponseWriter, r *http.Request) (*auth.Claims, string, bool) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		respondMessage(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return nil, "", false
	}

	id := chi.URLParam(r, "id")
	if claims.UserID != id {
		respondError(w, fmt.Errorf("%w: not your account", apperr.ErrForbidden))
		return nil, "", false
	}
	return claims, id, true
}
