package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhvu/schedly-be/internal/auth"
	"github.com/minhvu/schedly-be/internal/config"
	"github.com/minhvu/schedly-be/internal/database"
	"github.com/minhvu/schedly-be/internal/models"
	"github.com/minhvu/schedly-be/internal/services"
	"github.com/minhvu/schedly-be/internal/websocket"
)

type testServer struct {
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		AppEnv:      "development",
		CORSOrigins: []string{"*"},
	}
	tokens := auth.NewTokenService("test-secret", time.Hour)

	eventService := services.NewEventService(db)
	userService := services.NewUserService(db)
	scheduleService := services.NewScheduleService(db, eventService)
	notificationService := services.NewNotificationService(db, eventService, nil)

	hub := websocket.NewHub()
	go hub.Run()

	router := NewRouter(cfg, tokens, hub, userService, scheduleService, notificationService, eventService)
	return &testServer{router: router}
}

// do performs a JSON request and decodes the response body into out when
// out is non-nil.
func (s *testServer) do(t *testing.T, method, path, token string, body, out interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	if out != nil && rr.Code < 300 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out))
	}
	return rr
}

// registerAndLogin creates an account and returns its id and access token.
func (s *testServer) registerAndLogin(t *testing.T, username, email string) (string, string) {
	t.Helper()

	var user models.User
	rr := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "password123",
	}, &user)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var login struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	rr = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	}, &login)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NotEmpty(t, login.Token)
	return login.User.ID, login.Token
}

func TestRegister_DuplicateYieldsConflict(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "p1",
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "b@x.com", "password": "p2",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_ClaimsMatchStoredUser(t *testing.T) {
	s := newTestServer(t)
	id, token := s.registerAndLogin(t, "alice", "a@x.com")

	claims, err := auth.NewTokenService("test-secret", time.Hour).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "alice", "a@x.com")

	rr := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/schedules", "/api/v1/notifications", "/api/v1/events"} {
		rr := s.do(t, http.MethodGet, path, "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestUserProfile_SelfOnly(t *testing.T) {
	s := newTestServer(t)
	aliceID, aliceToken := s.registerAndLogin(t, "alice", "a@x.com")
	bobID, bobToken := s.registerAndLogin(t, "bob", "b@x.com")

	rr := s.do(t, http.MethodGet, "/api/v1/users/"+aliceID, aliceToken, nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/users/"+aliceID, bobToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPut, "/api/v1/users/"+bobID, aliceToken, map[string]string{"phone": "000"}, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUserProfile_PartialUpdate(t *testing.T) {
	s := newTestServer(t)
	id, token := s.registerAndLogin(t, "alice", "a@x.com")

	var updated models.User
	rr := s.do(t, http.MethodPut, "/api/v1/users/"+id, token, map[string]string{
		"phone": "0901234567",
	}, &updated)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, "a@x.com", updated.Email)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "0901234567", *updated.Phone)
	assert.Nil(t, updated.DOB)
	assert.Nil(t, updated.Gender)
}

func TestChangePassword_TokenScoped(t *testing.T) {
	s := newTestServer(t)
	id, token := s.registerAndLogin(t, "alice", "a@x.com")

	rr := s.do(t, http.MethodPut, "/api/v1/users/"+id+"/password", token, map[string]string{
		"currentPassword": "wrong", "newPassword": "next-pw",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPut, "/api/v1/users/"+id+"/password", token, map[string]string{
		"currentPassword": "password123", "newPassword": "next-pw",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "next-pw",
	}, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestChangePassword_BodyVariant(t *testing.T) {
	s := newTestServer(t)
	id, _ := s.registerAndLogin(t, "alice", "a@x.com")

	rr := s.do(t, http.MethodPost, "/api/v1/auth/change-password", "", map[string]string{
		"userId": id, "currentPassword": "password123", "newPassword": "next-pw",
	}, nil)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestForgotPassword_UniformResponse(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "alice", "a@x.com")

	var known, unknown messageBody
	rr := s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "a@x.com"}, &known)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "ghost@x.com"}, &unknown)
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, known.Message, unknown.Message, "response must not reveal whether the email exists")
}

type messageBody struct {
	Message string `json:"message"`
}

func TestSchedules_OwnershipAndOrdering(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.registerAndLogin(t, "alice", "a@x.com")
	_, bobToken := s.registerAndLogin(t, "bob", "b@x.com")

	var later, sooner models.Schedule
	rr := s.do(t, http.MethodPost, "/api/v1/schedules", aliceToken, map[string]interface{}{
		"title": "later", "deadline": time.Now().Add(48 * time.Hour),
	}, &later)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = s.do(t, http.MethodPost, "/api/v1/schedules", aliceToken, map[string]interface{}{
		"title": "sooner", "deadline": time.Now().Add(time.Hour),
	}, &sooner)
	require.Equal(t, http.StatusCreated, rr.Code)

	var list []models.Schedule
	rr = s.do(t, http.MethodGet, "/api/v1/schedules", aliceToken, nil, &list)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, list, 2)
	assert.Equal(t, "sooner", list[0].Title)

	// Bob sees none of Alice's schedules and cannot touch them.
	var bobList []models.Schedule
	rr = s.do(t, http.MethodGet, "/api/v1/schedules", bobToken, nil, &bobList)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, bobList)

	rr = s.do(t, http.MethodPut, "/api/v1/schedules/"+later.ID, bobToken, map[string]interface{}{
		"title": "hijack", "deadline": time.Now(),
	}, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPut, "/api/v1/schedules/does-not-exist", bobToken, map[string]interface{}{
		"title": "x", "deadline": time.Now(),
	}, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestScheduleDelete_IdempotentOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, token := s.registerAndLogin(t, "alice", "a@x.com")

	var schedule models.Schedule
	rr := s.do(t, http.MethodPost, "/api/v1/schedules", token, map[string]interface{}{
		"title": "temp", "deadline": time.Now().Add(time.Hour),
	}, &schedule)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = s.do(t, http.MethodDelete, "/api/v1/schedules/"+schedule.ID, token, nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(t, http.MethodDelete, "/api/v1/schedules/"+schedule.ID, token, nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code, "second delete still succeeds")
}

func TestNotifications_UpsertOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, token := s.registerAndLogin(t, "alice", "a@x.com")

	var schedule models.Schedule
	rr := s.do(t, http.MethodPost, "/api/v1/schedules", token, map[string]interface{}{
		"title": "exam", "deadline": time.Now().Add(time.Hour),
	}, &schedule)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/v1/notifications", token, map[string]interface{}{
		"scheduleId": schedule.ID, "title": "Exam soon",
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = s.do(t, http.MethodPost, "/api/v1/notifications", token, map[string]interface{}{
		"scheduleId": schedule.ID, "title": "Exam very soon",
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	var list []models.Notification
	rr = s.do(t, http.MethodGet, "/api/v1/notifications", token, nil, &list)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, list, 1, "second create for the same schedule must update, not insert")
	assert.Equal(t, "Exam very soon", list[0].Title)
}

func TestNotifications_MarkReadAndDelete(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.registerAndLogin(t, "alice", "a@x.com")
	_, bobToken := s.registerAndLogin(t, "bob", "b@x.com")

	var created models.Notification
	rr := s.do(t, http.MethodPost, "/api/v1/notifications", aliceToken, map[string]interface{}{
		"title": "standalone",
	}, &created)
	require.Equal(t, http.StatusCreated, rr.Code)

	var read models.Notification
	rr = s.do(t, http.MethodPatch, "/api/v1/notifications/"+created.ID+"/read", aliceToken,
		map[string]bool{"isRead": true}, &read)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, read.IsRead)

	rr = s.do(t, http.MethodDelete, "/api/v1/notifications/"+created.ID, bobToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodDelete, "/api/v1/notifications/"+created.ID, aliceToken, nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestEvents_SelfScopedActivity(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.registerAndLogin(t, "alice", "a@x.com")
	_, bobToken := s.registerAndLogin(t, "bob", "b@x.com")

	var aliceEvents []models.Event
	rr := s.do(t, http.MethodGet, "/api/v1/events", aliceToken, nil, &aliceEvents)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, aliceEvents, "register/login must leave activity entries")
	for _, event := range aliceEvents {
		assert.NotEqual(t, "bob", event.UserID)
	}

	var bobEvents []models.Event
	rr = s.do(t, http.MethodGet, "/api/v1/events", bobToken, nil, &bobEvents)
	require.Equal(t, http.StatusOK, rr.Code)
	for _, event := range bobEvents {
		assert.NotContains(t, aliceEvents, event)
	}
}

func TestHealth_Public(t *testing.T) {
	s := newTestServer(t)

	var body struct {
		Status string `json:"status"`
	}
	rr := s.do(t, http.MethodGet, "/api/v1/health", "", nil, &body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body.Status)
}

func TestResetPassword_RejectsUnstoredToken(t *testing.T) {
	s := newTestServer(t)
	id, _ := s.registerAndLogin(t, "alice", "a@x.com")

	// A reset token with a valid signature but no stored digest (the user
	// never requested a reset) must be rejected.
	reset, err := auth.NewTokenService("test-secret", time.Hour).IssueResetToken(id)
	require.NoError(t, err)

	rr := s.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{
		"token": reset, "newPassword": "sneaky",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "only a stored token digest may reset")
}
