package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minhvu/schedly-be/internal/apperr"
	"github.com/minhvu/schedly-be/internal/models"
)

// NotificationInput carries the fields of a notification create request.
type NotificationInput struct {
	ScheduleID *string
	Title      string
	Content    *string
	Priority   *string
}

// NotificationPatch carries the fields of a partial update. A nil field
// leaves the stored value unchanged.
type NotificationPatch struct {
	Title    *string
	Content  *string
	Priority *string
	IsRead   *bool
}

// NotificationPublisher pushes notification changes to connected clients.
type NotificationPublisher interface {
	PushToUser(userID, action string, payload interface{})
}

// NotificationServiceProvider defines the interface for notification services.
type NotificationServiceProvider interface {
	ListForUser(userID string) ([]models.Notification, error)
	CreateOrUpdate(userID string, input NotificationInput) (models.Notification, error)
	Update(callerID, id string, patch NotificationPatch) (models.Notification, error)
	SetRead(callerID, id string, isRead bool) (models.Notification, error)
	Delete(callerID, id string) error
	ExistsForSchedule(userID, scheduleID string) (bool, error)
}

// NotificationService provides business logic for notification management.
type NotificationService struct {
	db        *sql.DB
	eventSvc  EventServiceProvider
	publisher NotificationPublisher
}

// NewNotificationService creates a new NotificationService. The publisher
// may be nil when no push channel is wired (e.g. in tests).
func NewNotificationService(db *sql.DB, eventSvc EventServiceProvider, publisher NotificationPublisher) *NotificationService {
	return &NotificationService{db: db, eventSvc: eventSvc, publisher: publisher}
}

// ListForUser retrieves a user's notifications, newest first.
func (s *NotificationService) ListForUser(userID string) ([]models.Notification, error) {
	rows, err := s.db.Query(notificationSelect+" WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// CreateOrUpdate inserts a notification. When one already exists for the
// same (schedule, user) pair it instead refreshes the existing row's title,
// content, priority and creation time and marks it unread again. The unique
// index on (schedule_id, user_id) guarantees the pair never holds more than
// one row even under concurrent creates.
func (s *NotificationService) CreateOrUpdate(userID string, input NotificationInput) (models.Notification, error) {
	if input.Title == "" {
		return models.Notification{}, fmt.Errorf("%w: title is required", apperr.ErrValidation)
	}

	if input.ScheduleID != nil {
		schedule, err := s.scheduleOwner(*input.ScheduleID)
		if err != nil {
			return models.Notification{}, err
		}
		if schedule != userID {
			return models.Notification{}, fmt.Errorf("%w: schedule belongs to another user", apperr.ErrForbidden)
		}

		var existingID string
		err = s.db.QueryRow(
			"SELECT id FROM notifications WHERE schedule_id = ? AND user_id = ?",
			*input.ScheduleID, userID,
		).Scan(&existingID)
		switch {
		case err == nil:
			return s.refresh(userID, existingID, input)
		case err != sql.ErrNoRows:
			return models.Notification{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
		}
	}

	notification := models.Notification{
		ID:         uuid.New().String(),
		UserID:     userID,
		ScheduleID: input.ScheduleID,
		Title:      input.Title,
		Content:    input.Content,
		Priority:   input.Priority,
		CreatedAt:  time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO notifications (id, user_id, schedule_id, title, content, priority, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, FALSE, ?)`,
		notification.ID, notification.UserID, notification.ScheduleID,
		notification.Title, notification.Content, notification.Priority, notification.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && input.ScheduleID != nil {
			// Lost the race against a concurrent create for the same
			// schedule; fall back to refreshing the row that won.
			var existingID string
			if qerr := s.db.QueryRow(
				"SELECT id FROM notifications WHERE schedule_id = ? AND user_id = ?",
				*input.ScheduleID, userID,
			).Scan(&existingID); qerr == nil {
				return s.refresh(userID, existingID, input)
			}
		}
		return models.Notification{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}

	s.eventSvc.Record(userID, "notification.create", "info", fmt.Sprintf("Notification %q created.", notification.Title))
	s.publish(userID, "notification_created", notification)
	return notification, nil
}

// refresh overwrites an existing notification's content and bumps its
// creation time so it resurfaces at the top of the list, unread.
func (s *NotificationService) refresh(userID, id string, input NotificationInput) (models.Notification, error) {
	_, err := s.db.Exec(`
		UPDATE notifications
		SET title = ?, content = ?, priority = ?, is_read = FALSE, created_at = ?
		WHERE id = ? AND user_id = ?`,
		input.Title, input.Content, input.Priority, time.Now(), id, userID,
	)
	if err != nil {
		return models.Notification{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}

	notification, err := s.getByID(id)
	if err != nil {
		return models.Notification{}, err
	}

	s.eventSvc.Record(userID, "notification.refresh", "info", fmt.Sprintf("Notification %q refreshed.", input.Title))
	s.publish(userID, "notification_updated", notification)
	return notification, nil
}

// Update applies a partial update: nil fields keep their stored values.
// Existence is checked before ownership, same ordering as schedules.
func (s *NotificationService) Update(callerID, id string, patch NotificationPatch) (models.Notification, error) {
	if err := s.requireOwned(callerID, id); err != nil {
		return models.Notification{}, err
	}

	res, err := s.db.Exec(`
		UPDATE notifications
		SET title = COALESCE(?, title),
		    content = COALESCE(?, content),
		    priority = COALESCE(?, priority),
		    is_read = COALESCE(?, is_read)
		WHERE id = ? AND user_id = ?`,
		patch.Title, patch.Content, patch.Priority, patch.IsRead, id, callerID,
	)
	if err != nil {
		return models.Notification{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Notification{}, fmt.Errorf("%w: notification", apperr.ErrNotFound)
	}

	notification, err := s.getByID(id)
	if err != nil {
		return models.Notification{}, err
	}
	s.publish(callerID, "notification_updated", notification)
	return notification, nil
}

// SetRead flips the read flag on a notification.
func (s *NotificationService) SetRead(callerID, id string, isRead bool) (models.Notification, error) {
	if err := s.requireOwned(callerID, id); err != nil {
		return models.Notification{}, err
	}

	_, err := s.db.Exec(
		"UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?",
		isRead, id, callerID,
	)
	if err != nil {
		return models.Notification{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return s.getByID(id)
}

// Delete removes a notification. Like schedule deletion, deleting an
// already-absent row succeeds; deleting another user's row is forbidden.
func (s *NotificationService) Delete(callerID, id string) error {
	if err := s.requireOwned(callerID, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}

	_, err := s.db.Exec("DELETE FROM notifications WHERE id = ? AND user_id = ?", id, callerID)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}

	s.eventSvc.Record(callerID, "notification.delete", "info", "Notification deleted.")
	return nil
}

// ExistsForSchedule reports whether a notification already exists for the
// given (schedule, user) pair. The reminder worker uses this to avoid
// re-raising reminders a user has already seen.
func (s *NotificationService) ExistsForSchedule(userID, scheduleID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM notifications WHERE schedule_id = ? AND user_id = ?",
		scheduleID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return n > 0, nil
}

// requireOwned loads the owner of a notification and enforces the
// not-found-before-forbidden ordering.
func (s *NotificationService) requireOwned(callerID, id string) error {
	var ownerID string
	err := s.db.QueryRow("SELECT user_id FROM notifications WHERE id = ?", id).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: notification", apperr.ErrNotFound)
		}
		return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	if ownerID != callerID {
		return fmt.Errorf("%w: notification belongs to another user", apperr.ErrForbidden)
	}
	return nil
}

func (s *NotificationService) scheduleOwner(scheduleID string) (string, error) {
	var ownerID string
	err := s.db.QueryRow("SELECT user_id FROM schedules WHERE id = ?", scheduleID).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("%w: schedule", apperr.ErrNotFound)
		}
		return "", fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return ownerID, nil
}

func (s *NotificationService) getByID(id string) (models.Notification, error) {
	row := s.db.QueryRow(notificationSelect+" WHERE id = ?", id)
	return scanNotification(row)
}

func (s *NotificationService) publish(userID, action string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.PushToUser(userID, action, payload)
	}
}

const notificationSelect = `SELECT id, user_id, schedule_id, title, content, priority, is_read, created_at FROM notifications`

func scanNotifications(rows *sql.Rows) ([]models.Notification, error) {
	var notifications []models.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	return notifications, rows.Err()
}

func scanNotification(scanner interface{ Scan(...interface{}) error }) (models.Notification, error) {
	var notification models.Notification
	err := scanner.Scan(
		&notification.ID,
		&notification.UserID,
		&notification.ScheduleID,
		&notification.Title,
		&notification.Content,
		&notification.Priority,
		&notification.IsRead,
		&notification.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Notification{}, fmt.Errorf("%w: notification", apperr.ErrNotFound)
		}
		return models.Notification{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return notification, nil
}
