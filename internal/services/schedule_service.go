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

// ScheduleInput carries the writable fields of a schedule.
type ScheduleInput struct {
	Title       string
	Description *string
	Tags        *string
	Priority    *string
	Deadline    time.Time
	IsCompleted bool
}

// ScheduleServiceProvider defines the interface for schedule services.
type ScheduleServiceProvider interface {
	ListForUser(userID string) ([]models.Schedule, error)
	Create(userID string, input ScheduleInput) (models.Schedule, error)
	GetByID(id string) (models.Schedule, error)
	Update(callerID, id string, input ScheduleInput) (models.Schedule, error)
	Delete(callerID, id string) error
	DueWithin(window time.Duration) ([]models.Schedule, error)
}

// ScheduleService provides business logic for schedule management.
type ScheduleService struct {
	db       *sql.DB
	eventSvc EventServiceProvider
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(db *sql.DB, eventSvc EventServiceProvider) *ScheduleService {
	return &ScheduleService{db: db, eventSvc: eventSvc}
}

// ListForUser retrieves a user's schedules ordered by ascending deadline.
func (s *ScheduleService) ListForUser(userID string) ([]models.Schedule, error) {
	rows, err := s.db.Query(scheduleSelect+" WHERE user_id = ? ORDER BY deadline", userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// Create inserts a new schedule owned by userID.
func (s *ScheduleService) Create(userID string, input ScheduleInput) (models.Schedule, error) {
	if input.Title == "" {
		return models.Schedule{}, fmt.Errorf("%w: title is required", apperr.ErrValidation)
	}
	if input.Deadline.IsZero() {
		return models.Schedule{}, fmt.Errorf("%w: deadline is required", apperr.ErrValidation)
	}

	schedule := models.Schedule{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		Tags:        input.Tags,
		Priority:    input.Priority,
		Deadline:    input.Deadline,
		IsCompleted: input.IsCompleted,
		CreatedAt:   time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO schedules (id, user_id, title, description, tags, priority, deadline, is_completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		schedule.ID, schedule.UserID, schedule.Title, schedule.Description, schedule.Tags,
		schedule.Priority, schedule.Deadline, schedule.IsCompleted, schedule.CreatedAt,
	)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}

	s.eventSvc.Record(userID, "schedule.create", "info", fmt.Sprintf("Schedule %q created.", schedule.Title))
	return schedule, nil
}

// GetByID retrieves a single schedule by its ID.
func (s *ScheduleService) GetByID(id string) (models.Schedule, error) {
	row := s.db.QueryRow(scheduleSelect+" WHERE id = ?", id)
	return scanSchedule(row)
}

// Update replaces a schedule's fields. The resource must exist (not found
// otherwise) and belong to the caller (forbidden otherwise), in that order,
// so a non-owner probing a random id learns nothing beyond the 404. The
// statement itself re-checks ownership so a concurrent owner change cannot
// slip a write through.
func (s *ScheduleService) Update(callerID, id string, input ScheduleInput) (models.Schedule, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return models.Schedule{}, err
	}
	if existing.UserID != callerID {
		return models.Schedule{}, fmt.Errorf("%w: schedule belongs to another user", apperr.ErrForbidden)
	}

	res, err := s.db.Exec(`
		UPDATE schedules
		SET title = ?, description = ?, tags = ?, priority = ?, deadline = ?, is_completed = ?
		WHERE id = ? AND user_id = ?`,
		input.Title, input.Description, input.Tags, input.Priority, input.Deadline, input.IsCompleted,
		id, callerID,
	)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Schedule{}, fmt.Errorf("%w: schedule", apperr.ErrNotFound)
	}

	s.eventSvc.Record(callerID, "schedule.update", "info", fmt.Sprintf("Schedule %q updated.", input.Title))
	return s.GetByID(id)
}

// Delete removes a schedule. Deleting an already-absent schedule succeeds;
// deleting another user's schedule is forbidden.
func (s *ScheduleService) Delete(callerID, id string) error {
	existing, err := s.GetByID(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.UserID != callerID {
		return fmt.Errorf("%w: schedule belongs to another user", apperr.ErrForbidden)
	}

	_, err = s.db.Exec("DELETE FROM schedules WHERE id = ? AND user_id = ?", id, callerID)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}

	s.eventSvc.Record(callerID, "schedule.delete", "warn", fmt.Sprintf("Schedule %q was deleted.", existing.Title))
	return nil
}

// DueWithin retrieves incomplete schedules whose deadline falls inside the
// next window. Used by the reminder worker.
func (s *ScheduleService) DueWithin(window time.Duration) ([]models.Schedule, error) {
	now := time.Now()
	rows, err := s.db.Query(
		scheduleSelect+" WHERE is_completed = FALSE AND deadline > ? AND deadline <= ? ORDER BY deadline",
		now, now.Add(window),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

const scheduleSelect = `SELECT id, user_id, title, description, tags, priority, deadline, is_completed, created_at FROM schedules`

func scanSchedules(rows *sql.Rows) ([]models.Schedule, error) {
	var schedules []models.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

func scanSchedule(scanner interface{ Scan(...interface{}) error }) (models.Schedule, error) {
	var schedule models.Schedule
	err := scanner.Scan(
		&schedule.ID,
		&schedule.UserID,
		&schedule.Title,
		&schedule.Description,
		&schedule.Tags,
		&schedule.Priority,
		&schedule.Deadline,
		&schedule.IsCompleted,
		&schedule.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Schedule{}, fmt.Errorf("%w: schedule", apperr.ErrNotFound)
		}
		return models.Schedule{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return schedule, nil
}
