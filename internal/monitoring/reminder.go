package monitoring

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/minhvu/schedly-be/internal/services"
)

// Reminder scans for schedules approaching their deadline and raises a
// notification for each one, once. Connected clients get the notification
// pushed over the websocket hub through the notification service.
type Reminder struct {
	scheduleSvc     services.ScheduleServiceProvider
	notificationSvc services.NotificationServiceProvider
	spec            cron.Schedule
	window          time.Duration
	done            chan bool
}

// NewReminder creates a reminder worker. The cron spec controls the scan
// cadence; window controls how far ahead of a deadline reminders fire.
func NewReminder(scheduleSvc services.ScheduleServiceProvider, notificationSvc services.NotificationServiceProvider, cronSpec string, window time.Duration) (*Reminder, error) {
	spec, err := cron.ParseStandard(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder cron spec: %w", err)
	}
	return &Reminder{
		scheduleSvc:     scheduleSvc,
		notificationSvc: notificationSvc,
		spec:            spec,
		window:          window,
		done:            make(chan bool),
	}, nil
}

// Run starts the reminder loop.
func (r *Reminder) Run() {
	log.Info().Dur("window", r.window).Msg("Starting deadline reminder worker...")

	// Run once immediately on start
	r.tick()

	for {
		timer := time.NewTimer(time.Until(r.spec.Next(time.Now())))
		select {
		case <-r.done:
			timer.Stop()
			log.Info().Msg("Stopping deadline reminder worker.")
			return
		case <-timer.C:
			r.tick()
		}
	}
}

// Stop halts the reminder loop.
func (r *Reminder) Stop() {
	r.done <- true
}

// tick raises a reminder for every due schedule that has none yet.
func (r *Reminder) tick() {
	schedules, err := r.scheduleSvc.DueWithin(r.window)
	if err != nil {
		log.Error().Err(err).Msg("Reminder: failed to query due schedules")
		return
	}

	for _, schedule := range schedules {
		exists, err := r.notificationSvc.ExistsForSchedule(schedule.UserID, schedule.ID)
		if err != nil {
			log.Error().Err(err).Str("schedule_id", schedule.ID).Msg("Reminder: existence check failed")
			continue
		}
		if exists {
			continue
		}

		content := fmt.Sprintf("%q is due %s.", schedule.Title, schedule.Deadline.Format("Mon, 02 Jan 2006 15:04"))
		_, err = r.notificationSvc.CreateOrUpdate(schedule.UserID, services.NotificationInput{
			ScheduleID: &schedule.ID,
			Title:      "Upcoming deadline: " + schedule.Title,
			Content:    &content,
			Priority:   schedule.Priority,
		})
		if err != nil {
			log.Error().Err(err).Str("schedule_id", schedule.ID).Msg("Reminder: failed to create notification")
			continue
		}
		log.Info().Str("schedule_id", schedule.ID).Str("user_id", schedule.UserID).Msg("Reminder raised")
	}
}
