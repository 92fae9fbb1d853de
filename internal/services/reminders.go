package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/store"
)

// Reminders drives the reminder lifecycle: the sweep reads due rows and
// flips them to sent, reminder-card buttons complete or snooze the most
// recently sent one.
type Reminders struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewReminders(st store.Store, log zerolog.Logger) *Reminders {
	return &Reminders{store: st, log: log.With().Str("service", "reminders").Logger(), now: time.Now}
}

// Due returns pending reminders whose time has come, joined with task and
// user so the sweep can render and address the message.
func (s *Reminders) Due(ctx context.Context) ([]*model.DueReminder, error) {
	return s.store.Reminders().Due(ctx, s.now())
}

// MarkSent flips a reminder to sent. Called even when the outbound send
// failed, so a broken channel cannot make the sweep re-fire the same
// reminder every interval.
func (s *Reminders) MarkSent(ctx context.Context, reminderID int64) {
	if err := s.store.Reminders().MarkSent(ctx, reminderID, s.now()); err != nil {
		s.log.Error().Err(err).Int64("reminder_id", reminderID).Msg("mark reminder sent failed")
	}
}

// CompleteLatest marks the task behind the user's most recently sent
// reminder as done, resolving a reminder-card "done" press.
func (s *Reminders) CompleteLatest(ctx context.Context, userID int64) (*model.Task, error) {
	rem, err := s.store.Reminders().LatestSent(ctx, userID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.Tasks().SetStatus(ctx, userID, rem.TaskID, model.StatusCompleted, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Reminders().CancelForTask(ctx, rem.TaskID); err != nil {
		s.log.Warn().Err(err).Int64("task_id", rem.TaskID).Msg("cancel sibling reminders failed")
	}
	return task, nil
}

// SnoozeLatest pushes the user's most recently sent reminder back by
// minutes and returns the new fire time.
func (s *Reminders) SnoozeLatest(ctx context.Context, userID int64, minutes int) (time.Time, error) {
	rem, err := s.store.Reminders().LatestSent(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	until := s.now().Add(time.Duration(minutes) * time.Minute)
	if err := s.store.Reminders().Snooze(ctx, rem.ID, until); err != nil {
		return time.Time{}, err
	}
	return until, nil
}

func (s *Reminders) ListByUser(ctx context.Context, userID int64, status *model.ReminderStatus) ([]*model.Reminder, error) {
	return s.store.Reminders().ListByUser(ctx, userID, status)
}

func (s *Reminders) Cancel(ctx context.Context, userID, reminderID int64) error {
	return s.store.Reminders().Cancel(ctx, userID, reminderID)
}
