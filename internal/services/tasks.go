package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/extract"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/store"
)

// defaultDueTime anchors reminders for tasks that have a date but no time.
const defaultDueTime = "09:00"

// Tasks persists tasks and their reminders.
type Tasks struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewTasks(st store.Store, log zerolog.Logger) *Tasks {
	return &Tasks{store: st, log: log.With().Str("service", "tasks").Logger(), now: time.Now}
}

// SaveOutcome reports a task save together with the fate of its reminder.
// A failed or skipped reminder does not fail the save; the caller decides
// what the user sees.
type SaveOutcome struct {
	Task            *model.Task
	Reminder        *model.Reminder
	ReminderSkipped bool // no due date, or the offset lands in the past
	ReminderErr     error
}

// SaveWithReminder persists a task from extracted slots and, when
// offsetMinutes > 0, schedules one reminder at due time minus the offset.
func (s *Tasks) SaveWithReminder(ctx context.Context, userID int64, slots extract.TaskSlots, kind model.TaskType, via model.Channel, offsetMinutes int) (*SaveOutcome, error) {
	task, err := s.store.Tasks().Create(ctx, &model.Task{
		UserID:     userID,
		Title:      slots.Title,
		Type:       kind,
		Priority:   slots.Priority,
		DueDate:    slots.DueDate,
		DueTime:    slots.DueTime,
		CreatedVia: via,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create task")
	}
	out := &SaveOutcome{Task: task}
	if offsetMinutes <= 0 {
		out.ReminderSkipped = true
		return out, nil
	}
	at, ok := reminderTime(task, offsetMinutes, s.now())
	if !ok {
		out.ReminderSkipped = true
		return out, nil
	}
	rem, err := s.store.Reminders().Create(ctx, &model.Reminder{
		TaskID:        task.ID,
		UserID:        userID,
		Type:          model.ReminderBeforeTask,
		ScheduledTime: at,
	})
	if err != nil {
		s.log.Warn().Err(err).Int64("task_id", task.ID).Msg("reminder create failed")
		out.ReminderErr = err
		return out, nil
	}
	out.Reminder = rem
	return out, nil
}

// reminderTime computes due datetime minus the offset. Returns false when
// the task has no due date or the result is already in the past.
func reminderTime(task *model.Task, offsetMinutes int, now time.Time) (time.Time, bool) {
	if task.DueDate == nil {
		return time.Time{}, false
	}
	dueTime := defaultDueTime
	if task.DueTime != nil {
		dueTime = *task.DueTime
	}
	due, err := time.ParseInLocation("2006-01-02 15:04", *task.DueDate+" "+dueTime, now.Location())
	if err != nil {
		return time.Time{}, false
	}
	at := due.Add(-time.Duration(offsetMinutes) * time.Minute)
	if !at.After(now) {
		return time.Time{}, false
	}
	return at, true
}

// autoReminderOffsets are the nudges attached to API-created tasks with a
// due date: a day before, an hour before, fifteen minutes before, and at
// the due time itself.
var autoReminderOffsets = []int{1440, 60, 15, 0}

// Create persists a task for the REST API. Unlike the chat path, where
// the user picks a single reminder, API tasks with a due date get the
// fixed offset set; offsets already in the past are skipped.
func (s *Tasks) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	task, err := s.store.Tasks().Create(ctx, t)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, offset := range autoReminderOffsets {
		at, ok := reminderTime(task, offset, now)
		if !ok {
			continue
		}
		if _, err := s.store.Reminders().Create(ctx, &model.Reminder{
			TaskID:        task.ID,
			UserID:        task.UserID,
			Type:          model.ReminderBeforeTask,
			ScheduledTime: at,
		}); err != nil {
			s.log.Warn().Err(err).Int64("task_id", task.ID).Int("offset_min", offset).Msg("auto reminder create failed")
		}
	}
	return task, nil
}

func (s *Tasks) Get(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	return s.store.Tasks().GetByID(ctx, userID, taskID)
}

func (s *Tasks) List(ctx context.Context, userID int64, f model.TaskFilter) ([]*model.Task, error) {
	return s.store.Tasks().List(ctx, userID, f)
}

func (s *Tasks) Update(ctx context.Context, t *model.Task) error {
	return s.store.Tasks().Update(ctx, t)
}

func (s *Tasks) Delete(ctx context.Context, userID, taskID int64) error {
	if err := s.store.Reminders().CancelForTask(ctx, taskID); err != nil {
		s.log.Warn().Err(err).Int64("task_id", taskID).Msg("cancel reminders for deleted task failed")
	}
	return s.store.Tasks().Delete(ctx, userID, taskID)
}

// Complete marks a task done and cancels its remaining reminders.
func (s *Tasks) Complete(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	task, err := s.store.Tasks().SetStatus(ctx, userID, taskID, model.StatusCompleted, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Reminders().CancelForTask(ctx, taskID); err != nil {
		s.log.Warn().Err(err).Int64("task_id", taskID).Msg("cancel reminders for completed task failed")
	}
	return task, nil
}

// Today returns tasks due today plus anything overdue, the view behind
// the "my tasks" command.
func (s *Tasks) Today(ctx context.Context, userID int64, today string) (due, overdue []*model.Task, err error) {
	due, err = s.store.Tasks().DueOn(ctx, userID, today)
	if err != nil {
		return nil, nil, err
	}
	overdue, err = s.store.Tasks().Overdue(ctx, userID, today)
	if err != nil {
		return nil, nil, err
	}
	return due, overdue, nil
}

func (s *Tasks) Stats(ctx context.Context, userID int64) (*model.TaskStats, error) {
	return s.store.Tasks().Stats(ctx, userID)
}
