package store

import (
	"context"
	"time"

	"github.com/taskivo/taskivo/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (e.g., sqlite, postgres).
type Store interface {
	Users() Users
	Tasks() Tasks
	Meetings() Meetings
	Delegations() Delegations
	Reminders() Reminders
	Conversations() Conversations
	MessageLog() MessageLog
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByID(ctx context.Context, userID int64) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, u *model.User) error
	TouchLastActive(ctx context.Context, userID int64, at time.Time) error
	ListWeeklySummaryOptIns(ctx context.Context, day int) ([]*model.User, error)
}

type Tasks interface {
	Create(ctx context.Context, t *model.Task) (*model.Task, error)
	GetByID(ctx context.Context, userID, taskID int64) (*model.Task, error)
	List(ctx context.Context, userID int64, f model.TaskFilter) ([]*model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	SetStatus(ctx context.Context, userID, taskID int64, status model.TaskStatus, at time.Time) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID int64) error
	DueOn(ctx context.Context, userID int64, date string) ([]*model.Task, error)
	Overdue(ctx context.Context, userID int64, today string) ([]*model.Task, error)
	DueBetween(ctx context.Context, userID int64, fromDate, toDate string) ([]*model.Task, error)
	Stats(ctx context.Context, userID int64) (*model.TaskStats, error)
}

type Meetings interface {
	Create(ctx context.Context, m *model.Meeting) (*model.Meeting, error)
	GetByID(ctx context.Context, meetingID int64) (*model.Meeting, error)
	GetByTask(ctx context.Context, taskID int64) (*model.Meeting, error)
	ListByOrganizer(ctx context.Context, userID int64) ([]*model.Meeting, error)
	Between(ctx context.Context, userID int64, fromDate, toDate string) ([]*model.Meeting, error)
	SetStatus(ctx context.Context, meetingID int64, status model.MeetingStatus) error
	AddParticipant(ctx context.Context, p *model.Participant) (*model.Participant, error)
	ListParticipants(ctx context.Context, meetingID int64) ([]*model.Participant, error)
	UpdateParticipantStatus(ctx context.Context, meetingID int64, phone string, status model.ParticipantStatus, at time.Time) (*model.Participant, error)
	// LatestInviteFor returns the newest scheduled meeting in which phone
	// is still a pending participant, used to resolve accept/decline
	// button presses from an invite card.
	LatestInviteFor(ctx context.Context, phone string) (*model.Meeting, error)
}

type Delegations interface {
	Create(ctx context.Context, d *model.Delegation) (*model.Delegation, error)
	GetByID(ctx context.Context, delegationID int64) (*model.Delegation, error)
	ListByDelegator(ctx context.Context, userID int64) ([]*model.Delegation, error)
	// LatestForAssignee returns the newest pending delegation addressed to
	// phone, used to resolve accept/decline button presses from an invite
	// card. Returns model.ErrNotFound when none is open.
	LatestForAssignee(ctx context.Context, phone string) (*model.Delegation, error)
	MarkSent(ctx context.Context, delegationID int64, at time.Time) error
	UpdateStatus(ctx context.Context, delegationID int64, status model.DelegationStatus, at time.Time) (*model.Delegation, error)
}

type Reminders interface {
	Create(ctx context.Context, r *model.Reminder) (*model.Reminder, error)
	ListByTask(ctx context.Context, taskID int64) ([]*model.Reminder, error)
	ListByUser(ctx context.Context, userID int64, status *model.ReminderStatus) ([]*model.Reminder, error)
	Due(ctx context.Context, now time.Time) ([]*model.DueReminder, error)
	MarkSent(ctx context.Context, reminderID int64, at time.Time) error
	// LatestSent returns the user's most recently sent reminder, the one a
	// done/snooze button press on a reminder card refers to.
	LatestSent(ctx context.Context, userID int64) (*model.Reminder, error)
	// Snooze pushes a sent reminder back to pending at a new time.
	Snooze(ctx context.Context, reminderID int64, until time.Time) error
	Cancel(ctx context.Context, userID, reminderID int64) error
	CancelForTask(ctx context.Context, taskID int64) error
}

// Conversations persists one flow record per user. Get returns
// model.ErrNotFound when no record exists; callers decide fail-open policy.
type Conversations interface {
	Get(ctx context.Context, userID int64) (*model.ConversationState, error)
	Set(ctx context.Context, userID int64, flowName string, flowData []byte, at time.Time) error
	Clear(ctx context.Context, userID int64) error
}

type MessageLog interface {
	Append(ctx context.Context, e *model.MessageLogEntry) error
	ListRecent(ctx context.Context, userID int64, limit int) ([]*model.MessageLogEntry, error)
}
