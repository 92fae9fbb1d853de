package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	return s
}

func createUser(t *testing.T, s store.Store, phone string) *model.User {
	t.Helper()
	u, err := s.Users().Create(context.Background(), &model.User{
		PhoneNumber: phone, Language: "he", TimeZone: "Asia/Jerusalem",
		NotificationPref: "all", WeeklySummary: true,
	})
	require.NoError(t, err)
	return u
}

func TestUsers_CreateGetConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createUser(t, s, "+972501234567")
	assert.NotZero(t, u.ID)

	got, err := s.Users().GetByPhone(ctx, "+972501234567")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "he", got.Language)

	_, err = s.Users().Create(ctx, &model.User{PhoneNumber: "+972501234567", Language: "he"})
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = s.Users().GetByPhone(ctx, "+972500000000")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTasks_CreateListStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "+972501111111")

	due := "2026-09-01"
	task, err := s.Tasks().Create(ctx, &model.Task{
		UserID: u.ID, Title: "לקנות חלב", Type: model.TaskScheduled,
		Status: model.StatusPending, Priority: model.PriorityMedium,
		Category: "general", DueDate: &due, CreatedVia: model.ChannelText,
	})
	require.NoError(t, err)
	require.NotZero(t, task.ID)

	_, err = s.Tasks().Create(ctx, &model.Task{UserID: u.ID})
	assert.ErrorIs(t, err, model.ErrValidation)

	pending := model.StatusPending
	list, err := s.Tasks().List(ctx, u.ID, model.TaskFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, list, 1)

	done, err := s.Tasks().SetStatus(ctx, u.ID, task.ID, model.StatusCompleted, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedTime)

	// task scoping: another user cannot touch it
	other := createUser(t, s, "+972502222222")
	_, err = s.Tasks().SetStatus(ctx, other.ID, task.ID, model.StatusCancelled, time.Now())
	assert.ErrorIs(t, err, model.ErrNotFound)

	// zero-value fields pick up the schema defaults
	bare, err := s.Tasks().Create(ctx, &model.Task{UserID: u.ID, Title: "בלי שדות"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, bare.Status)
	assert.Equal(t, model.PriorityMedium, bare.Priority)
	assert.Equal(t, model.TaskToday, bare.Type)
	assert.Equal(t, "general", bare.Category)
}

func TestTasks_OverdueAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "+972503333333")

	past := "2020-01-01"
	future := "2999-01-01"
	_, err := s.Tasks().Create(ctx, &model.Task{
		UserID: u.ID, Title: "old", Type: model.TaskScheduled, Status: model.StatusPending,
		Priority: model.PriorityHigh, Category: "general", DueDate: &past, CreatedVia: model.ChannelText,
	})
	require.NoError(t, err)
	_, err = s.Tasks().Create(ctx, &model.Task{
		UserID: u.ID, Title: "new", Type: model.TaskScheduled, Status: model.StatusPending,
		Priority: model.PriorityLow, Category: "general", DueDate: &future, CreatedVia: model.ChannelText,
	})
	require.NoError(t, err)

	today := time.Now().UTC().Format("2006-01-02")
	overdue, err := s.Tasks().Overdue(ctx, u.ID, today)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "old", overdue[0].Title)

	stats, err := s.Tasks().Stats(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveCount)
	assert.Equal(t, 1, stats.OverdueCount)
}

func TestConversations_UpsertAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "+972504444444")

	_, err := s.Conversations().Get(ctx, u.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	now := time.Now()
	require.NoError(t, s.Conversations().Set(ctx, u.ID, "task_creation", []byte(`{"step":"confirm"}`), now))

	c, err := s.Conversations().Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, c.FlowName)
	assert.Equal(t, "task_creation", *c.FlowName)
	assert.JSONEq(t, `{"step":"confirm"}`, string(c.FlowData))

	// upsert keeps started_time, bumps last_interaction
	later := now.Add(2 * time.Minute)
	require.NoError(t, s.Conversations().Set(ctx, u.ID, "task_creation", []byte(`{"step":"reminder_select"}`), later))
	c2, err := s.Conversations().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, c.StartedTime.Unix(), c2.StartedTime.Unix())
	assert.True(t, c2.LastInteraction.After(c.LastInteraction))

	require.NoError(t, s.Conversations().Clear(ctx, u.ID))
	require.NoError(t, s.Conversations().Clear(ctx, u.ID)) // idempotent
	_, err = s.Conversations().Get(ctx, u.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestReminders_DueJoinSkipsFinishedTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "+972505555555")

	mk := func(title string) *model.Task {
		task, err := s.Tasks().Create(ctx, &model.Task{
			UserID: u.ID, Title: title, Type: model.TaskToday, Status: model.StatusPending,
			Priority: model.PriorityMedium, Category: "general", CreatedVia: model.ChannelText,
		})
		require.NoError(t, err)
		return task
	}
	t1 := mk("open task")
	t2 := mk("done task")

	past := time.Now().Add(-time.Minute)
	for _, taskID := range []int64{t1.ID, t2.ID} {
		_, err := s.Reminders().Create(ctx, &model.Reminder{
			TaskID: taskID, UserID: u.ID, Type: model.ReminderBeforeTask, ScheduledTime: past,
		})
		require.NoError(t, err)
	}
	_, err := s.Tasks().SetStatus(ctx, u.ID, t2.ID, model.StatusCompleted, time.Now())
	require.NoError(t, err)

	due, err := s.Reminders().Due(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, t1.ID, due[0].TaskID)
	assert.Equal(t, "open task", due[0].TaskTitle)
	assert.Equal(t, "+972505555555", due[0].PhoneNumber)

	require.NoError(t, s.Reminders().MarkSent(ctx, due[0].ID, time.Now()))
	due, err = s.Reminders().Due(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDelegations_StatusTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "+972506666666")
	task, err := s.Tasks().Create(ctx, &model.Task{
		UserID: u.ID, Title: "send report", Type: model.TaskDelegated, Status: model.StatusPending,
		Priority: model.PriorityMedium, Category: "general", CreatedVia: model.ChannelText,
	})
	require.NoError(t, err)

	d, err := s.Delegations().Create(ctx, &model.Delegation{
		TaskID: task.ID, DelegatorID: u.ID, AssigneePhone: "+972507777777",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DelegationPending, d.Status)

	accepted, err := s.Delegations().UpdateStatus(ctx, d.ID, model.DelegationAccepted, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.DelegationAccepted, accepted.Status)
	assert.NotNil(t, accepted.AcceptedTime)

	_, err = s.Delegations().UpdateStatus(ctx, 9999, model.DelegationAccepted, time.Now())
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestMeetings_ParticipantsUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "+972508888888")
	task, err := s.Tasks().Create(ctx, &model.Task{
		UserID: u.ID, Title: "פגישה עם דנה", Type: model.TaskMeeting, Status: model.StatusPending,
		Priority: model.PriorityMedium, Category: "meetings", CreatedVia: model.ChannelText,
	})
	require.NoError(t, err)

	start := "14:00"
	m, err := s.Meetings().Create(ctx, &model.Meeting{
		TaskID: task.ID, OrganizerID: u.ID, Title: "פגישה עם דנה",
		Date: "2026-09-02", StartTime: &start,
	})
	require.NoError(t, err)

	_, err = s.Meetings().AddParticipant(ctx, &model.Participant{
		MeetingID: m.ID, PhoneNumber: "+972509999999",
	})
	require.NoError(t, err)
	_, err = s.Meetings().AddParticipant(ctx, &model.Participant{
		MeetingID: m.ID, PhoneNumber: "+972509999999",
	})
	assert.ErrorIs(t, err, model.ErrConflict)

	p, err := s.Meetings().UpdateParticipantStatus(ctx, m.ID, "+972509999999", model.ParticipantAccepted, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ParticipantAccepted, p.Status)
	assert.NotNil(t, p.RespondedTime)
}

func TestMessageLog_AppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "+972501010101")

	for _, dir := range []string{"incoming", "outgoing"} {
		require.NoError(t, s.MessageLog().Append(ctx, &model.MessageLogEntry{
			UserID: u.ID, Direction: dir, MessageType: "text", Content: "hi",
		}))
	}
	entries, err := s.MessageLog().ListRecent(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "outgoing", entries[0].Direction) // newest first
}
