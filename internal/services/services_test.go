package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskivo/taskivo/internal/contact"
	"github.com/taskivo/taskivo/internal/extract"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/store"
	"github.com/taskivo/taskivo/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	return st
}

func strp(s string) *string { return &s }

func TestUsers_GetOrCreate(t *testing.T) {
	st := newTestStore(t)
	users := NewUsers(st, zerolog.Nop(), "he", "Asia/Jerusalem")
	ctx := context.Background()

	u, isNew, err := users.GetOrCreate(ctx, "+972501234567")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "he", u.Language)

	again, isNew, err := users.GetOrCreate(ctx, "+972501234567")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, u.ID, again.ID)
}

func TestTasks_SaveWithReminder(t *testing.T) {
	st := newTestStore(t)
	users := NewUsers(st, zerolog.Nop(), "he", "Asia/Jerusalem")
	tasks := NewTasks(st, zerolog.Nop())
	ctx := context.Background()
	u, _, err := users.GetOrCreate(ctx, "+972501234567")
	require.NoError(t, err)

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	out, err := tasks.SaveWithReminder(ctx, u.ID, extract.TaskSlots{
		Title:    "buy milk",
		DueDate:  strp(tomorrow),
		DueTime:  strp("15:00"),
		Priority: model.PriorityMedium,
	}, model.TaskScheduled, model.ChannelText, 60)
	require.NoError(t, err)
	require.NotNil(t, out.Reminder)
	assert.False(t, out.ReminderSkipped)

	due, err := time.ParseInLocation("2006-01-02 15:04", tomorrow+" 15:00", time.Now().Location())
	require.NoError(t, err)
	assert.Equal(t, due.Add(-time.Hour).UTC(), out.Reminder.ScheduledTime.UTC())
}

func TestTasks_SaveWithReminder_SkipsPastAndNone(t *testing.T) {
	st := newTestStore(t)
	users := NewUsers(st, zerolog.Nop(), "he", "Asia/Jerusalem")
	tasks := NewTasks(st, zerolog.Nop())
	ctx := context.Background()
	u, _, err := users.GetOrCreate(ctx, "+972501234567")
	require.NoError(t, err)

	// no due date at all
	out, err := tasks.SaveWithReminder(ctx, u.ID, extract.TaskSlots{Title: "no date", Priority: model.PriorityMedium},
		model.TaskToday, model.ChannelText, 60)
	require.NoError(t, err)
	assert.True(t, out.ReminderSkipped)
	assert.Nil(t, out.Reminder)

	// offset lands before now
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	out, err = tasks.SaveWithReminder(ctx, u.ID, extract.TaskSlots{
		Title: "late", DueDate: strp(yesterday), Priority: model.PriorityMedium,
	}, model.TaskScheduled, model.ChannelText, 60)
	require.NoError(t, err)
	assert.True(t, out.ReminderSkipped)

	// none selected
	out, err = tasks.SaveWithReminder(ctx, u.ID, extract.TaskSlots{
		Title: "quiet", DueDate: strp(time.Now().AddDate(0, 0, 1).Format("2006-01-02")), Priority: model.PriorityMedium,
	}, model.TaskScheduled, model.ChannelText, 0)
	require.NoError(t, err)
	assert.True(t, out.ReminderSkipped)
}

func TestTasks_Create_AttachesAutoReminders(t *testing.T) {
	st := newTestStore(t)
	users := NewUsers(st, zerolog.Nop(), "he", "Asia/Jerusalem")
	tasks := NewTasks(st, zerolog.Nop())
	tasks.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local) }
	ctx := context.Background()
	u, _, err := users.GetOrCreate(ctx, "+972501234567")
	require.NoError(t, err)

	// due far enough ahead for the whole offset set
	task, err := tasks.Create(ctx, &model.Task{
		UserID: u.ID, Title: "לקנות חלב", DueDate: strp("2026-09-10"), DueTime: strp("15:00"),
		CreatedVia: model.ChannelAPI,
	})
	require.NoError(t, err)
	rems, err := st.Reminders().ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, rems, 4)
	due := time.Date(2026, 9, 10, 15, 0, 0, 0, time.Local)
	assert.Equal(t, due.Add(-24*time.Hour).UTC(), rems[0].ScheduledTime.UTC())
	assert.Equal(t, due.UTC(), rems[3].ScheduledTime.UTC())

	// due in half an hour: only the 15-minute and at-time nudges survive
	soon, err := tasks.Create(ctx, &model.Task{
		UserID: u.ID, Title: "שיחה", DueDate: strp("2026-09-01"), DueTime: strp("10:30"),
		CreatedVia: model.ChannelAPI,
	})
	require.NoError(t, err)
	rems, err = st.Reminders().ListByTask(ctx, soon.ID)
	require.NoError(t, err)
	require.Len(t, rems, 2)

	// no due date, no reminders
	bare, err := tasks.Create(ctx, &model.Task{UserID: u.ID, Title: "ללא תאריך", CreatedVia: model.ChannelAPI})
	require.NoError(t, err)
	rems, err = st.Reminders().ListByTask(ctx, bare.ID)
	require.NoError(t, err)
	assert.Empty(t, rems)
}

func TestMeetings_Schedule_CreatesCompanionTaskFirst(t *testing.T) {
	st := newTestStore(t)
	users := NewUsers(st, zerolog.Nop(), "he", "Asia/Jerusalem")
	meetings := NewMeetings(st, zerolog.Nop())
	ctx := context.Background()
	u, _, err := users.GetOrCreate(ctx, "+972501234567")
	require.NoError(t, err)

	out, err := meetings.Schedule(ctx, u.ID, extract.MeetingSlots{
		Title: "sync with dana", Date: strp("2026-09-01"), Time: strp("14:00"),
	}, model.ChannelText)
	require.NoError(t, err)
	require.NotNil(t, out.Meeting)
	require.NotNil(t, out.Task)
	assert.Equal(t, out.Task.ID, out.Meeting.TaskID)
	assert.Equal(t, model.TaskMeeting, out.Task.Type)
	assert.Contains(t, out.CalendarLink, "calendar.google.com")

	_, err = meetings.Schedule(ctx, u.ID, extract.MeetingSlots{Title: "no date"}, model.ChannelText)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestMeetings_InviteAndRespond(t *testing.T) {
	st := newTestStore(t)
	users := NewUsers(st, zerolog.Nop(), "he", "Asia/Jerusalem")
	meetings := NewMeetings(st, zerolog.Nop())
	ctx := context.Background()
	u, _, err := users.GetOrCreate(ctx, "+972501234567")
	require.NoError(t, err)

	out, err := meetings.Schedule(ctx, u.ID, extract.MeetingSlots{
		Title: "planning", Date: strp("2026-09-02"),
	}, model.ChannelText)
	require.NoError(t, err)

	card := &contact.Card{Name: "דנה", Phone: "+972521111111"}
	p, err := meetings.Invite(ctx, out.Meeting.ID, card)
	require.NoError(t, err)
	assert.Equal(t, model.ParticipantPending, p.Status)
	assert.NotNil(t, p.NotifiedTime)

	_, err = meetings.Invite(ctx, out.Meeting.ID, card)
	assert.ErrorIs(t, err, model.ErrConflict)

	m, err := meetings.Respond(ctx, card.Phone, true)
	require.NoError(t, err)
	assert.Equal(t, out.Meeting.ID, m.ID)

	ps, err := meetings.Participants(ctx, out.Meeting.ID)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, model.ParticipantAccepted, ps[0].Status)

	_, err = meetings.Respond(ctx, card.Phone, true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDelegations_DelegateAndRespond(t *testing.T) {
	st := newTestStore(t)
	users := NewUsers(st, zerolog.Nop(), "he", "Asia/Jerusalem")
	tasks := NewTasks(st, zerolog.Nop())
	delegations := NewDelegations(st, zerolog.Nop())
	ctx := context.Background()
	u, _, err := users.GetOrCreate(ctx, "+972501234567")
	require.NoError(t, err)

	out, err := tasks.SaveWithReminder(ctx, u.ID, extract.TaskSlots{
		Title: "prepare deck", Priority: model.PriorityMedium,
	}, model.TaskToday, model.ChannelText, 0)
	require.NoError(t, err)

	card := &contact.Card{Name: "יוסי", Phone: "+972522222222"}
	d, task, err := delegations.Delegate(ctx, u.ID, out.Task.ID, card)
	require.NoError(t, err)
	assert.Equal(t, model.DelegationPending, d.Status)
	assert.Equal(t, model.TaskDelegated, task.Type)

	accepted, delegated, err := delegations.Respond(ctx, card.Phone, true)
	require.NoError(t, err)
	assert.Equal(t, model.DelegationAccepted, accepted.Status)
	require.NotNil(t, delegated)
	assert.Equal(t, "prepare deck", delegated.Title)

	_, _, err = delegations.Respond(ctx, card.Phone, true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestReminders_CompleteAndSnoozeLatest(t *testing.T) {
	st := newTestStore(t)
	users := NewUsers(st, zerolog.Nop(), "he", "Asia/Jerusalem")
	tasks := NewTasks(st, zerolog.Nop())
	reminders := NewReminders(st, zerolog.Nop())
	ctx := context.Background()
	u, _, err := users.GetOrCreate(ctx, "+972501234567")
	require.NoError(t, err)

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	out, err := tasks.SaveWithReminder(ctx, u.ID, extract.TaskSlots{
		Title: "call dentist", DueDate: strp(tomorrow), DueTime: strp("12:00"), Priority: model.PriorityHigh,
	}, model.TaskScheduled, model.ChannelText, 60)
	require.NoError(t, err)
	require.NotNil(t, out.Reminder)

	// nothing sent yet
	_, err = reminders.CompleteLatest(ctx, u.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	reminders.MarkSent(ctx, out.Reminder.ID)

	until, err := reminders.SnoozeLatest(ctx, u.ID, 30)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), until, 5*time.Second)

	reminders.MarkSent(ctx, out.Reminder.ID)
	task, err := reminders.CompleteLatest(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, task.Status)
}
