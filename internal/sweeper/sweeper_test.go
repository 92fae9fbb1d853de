package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/services"
	"github.com/taskivo/taskivo/internal/store/sqlite"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string // phone or template name
	fail bool
}

func (r *recordingSender) SendText(ctx context.Context, phone, body string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return "", context.DeadlineExceeded
	}
	r.sent = append(r.sent, body)
	return "ok", nil
}

func (r *recordingSender) SendTemplate(ctx context.Context, phone, name string, vars map[string]string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return "", context.DeadlineExceeded
	}
	r.sent = append(r.sent, name)
	return "ok", nil
}

func TestSweep_SendsAndMarksSent(t *testing.T) {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	ctx := context.Background()
	log := zerolog.Nop()

	u, err := st.Users().Create(ctx, &model.User{PhoneNumber: "+972501234567", Language: "he", TimeZone: "Asia/Jerusalem"})
	require.NoError(t, err)
	due := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	task, err := st.Tasks().Create(ctx, &model.Task{
		UserID: u.ID, Title: "call dentist", Type: model.TaskScheduled,
		Priority: model.PriorityHigh, DueDate: &due, CreatedVia: model.ChannelText,
	})
	require.NoError(t, err)
	_, err = st.Reminders().Create(ctx, &model.Reminder{
		TaskID: task.ID, UserID: u.ID, Type: model.ReminderBeforeTask,
		ScheduledTime: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	sender := &recordingSender{}
	s := New(services.NewReminders(st, log), services.NewMessageLog(st, log), sender, log)

	s.Sweep(ctx)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "wt_reminder", sender.sent[0])

	got, err := st.Reminders().ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ReminderSent, got[0].Status)

	// A second sweep finds nothing due.
	s.Sweep(ctx)
	assert.Len(t, sender.sent, 1)
}

func TestSweep_MarksSentEvenWhenSendFails(t *testing.T) {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	ctx := context.Background()
	log := zerolog.Nop()

	u, err := st.Users().Create(ctx, &model.User{PhoneNumber: "+972501234567", Language: "he", TimeZone: "Asia/Jerusalem"})
	require.NoError(t, err)
	due := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	task, err := st.Tasks().Create(ctx, &model.Task{
		UserID: u.ID, Title: "x", Type: model.TaskScheduled,
		Priority: model.PriorityMedium, DueDate: &due, CreatedVia: model.ChannelText,
	})
	require.NoError(t, err)
	_, err = st.Reminders().Create(ctx, &model.Reminder{
		TaskID: task.ID, UserID: u.ID, Type: model.ReminderBeforeTask,
		ScheduledTime: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	sender := &recordingSender{fail: true}
	s := New(services.NewReminders(st, log), services.NewMessageLog(st, log), sender, log)
	s.Sweep(ctx)

	got, err := st.Reminders().ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ReminderSent, got[0].Status)
}

func TestReminderText(t *testing.T) {
	due := "2026-09-01"
	at := "14:00"
	body := reminderText(&model.DueReminder{
		TaskTitle: "call dentist", Priority: model.PriorityUrgent,
		TaskDueDate: &due, TaskDueTime: &at,
	})
	assert.Contains(t, body, "🔴 call dentist")
	assert.Contains(t, body, "01/09/2026")
	assert.Contains(t, body, "14:00")
}
