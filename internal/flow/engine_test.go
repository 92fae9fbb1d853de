package flow

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskivo/taskivo/internal/extract"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/services"
	"github.com/taskivo/taskivo/internal/store"
	"github.com/taskivo/taskivo/internal/store/sqlite"
	"github.com/taskivo/taskivo/internal/wa"
)

type sentMsg struct {
	Phone    string
	Template string
	Body     string
	Vars     map[string]string
}

// fakeSender records outbound traffic instead of calling Twilio.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentMsg
}

func (f *fakeSender) SendText(ctx context.Context, phone, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{Phone: phone, Body: body})
	return "fake", nil
}

func (f *fakeSender) SendTemplate(ctx context.Context, phone, name string, vars map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{Phone: phone, Template: name, Vars: vars})
	return "fake", nil
}

func (f *fakeSender) last() sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMsg{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) templates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.Template != "" {
			out = append(out, m.Template)
		}
	}
	return out
}

type fixedTranscriber struct{ text string }

func (t fixedTranscriber) Transcribe(ctx context.Context, audioURL string) (string, error) {
	return t.text, nil
}

func newTestEngine(t *testing.T, transcript string) (*Engine, *fakeSender, store.Store, *model.User) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	log := zerolog.Nop()
	sender := &fakeSender{}
	users := services.NewUsers(st, log, "he", "Asia/Jerusalem")
	e := New(Deps{
		Store:       st,
		Users:       users,
		Tasks:       services.NewTasks(st, log),
		Meetings:    services.NewMeetings(st, log),
		Delegations: services.NewDelegations(st, log),
		Reminders:   services.NewReminders(st, log),
		MessageLog:  services.NewMessageLog(st, log),
		Sender:      sender,
		Extractor:   extract.New(nil, log),
		Transcriber: fixedTranscriber{text: transcript},
		CountryCode: "972",
		Logger:      log,
	})
	user, _, err := users.GetOrCreate(context.Background(), "+972501234567")
	require.NoError(t, err)
	return e, sender, st, user
}

func flowState(t *testing.T, st store.Store, userID int64) (string, []byte) {
	t.Helper()
	cs, err := st.Conversations().Get(context.Background(), userID)
	if err != nil {
		return "", nil
	}
	name := ""
	if cs.FlowName != nil {
		name = *cs.FlowName
	}
	return name, cs.FlowData
}

func TestTaskFlow_EndToEnd(t *testing.T) {
	e, sender, st, user := newTestEngine(t, "")
	ctx := context.Background()

	// Free text with no date enters the task flow at confirm.
	e.Handle(ctx, user, Inbound{Text: "buy milk"})
	name, raw := flowState(t, st, user.ID)
	assert.Equal(t, string(FlowTask), name)
	var d TaskData
	require.NoError(t, json.Unmarshal(raw, &d))
	assert.Equal(t, StepConfirm, d.Step)
	assert.Equal(t, "buy milk", d.Slots.Title)
	assert.Contains(t, sender.last().Body, "buy milk")

	// Confirm; no due date, so the date fallback opens.
	e.Handle(ctx, user, Inbound{Text: "כן"})
	name, raw = flowState(t, st, user.ID)
	require.NoError(t, json.Unmarshal(raw, &d))
	assert.Equal(t, StepDateFallback, d.Step)

	// Typed "tomorrow" resolves the date and asks for a reminder.
	e.Handle(ctx, user, Inbound{Text: "tomorrow"})
	_, raw = flowState(t, st, user.ID)
	require.NoError(t, json.Unmarshal(raw, &d))
	assert.Equal(t, StepReminderSelect, d.Step)
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	require.NotNil(t, d.Slots.DueDate)
	assert.Equal(t, tomorrow, *d.Slots.DueDate)

	// One hour before: the task and exactly one reminder are persisted.
	e.Handle(ctx, user, Inbound{Payload: "remind_60"})
	tasks, err := st.Tasks().List(ctx, user.ID, model.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, tomorrow, *tasks[0].DueDate)

	rems, err := st.Reminders().ListByTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	require.Len(t, rems, 1)
	due, _ := time.ParseInLocation("2006-01-02 15:04", tomorrow+" 09:00", time.Now().Location())
	assert.Equal(t, due.Add(-time.Hour).UTC(), rems[0].ScheduledTime.UTC())

	// Decline delegation: flow ends.
	e.Handle(ctx, user, Inbound{Payload: "delegate_no"})
	name, _ = flowState(t, st, user.ID)
	assert.Empty(t, name)
}

func TestMeetingKeyword_RoutesToMeetingFlow(t *testing.T) {
	e, sender, st, user := newTestEngine(t, "")
	ctx := context.Background()
	e.Handle(ctx, user, Inbound{Text: "פגישה עם דנה מחר"})
	name, raw := flowState(t, st, user.ID)
	assert.Equal(t, string(FlowMeeting), name)
	var d MeetingData
	require.NoError(t, json.Unmarshal(raw, &d))
	assert.Equal(t, StepConfirm, d.Step)

	// The confirm card is sent with the recognized details in its body.
	last := sender.last()
	assert.Equal(t, wa.TplMeetingConfirm, last.Template)
	assert.Contains(t, last.Vars["1"], "פגישה עם דנה")

	// A degraded "1" maps to the confirm button; the date is already set,
	// so the time picker opens next.
	e.Handle(ctx, user, Inbound{Text: "1"})
	_, raw = flowState(t, st, user.ID)
	require.NoError(t, json.Unmarshal(raw, &d))
	assert.Equal(t, StepTimeSelect, d.Step)
}

func TestCancel_Idempotent(t *testing.T) {
	e, sender, st, user := newTestEngine(t, "")
	ctx := context.Background()
	e.Handle(ctx, user, Inbound{Text: "ביטול"})
	e.Handle(ctx, user, Inbound{Text: "ביטול"})
	name, _ := flowState(t, st, user.ID)
	assert.Empty(t, name)
	assert.NotEmpty(t, sender.sent)
}

func TestCancel_AbortsActiveFlow(t *testing.T) {
	e, _, st, user := newTestEngine(t, "")
	ctx := context.Background()
	e.Handle(ctx, user, Inbound{Text: "buy milk"})
	name, _ := flowState(t, st, user.ID)
	require.Equal(t, string(FlowTask), name)

	e.Handle(ctx, user, Inbound{Text: "cancel"})
	name, _ = flowState(t, st, user.ID)
	assert.Empty(t, name)
}

func TestDelegation_NormalizesTypedPhone(t *testing.T) {
	e, sender, st, user := newTestEngine(t, "")
	ctx := context.Background()

	// Park a saved task in the contact-collection flow.
	require.NoError(t, e.save(ctx, user.ID, FlowDelegate, DelegateData{TaskID: seedTask(t, st, user.ID), Title: "prepare deck"}))

	e.Handle(ctx, user, Inbound{Text: "0501112222"})
	ds, err := st.Delegations().ListByDelegator(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "+972501112222", ds[0].AssigneePhone)

	// The assignee got the invite card.
	var invitedPhone string
	for _, m := range sender.sent {
		if m.Template == "wt_delegation_invite" {
			invitedPhone = m.Phone
		}
	}
	assert.Equal(t, "+972501112222", invitedPhone)
}

func TestDelegateFlow_EscapesOnNonContact(t *testing.T) {
	e, _, st, user := newTestEngine(t, "")
	ctx := context.Background()
	require.NoError(t, e.save(ctx, user.ID, FlowDelegate, DelegateData{TaskID: seedTask(t, st, user.ID), Title: "x"}))

	e.Handle(ctx, user, Inbound{Text: "buy bread tomorrow"})
	name, raw := flowState(t, st, user.ID)
	// Reprocessed as a fresh auto-detected task.
	assert.Equal(t, string(FlowTask), name)
	var d TaskData
	require.NoError(t, json.Unmarshal(raw, &d))
	assert.Contains(t, d.Slots.Title, "buy bread")
}

func TestVoiceInterruption_ResumesAtTimeSelect(t *testing.T) {
	e, sender, st, user := newTestEngine(t, "14:00")
	ctx := context.Background()

	date := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	md := MeetingData{Step: StepTimeSelect, Via: model.ChannelText,
		Slots: extract.MeetingSlots{Title: "sync", Date: &date}}
	require.NoError(t, e.save(ctx, user.ID, FlowMeeting, md))

	// Voice note mid-flow parks the transcript.
	e.Handle(ctx, user, Inbound{NumMedia: 1, MediaContentType: "audio/ogg", MediaURL: "https://x/audio"})
	name, raw := flowState(t, st, user.ID)
	require.Equal(t, string(FlowVoice), name)
	var vd VoiceData
	require.NoError(t, json.Unmarshal(raw, &vd))
	assert.Equal(t, FlowMeeting, vd.ReturnFlow)
	assert.Equal(t, "14:00", vd.Transcript)

	// Confirming re-dispatches the transcript into time_select: the
	// meeting is saved and the invite loop opens.
	e.Handle(ctx, user, Inbound{Text: "כן"})
	name, raw = flowState(t, st, user.ID)
	assert.Equal(t, string(FlowInvites), name)

	meetings, err := st.Meetings().ListByOrganizer(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	require.NotNil(t, meetings[0].StartTime)
	assert.Equal(t, "14:00", *meetings[0].StartTime)
	assert.NotEmpty(t, sender.sent)
}

func TestVoiceDiscard_RepromptsCurrentStep(t *testing.T) {
	e, sender, st, user := newTestEngine(t, "ignore me")
	ctx := context.Background()

	date := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	md := MeetingData{Step: StepTimeSelect, Via: model.ChannelText,
		Slots: extract.MeetingSlots{Title: "sync", Date: &date}}
	require.NoError(t, e.save(ctx, user.ID, FlowMeeting, md))

	e.Handle(ctx, user, Inbound{NumMedia: 1, MediaContentType: "audio/ogg", MediaURL: "https://x/audio"})
	e.Handle(ctx, user, Inbound{Text: "לא"})

	name, raw := flowState(t, st, user.ID)
	assert.Equal(t, string(FlowMeeting), name)
	var d MeetingData
	require.NoError(t, json.Unmarshal(raw, &d))
	assert.Equal(t, StepTimeSelect, d.Step)
	// The step prompt was re-sent as the time picker template.
	tpls := sender.templates()
	require.NotEmpty(t, tpls)
	assert.Equal(t, "wt_time_select", tpls[len(tpls)-1])
}

func TestUnknownFlow_ClearsAndRoutesIdle(t *testing.T) {
	e, _, st, user := newTestEngine(t, "")
	ctx := context.Background()
	require.NoError(t, st.Conversations().Set(ctx, user.ID, "ancient_flow", []byte(`{}`), time.Now()))

	e.Handle(ctx, user, Inbound{Text: "עזרה"})
	name, _ := flowState(t, st, user.ID)
	assert.Empty(t, name)
}

func TestInviteLoop_CollectsAndExits(t *testing.T) {
	e, sender, st, user := newTestEngine(t, "")
	ctx := context.Background()

	date := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	startAt := "10:00"
	out, err := services.NewMeetings(st, zerolog.Nop()).Schedule(ctx, user.ID,
		extract.MeetingSlots{Title: "planning", Date: &date, Time: &startAt}, model.ChannelText)
	require.NoError(t, err)
	inv := InvitesData{MeetingID: out.Meeting.ID, Title: "planning", Date: date, StartTime: startAt}
	require.NoError(t, e.save(ctx, user.ID, FlowInvites, inv))

	e.Handle(ctx, user, Inbound{Text: "0521234567"})
	ps, err := st.Meetings().ListParticipants(ctx, out.Meeting.ID)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "+972521234567", ps[0].PhoneNumber)

	e.Handle(ctx, user, Inbound{Text: "סיום"})
	name, _ := flowState(t, st, user.ID)
	assert.Empty(t, name)
	tpls := sender.templates()
	assert.Equal(t, "wt_meeting_success", tpls[len(tpls)-1])
}

func TestParseDate(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) // Wednesday

	got, ok := parseDate("25/12/2026", now)
	require.True(t, ok)
	assert.Equal(t, "2026-12-25", got)

	got, ok = parseDate("2026-12-25", now)
	require.True(t, ok)
	assert.Equal(t, "2026-12-25", got)

	got, ok = parseDate("25.12.2026", now)
	require.True(t, ok)
	assert.Equal(t, "2026-12-25", got)

	// Day/month without year: next future occurrence.
	got, ok = parseDate("1/2", now)
	require.True(t, ok)
	assert.Equal(t, "2027-02-01", got)

	got, ok = parseDate("1/4", now)
	require.True(t, ok)
	assert.Equal(t, "2026-04-01", got)

	got, ok = parseDate("מחר", now)
	require.True(t, ok)
	assert.Equal(t, "2026-03-05", got)

	_, ok = parseDate("not a date", now)
	assert.False(t, ok)

	assert.Equal(t, "2026-03-06", endOfWeek(now))
}

func TestParseClock(t *testing.T) {
	got, ok := parseClock("9:30")
	require.True(t, ok)
	assert.Equal(t, "09:30", got)

	_, ok = parseClock("25:00")
	assert.False(t, ok)
}

func seedTask(t *testing.T, st store.Store, userID int64) int64 {
	t.Helper()
	task, err := st.Tasks().Create(context.Background(), &model.Task{
		UserID: userID, Title: "prepare deck", Type: model.TaskToday,
		Priority: model.PriorityMedium, CreatedVia: model.ChannelText,
	})
	require.NoError(t, err)
	return task.ID
}
