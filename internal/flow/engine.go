package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/extract"
	"github.com/taskivo/taskivo/internal/lexicon"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/services"
	"github.com/taskivo/taskivo/internal/store"
	"github.com/taskivo/taskivo/internal/voice"
	"github.com/taskivo/taskivo/internal/wa"
)

// Inbound is one webhook message after channel-level decoding. VCard
// holds downloaded contact-card content when the message shared one.
type Inbound struct {
	Text             string
	Payload          string // button or list selection id
	NumMedia         int
	MediaURL         string
	MediaContentType string
	VCard            string
}

// Deps wires the engine. All fields are required; Transcriber may be the
// mock when no speech backend is configured.
type Deps struct {
	Store       store.Store
	Users       *services.Users
	Tasks       *services.Tasks
	Meetings    *services.Meetings
	Delegations *services.Delegations
	Reminders   *services.Reminders
	MessageLog  *services.MessageLog
	Sender      wa.Sender
	Extractor   *extract.Extractor
	Transcriber voice.Transcriber
	CountryCode string
	Logger      zerolog.Logger
}

// Engine routes inbound messages through the conversation state machine.
type Engine struct {
	store       store.Store
	users       *services.Users
	tasks       *services.Tasks
	meetings    *services.Meetings
	delegations *services.Delegations
	reminders   *services.Reminders
	msgLog      *services.MessageLog
	sender      wa.Sender
	extractor   *extract.Extractor
	transcriber voice.Transcriber
	countryCode string
	log         zerolog.Logger
	now         func() time.Time
}

func New(d Deps) *Engine {
	return &Engine{
		store:       d.Store,
		users:       d.Users,
		tasks:       d.Tasks,
		meetings:    d.Meetings,
		delegations: d.Delegations,
		reminders:   d.Reminders,
		msgLog:      d.MessageLog,
		sender:      d.Sender,
		extractor:   d.Extractor,
		transcriber: d.Transcriber,
		countryCode: d.CountryCode,
		log:         d.Logger.With().Str("component", "flow").Logger(),
		now:         time.Now,
	}
}

// Handle processes one inbound message end to end. It never returns an
// error: a failing step clears the flow and apologizes so the user is
// never stuck in a broken state.
func (e *Engine) Handle(ctx context.Context, user *model.User, in Inbound) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Int64("user_id", user.ID).Msg("flow handler panicked")
			e.fail(ctx, user)
		}
	}()
	e.users.Touch(ctx, user.ID)

	if in.NumMedia > 0 && strings.HasPrefix(in.MediaContentType, "audio") {
		e.msgLog.Incoming(ctx, user.ID, "voice", in.MediaURL, nil)
		e.handleVoice(ctx, user, in.MediaURL)
		return
	}

	text := strings.TrimSpace(in.Text)
	e.msgLog.Incoming(ctx, user.ID, "text", text, nil)

	// Cancellation short-circuits everything, including active flows.
	if lexicon.IsCancel(text) {
		e.clear(ctx, user.ID)
		e.sendText(ctx, user, msgCancelled)
		e.sendTemplate(ctx, user, wa.TplMainMenu, nil)
		return
	}

	action, hasAction := resolveAction(in, text)
	if hasAction && isGlobalAction(action) {
		// Reminder and invite cards arrive asynchronously; their buttons
		// must work regardless of whatever flow is open.
		e.handleGlobalAction(ctx, user, action)
		return
	}

	name, raw := e.load(ctx, user.ID)
	if name != "" {
		if err := e.dispatch(ctx, user, name, raw, text, action, hasAction, in); err != nil {
			e.log.Error().Err(err).Str("flow", string(name)).Int64("user_id", user.ID).Msg("flow step failed")
			e.fail(ctx, user)
		}
		return
	}

	e.routeIdle(ctx, user, text, action, hasAction)
}

// routeIdle handles a message with no flow active: menu actions, symbolic
// commands, then free-text auto-detection.
func (e *Engine) routeIdle(ctx context.Context, user *model.User, text string, action lexicon.ActionID, hasAction bool) {
	if hasAction {
		e.handleMenuAction(ctx, user, action)
		return
	}
	if cmd, ok := lexicon.Resolve(text); ok {
		e.handleCommand(ctx, user, cmd)
		return
	}
	if text == "" {
		e.sendTemplate(ctx, user, wa.TplMainMenu, nil)
		return
	}
	e.autoDetect(ctx, user, text, model.ChannelText)
}

// dispatch routes into the active flow's step handler. An unknown flow
// name (stale data from an older build) clears and returns to idle.
func (e *Engine) dispatch(ctx context.Context, user *model.User, name Name, raw []byte, text string, action lexicon.ActionID, hasAction bool, in Inbound) error {
	switch name {
	case FlowTask:
		return e.handleTaskFlow(ctx, user, raw, text, action, hasAction)
	case FlowMeeting:
		return e.handleMeetingFlow(ctx, user, raw, text, action, hasAction)
	case FlowDelegate:
		return e.handleDelegateFlow(ctx, user, raw, text, in)
	case FlowInvites:
		return e.handleInvitesFlow(ctx, user, raw, text, in)
	case FlowVoice:
		return e.handleVoicePending(ctx, user, raw, text, action, hasAction)
	default:
		e.log.Warn().Str("flow", string(name)).Int64("user_id", user.ID).Msg("unknown flow in state store, clearing")
		e.clear(ctx, user.ID)
		e.routeIdle(ctx, user, text, action, hasAction)
		return nil
	}
}

// resolveAction extracts a structured selection id, falling back to the
// button-label text table when the channel echoed the label as plain text.
func resolveAction(in Inbound, text string) (lexicon.ActionID, bool) {
	if p := strings.TrimSpace(in.Payload); p != "" {
		return lexicon.ActionID(p), true
	}
	return lexicon.ButtonText(text)
}

func isGlobalAction(a lexicon.ActionID) bool {
	switch a {
	case lexicon.ActionTaskDone, lexicon.ActionSnooze30, lexicon.ActionSnooze60,
		lexicon.ActionAcceptDelegation, lexicon.ActionDeclineDelegation,
		lexicon.ActionAcceptMeeting, lexicon.ActionDeclineMeeting,
		lexicon.ActionDecline:
		return true
	}
	return false
}

func (e *Engine) handleGlobalAction(ctx context.Context, user *model.User, action lexicon.ActionID) {
	switch action {
	case lexicon.ActionTaskDone:
		e.completeFromReminder(ctx, user)
	case lexicon.ActionSnooze30:
		e.snooze(ctx, user, 30)
	case lexicon.ActionSnooze60:
		e.snooze(ctx, user, 60)
	case lexicon.ActionAcceptDelegation:
		e.respondDelegation(ctx, user, true)
	case lexicon.ActionDeclineDelegation:
		e.respondDelegation(ctx, user, false)
	case lexicon.ActionAcceptMeeting:
		e.respondMeeting(ctx, user, true)
	case lexicon.ActionDeclineMeeting:
		e.respondMeeting(ctx, user, false)
	case lexicon.ActionDecline:
		// Both invite cards share the decline label; the open delegation,
		// if any, wins, otherwise the open meeting invite.
		if e.respondDelegation(ctx, user, false) {
			return
		}
		if e.respondMeeting(ctx, user, false) {
			return
		}
		e.sendText(ctx, user, "🤷 לא מצאתי הזמנה פתוחה")
	}
}

// handleMenuAction covers selections from the main menu and success cards.
func (e *Engine) handleMenuAction(ctx context.Context, user *model.User, action lexicon.ActionID) {
	switch action {
	case lexicon.ActionTaskToday, lexicon.ActionNewTask:
		e.startTaskFlow(ctx, user, model.TaskToday, false)
	case lexicon.ActionTaskScheduled:
		e.startTaskFlow(ctx, user, model.TaskScheduled, false)
	case lexicon.ActionTaskDelegate:
		e.startTaskFlow(ctx, user, model.TaskToday, true)
	case lexicon.ActionScheduleMeeting:
		e.startMeetingFlow(ctx, user)
	case lexicon.ActionMyTasks:
		e.showTasks(ctx, user)
	case lexicon.ActionMyMeetings:
		e.showMeetings(ctx, user)
	case lexicon.ActionMainMenu:
		e.sendTemplate(ctx, user, wa.TplMainMenu, nil)
	case lexicon.ActionConfirmVoice, lexicon.ActionRetryVoice:
		// A stale voice-confirm button with no pending transcript.
		e.sendTemplate(ctx, user, wa.TplMainMenu, nil)
	default:
		e.sendTemplate(ctx, user, wa.TplMainMenu, nil)
	}
}

func (e *Engine) handleCommand(ctx context.Context, user *model.User, cmd lexicon.Command) {
	switch cmd {
	case lexicon.CmdWelcome:
		e.sendTemplate(ctx, user, wa.TplMainMenu, nil)
	case lexicon.CmdHelp:
		e.sendText(ctx, user, msgHelp)
	case lexicon.CmdMyTasks:
		e.showTasks(ctx, user)
	case lexicon.CmdMeetings:
		e.showMeetings(ctx, user)
	case lexicon.CmdReminders:
		e.showReminders(ctx, user)
	case lexicon.CmdComplete:
		e.completeFromReminder(ctx, user)
	case lexicon.CmdNewTask, lexicon.CmdTaskToday:
		e.startTaskFlow(ctx, user, model.TaskToday, false)
	case lexicon.CmdTaskScheduled:
		e.startTaskFlow(ctx, user, model.TaskScheduled, false)
	case lexicon.CmdTaskDelegate:
		e.startTaskFlow(ctx, user, model.TaskToday, true)
	case lexicon.CmdScheduleMeeting:
		e.startMeetingFlow(ctx, user)
	default:
		e.sendTemplate(ctx, user, wa.TplMainMenu, nil)
	}
}

// autoDetect runs free text through the extractor and enters the matching
// flow directly at its confirmation step.
func (e *Engine) autoDetect(ctx context.Context, user *model.User, text string, via model.Channel) {
	det := e.extractor.DetectAndExtract(ctx, text)
	switch det.Kind {
	case extract.KindMeeting:
		data := MeetingData{Step: StepConfirm, Via: via, Slots: *det.Meeting}
		if err := e.save(ctx, user.ID, FlowMeeting, data); err != nil {
			e.log.Error().Err(err).Int64("user_id", user.ID).Msg("enter meeting flow failed")
			e.fail(ctx, user)
			return
		}
		e.sendMeetingConfirm(ctx, user, data.Slots)
	default:
		// Auto-detected tasks are scheduled ones: a missing date goes
		// through the date fallback instead of silently defaulting to today.
		data := TaskData{Step: StepConfirm, Kind: model.TaskScheduled, Via: via, Slots: *det.Task}
		if err := e.save(ctx, user.ID, FlowTask, data); err != nil {
			e.log.Error().Err(err).Int64("user_id", user.ID).Msg("enter task flow failed")
			e.fail(ctx, user)
			return
		}
		e.sendText(ctx, user, confirmTaskText(data.Slots))
	}
}

func (e *Engine) startTaskFlow(ctx context.Context, user *model.User, kind model.TaskType, delegate bool) {
	data := TaskData{Step: StepInput, Kind: kind, Via: model.ChannelText, Delegate: delegate}
	if err := e.save(ctx, user.ID, FlowTask, data); err != nil {
		e.log.Error().Err(err).Int64("user_id", user.ID).Msg("start task flow failed")
		e.fail(ctx, user)
		return
	}
	e.sendText(ctx, user, msgAskTask)
}

func (e *Engine) startMeetingFlow(ctx context.Context, user *model.User) {
	data := MeetingData{Step: StepInput, Via: model.ChannelText}
	if err := e.save(ctx, user.ID, FlowMeeting, data); err != nil {
		e.log.Error().Err(err).Int64("user_id", user.ID).Msg("start meeting flow failed")
		e.fail(ctx, user)
		return
	}
	e.sendText(ctx, user, msgAskMeeting)
}

// --- global action implementations ---

func (e *Engine) completeFromReminder(ctx context.Context, user *model.User) {
	task, err := e.reminders.CompleteLatest(ctx, user.ID)
	if err != nil {
		e.sendText(ctx, user, msgNoReminder)
		return
	}
	e.sendText(ctx, user, fmt.Sprintf("✅ כל הכבוד! \"%s\" הושלמה", task.Title))
}

func (e *Engine) snooze(ctx context.Context, user *model.User, minutes int) {
	until, err := e.reminders.SnoozeLatest(ctx, user.ID, minutes)
	if err != nil {
		e.sendText(ctx, user, msgNoReminder)
		return
	}
	e.sendText(ctx, user, fmt.Sprintf("⏰ אזכיר שוב ב-%s", until.Format("15:04")))
}

// respondDelegation records the RSVP and notifies the delegator. Returns
// false when no open delegation exists for this phone.
func (e *Engine) respondDelegation(ctx context.Context, user *model.User, accept bool) bool {
	d, task, err := e.delegations.Respond(ctx, user.PhoneNumber, accept)
	if err != nil {
		return false
	}
	title := ""
	if task != nil {
		title = task.Title
	}
	if accept {
		e.sendText(ctx, user, fmt.Sprintf("✅ קיבלת את המשימה \"%s\". בהצלחה!", title))
	} else {
		e.sendText(ctx, user, "👌 דחית את המשימה, המאציל יעודכן")
	}
	delegator, derr := e.users.Get(ctx, d.DelegatorID)
	if derr != nil {
		e.log.Warn().Err(derr).Int64("delegation_id", d.ID).Msg("delegator lookup failed")
		return true
	}
	who := user.PhoneNumber
	if d.AssigneeName != nil && *d.AssigneeName != "" {
		who = *d.AssigneeName
	}
	verdict := "קיבל"
	if !accept {
		verdict = "דחה"
	}
	if _, err := e.sender.SendText(ctx, delegator.PhoneNumber, fmt.Sprintf("📬 %s %s את המשימה \"%s\"", who, verdict, title)); err != nil {
		e.log.Warn().Err(err).Int64("delegation_id", d.ID).Msg("delegator notification failed")
	}
	return true
}

// respondMeeting records the RSVP on the newest open invite. Returns
// false when none exists.
func (e *Engine) respondMeeting(ctx context.Context, user *model.User, accept bool) bool {
	m, err := e.meetings.Respond(ctx, user.PhoneNumber, accept)
	if err != nil {
		return false
	}
	if accept {
		e.sendText(ctx, user, fmt.Sprintf("✅ אישרת הגעה: %s ב-%s", m.Title, displayDate(m.Date)))
	} else {
		e.sendText(ctx, user, fmt.Sprintf("👌 דחית את הפגישה \"%s\", המארגן יעודכן", m.Title))
	}
	organizer, oerr := e.users.Get(ctx, m.OrganizerID)
	if oerr != nil {
		e.log.Warn().Err(oerr).Int64("meeting_id", m.ID).Msg("organizer lookup failed")
		return true
	}
	verdict := "אישר הגעה"
	if !accept {
		verdict = "לא יכול להגיע"
	}
	if _, err := e.sender.SendText(ctx, organizer.PhoneNumber, fmt.Sprintf("📬 %s %s לפגישה \"%s\"", user.PhoneNumber, verdict, m.Title)); err != nil {
		e.log.Warn().Err(err).Int64("meeting_id", m.ID).Msg("organizer notification failed")
	}
	return true
}

// --- read-only views ---

func (e *Engine) showTasks(ctx context.Context, user *model.User) {
	today := e.now().Format("2006-01-02")
	due, overdue, err := e.tasks.Today(ctx, user.ID, today)
	if err != nil {
		e.log.Error().Err(err).Int64("user_id", user.ID).Msg("task view failed")
		e.sendText(ctx, user, msgApology)
		return
	}
	if len(due) == 0 && len(overdue) == 0 {
		e.sendText(ctx, user, "🎉 אין משימות פתוחות להיום!")
		return
	}
	var b strings.Builder
	if len(overdue) > 0 {
		b.WriteString("⚠️ באיחור:\n")
		for _, t := range overdue {
			fmt.Fprintf(&b, "• %s (%s)\n", t.Title, displayDate(deref(t.DueDate)))
		}
		b.WriteString("\n")
	}
	if len(due) > 0 {
		b.WriteString("📋 להיום:\n")
		for _, t := range due {
			line := "• " + t.Title
			if t.DueTime != nil {
				line += " 🕐 " + *t.DueTime
			}
			b.WriteString(line + "\n")
		}
	}
	e.sendText(ctx, user, strings.TrimRight(b.String(), "\n"))
}

func (e *Engine) showMeetings(ctx context.Context, user *model.User) {
	from := e.now().Format("2006-01-02")
	to := e.now().AddDate(0, 0, 30).Format("2006-01-02")
	meetings, err := e.meetings.Between(ctx, user.ID, from, to)
	if err != nil {
		e.log.Error().Err(err).Int64("user_id", user.ID).Msg("meeting view failed")
		e.sendText(ctx, user, msgApology)
		return
	}
	if len(meetings) == 0 {
		e.sendText(ctx, user, "📅 אין פגישות קרובות")
		return
	}
	var b strings.Builder
	b.WriteString("📅 הפגישות הקרובות:\n")
	for _, m := range meetings {
		line := fmt.Sprintf("• %s — %s", m.Title, displayDate(m.Date))
		if m.StartTime != nil {
			line += " " + *m.StartTime
		}
		b.WriteString(line + "\n")
	}
	e.sendText(ctx, user, strings.TrimRight(b.String(), "\n"))
}

func (e *Engine) showReminders(ctx context.Context, user *model.User) {
	pending := model.ReminderPending
	rems, err := e.reminders.ListByUser(ctx, user.ID, &pending)
	if err != nil {
		e.log.Error().Err(err).Int64("user_id", user.ID).Msg("reminder view failed")
		e.sendText(ctx, user, msgApology)
		return
	}
	if len(rems) == 0 {
		e.sendText(ctx, user, "🔕 אין תזכורות ממתינות")
		return
	}
	var b strings.Builder
	b.WriteString("⏰ תזכורות ממתינות:\n")
	for _, r := range rems {
		task, terr := e.tasks.Get(ctx, user.ID, r.TaskID)
		title := fmt.Sprintf("משימה %d", r.TaskID)
		if terr == nil {
			title = task.Title
		}
		fmt.Fprintf(&b, "• %s — %s\n", title, r.ScheduledTime.Local().Format("02/01 15:04"))
	}
	e.sendText(ctx, user, strings.TrimRight(b.String(), "\n"))
}

// --- outbound helpers ---

func (e *Engine) sendText(ctx context.Context, user *model.User, body string) {
	if _, err := e.sender.SendText(ctx, user.PhoneNumber, body); err != nil {
		e.log.Error().Err(err).Int64("user_id", user.ID).Msg("send text failed")
		return
	}
	e.msgLog.Outgoing(ctx, user.ID, "text", body)
}

func (e *Engine) sendTemplate(ctx context.Context, user *model.User, name string, vars map[string]string) {
	if _, err := e.sender.SendTemplate(ctx, user.PhoneNumber, name, vars); err != nil {
		e.log.Error().Err(err).Int64("user_id", user.ID).Str("template", name).Msg("send template failed")
		return
	}
	e.msgLog.Outgoing(ctx, user.ID, "template", name)
}

func (e *Engine) sendPrompt(ctx context.Context, user *model.User, p Prompt) {
	if p.Template != "" {
		e.sendTemplate(ctx, user, p.Template, p.Vars)
		return
	}
	e.sendText(ctx, user, p.Text)
}

// fail is the single error path: clear the flow, apologize, reoffer the menu.
func (e *Engine) fail(ctx context.Context, user *model.User) {
	e.clear(ctx, user.ID)
	e.sendText(ctx, user, msgApology)
	e.sendTemplate(ctx, user, wa.TplMainMenu, nil)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
