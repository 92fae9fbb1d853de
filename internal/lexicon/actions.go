package lexicon

// ActionID identifies an interactive button or list selection. Webhook
// payloads carry these directly; when a client echoes the button label as
// plain text instead, ButtonText recovers the id from the label.
type ActionID string

const (
	// Main menu list items
	ActionTaskToday       ActionID = "task_today"
	ActionTaskScheduled   ActionID = "task_scheduled"
	ActionTaskDelegate    ActionID = "task_delegate"
	ActionScheduleMeeting ActionID = "schedule_meeting"
	ActionMyTasks         ActionID = "my_tasks"

	// Voice confirmation
	ActionConfirmVoice ActionID = "confirm_voice"
	ActionRetryVoice   ActionID = "retry_voice"

	// Date quick-pick
	ActionDateToday    ActionID = "date_today"
	ActionDateTomorrow ActionID = "date_tomorrow"
	ActionDateThisWeek ActionID = "date_this_week"
	ActionDateCustom   ActionID = "date_custom"

	// Time quick-pick (wt_time_select list items)
	ActionTime08 ActionID = "time_08"
	ActionTime09 ActionID = "time_09"
	ActionTime10 ActionID = "time_10"
	ActionTime11 ActionID = "time_11"
	ActionTime12 ActionID = "time_12"
	ActionTime13 ActionID = "time_13"
	ActionTime14 ActionID = "time_14"
	ActionTime15 ActionID = "time_15"
	ActionTime16 ActionID = "time_16"
	ActionTime17 ActionID = "time_17"

	// Reminder offset selection
	ActionRemind60   ActionID = "remind_60"
	ActionRemind120  ActionID = "remind_120"
	ActionRemind1440 ActionID = "remind_1440"
	ActionRemindNone ActionID = "remind_none"

	// Delegation ask
	ActionDelegateYes ActionID = "delegate_yes"
	ActionDelegateNo  ActionID = "delegate_no"

	// Success-card navigation
	ActionNewTask    ActionID = "new_task"
	ActionMainMenu   ActionID = "main_menu"
	ActionMyMeetings ActionID = "my_meetings"

	// Meeting confirmation
	ActionConfirmMeeting ActionID = "confirm_meeting"
	ActionCancelFlow     ActionID = "cancel_flow"

	// Reminder card
	ActionTaskDone ActionID = "task_done"
	ActionSnooze30 ActionID = "snooze_30"
	ActionSnooze60 ActionID = "snooze_60"

	// Invite responses. Both invite cards share the same decline label,
	// so the text fallback can only resolve a generic decline; the exact
	// id arrives in the structured payload.
	ActionAcceptDelegation  ActionID = "accept_delegation"
	ActionDeclineDelegation ActionID = "decline_delegation"
	ActionAcceptMeeting     ActionID = "accept_meeting"
	ActionDeclineMeeting    ActionID = "decline_meeting"
	ActionDecline           ActionID = "decline"
)

// buttonTextMap maps interactive button/list labels back to action ids,
// used when the channel delivers the label as plain text with no payload.
// Validated against the outbound template catalog by a build-time test.
var buttonTextMap = map[string]ActionID{
	// Main menu list items
	"📝 משימה להיום":   ActionTaskToday,
	"📅 משימה מתוזמנת": ActionTaskScheduled,
	"👥 האצלת משימה":   ActionTaskDelegate,
	"🤝 קביעת פגישה":   ActionScheduleMeeting,
	"📋 המשימות שלי":   ActionMyTasks,
	// Voice confirm
	"✅ אשר": ActionConfirmVoice,
	"🔄 שוב": ActionRetryVoice,
	// Date select
	"📆 היום":       ActionDateToday,
	"📆 מחר":        ActionDateTomorrow,
	"📆 סוף השבוע":  ActionDateThisWeek,
	"✏️ תאריך אחר": ActionDateCustom,
	// Reminder offset select
	"⏰ שעה לפני":    ActionRemind60,
	"⏰ שעתיים לפני": ActionRemind120,
	"⏰ יום לפני":    ActionRemind1440,
	"🔕 בלי תזכורת":  ActionRemindNone,
	// Delegate ask
	"👥 כן, להעביר": ActionDelegateYes,
	"🙅 לא, תודה":   ActionDelegateNo,
	// Success buttons
	"➕ משימה חדשה":  ActionNewTask,
	"🏠 תפריט":       ActionMainMenu,
	"➕ פגישה חדשה":  ActionScheduleMeeting,
	"📅 הפגישות שלי": ActionMyMeetings,
	// Meeting confirm
	"✅ אשר ושלח": ActionConfirmMeeting,
	"❌ בטל":      ActionCancelFlow,
	// Reminder buttons
	"✅ בוצע":   ActionTaskDone,
	"⏰ 30 דק'": ActionSnooze30,
	"⏰ שעה":    ActionSnooze60,
	// Invite responses
	"✅ קיבלתי": ActionAcceptDelegation,
	"✅ מאשר":   ActionAcceptMeeting,
	"❌ לא יכול": ActionDecline,
}

// ButtonText resolves a button label typed back as text to its action id.
func ButtonText(text string) (ActionID, bool) {
	a, ok := buttonTextMap[text]
	return a, ok
}

// ButtonLabels returns a copy of the label table for catalog validation.
func ButtonLabels() map[string]ActionID {
	out := make(map[string]ActionID, len(buttonTextMap))
	for k, v := range buttonTextMap {
		out[k] = v
	}
	return out
}

// MenuSelectionFor maps the numbered text fallback of an interactive prompt
// to the action at that position. The per-template digit tables live with
// the template catalog; this covers the main menu only.
func MenuSelectionFor(digit string) (ActionID, bool) {
	switch digit {
	case "1":
		return ActionTaskToday, true
	case "2":
		return ActionTaskScheduled, true
	case "3":
		return ActionTaskDelegate, true
	case "4":
		return ActionScheduleMeeting, true
	case "5":
		return ActionMyTasks, true
	}
	return "", false
}
