package wa

import (
	"fmt"
	"strings"

	"github.com/taskivo/taskivo/internal/lexicon"
)

// Template names. Content templates are created on demand through the
// Twilio Content API and addressed by these friendly names.
const (
	TplMainMenu         = "wt_main_menu"
	TplVoiceConfirm     = "wt_voice_confirm"
	TplDateSelect       = "wt_date_select"
	TplTimeSelect       = "wt_time_select"
	TplReminderSelect   = "wt_reminder_select"
	TplDelegateAsk      = "wt_delegate_ask"
	TplTaskSuccess      = "wt_task_success"
	TplMeetingConfirm   = "wt_meeting_confirm"
	TplMeetingSuccess   = "wt_meeting_success"
	TplDelegateSuccess  = "wt_delegate_success"
	TplReminder         = "wt_reminder"
	TplDelegationInvite = "wt_delegation_invite"
	TplMeetingInvite    = "wt_meeting_invite"
)

// Action is one quick-reply button.
type Action struct {
	ID    lexicon.ActionID
	Label string
}

// ListItem is one list-picker row.
type ListItem struct {
	ID          lexicon.ActionID
	Label       string
	Description string
}

// Template describes one outbound interactive message. Exactly one of
// Actions or Items is set. Body may contain a {{1}} variable.
type Template struct {
	Name    string
	Body    string
	Button  string
	Actions []Action
	Items   []ListItem
	// FallbackNumbers suppresses the numbered hint line for templates
	// whose fallback is just the body (success cards).
	PlainFallback bool
}

// Catalog is the full outbound template set, one entry per wt_* name.
var Catalog = map[string]Template{
	TplMainMenu: {
		Name:   TplMainMenu,
		Body:   "שלום! 👋 מה תרצה לעשות?",
		Button: "📋 תפריט",
		Items: []ListItem{
			{lexicon.ActionTaskToday, "📝 משימה להיום", "יצירת משימה חדשה להיום"},
			{lexicon.ActionTaskScheduled, "📅 משימה מתוזמנת", "משימה לתאריך מסוים"},
			{lexicon.ActionTaskDelegate, "👥 האצלת משימה", "שליחת משימה למישהו אחר"},
			{lexicon.ActionScheduleMeeting, "🤝 קביעת פגישה", "תיאום פגישה חדשה"},
			{lexicon.ActionMyTasks, "📋 המשימות שלי", "צפייה וניהול משימות"},
		},
	},
	TplVoiceConfirm: {
		Name: TplVoiceConfirm,
		Body: "🎤 זיהיתי:\n\n\"{{1}}\"\n\nזה נכון?",
		Actions: []Action{
			{lexicon.ActionConfirmVoice, "✅ אשר"},
			{lexicon.ActionRetryVoice, "🔄 שוב"},
		},
	},
	TplDateSelect: {
		Name:   TplDateSelect,
		Body:   "📅 לאיזה תאריך?",
		Button: "בחר תאריך",
		Items: []ListItem{
			{lexicon.ActionDateToday, "📆 היום", ""},
			{lexicon.ActionDateTomorrow, "📆 מחר", ""},
			{lexicon.ActionDateThisWeek, "📆 סוף השבוע", ""},
			{lexicon.ActionDateCustom, "✏️ תאריך אחר", ""},
		},
	},
	TplTimeSelect: {
		Name:   TplTimeSelect,
		Body:   "🕐 באיזו שעה?",
		Button: "בחר שעה",
		Items: []ListItem{
			{lexicon.ActionTime08, "08:00", "בוקר"},
			{lexicon.ActionTime09, "09:00", "בוקר"},
			{lexicon.ActionTime10, "10:00", "בוקר"},
			{lexicon.ActionTime11, "11:00", "לפני הצהריים"},
			{lexicon.ActionTime12, "12:00", "צהריים"},
			{lexicon.ActionTime13, "13:00", "אחה\"צ"},
			{lexicon.ActionTime14, "14:00", "אחה\"צ"},
			{lexicon.ActionTime15, "15:00", "אחה\"צ"},
			{lexicon.ActionTime16, "16:00", "אחה\"צ"},
			{lexicon.ActionTime17, "17:00", "ערב"},
		},
	},
	TplReminderSelect: {
		Name:   TplReminderSelect,
		Body:   "⏰ מתי להזכיר לך?",
		Button: "בחר תזכורת",
		Items: []ListItem{
			{lexicon.ActionRemind60, "⏰ שעה לפני", ""},
			{lexicon.ActionRemind120, "⏰ שעתיים לפני", ""},
			{lexicon.ActionRemind1440, "⏰ יום לפני", ""},
			{lexicon.ActionRemindNone, "🔕 בלי תזכורת", ""},
		},
	},
	TplDelegateAsk: {
		Name: TplDelegateAsk,
		Body: "👥 להעביר את המשימה למישהו?",
		Actions: []Action{
			{lexicon.ActionDelegateYes, "👥 כן, להעביר"},
			{lexicon.ActionDelegateNo, "🙅 לא, תודה"},
		},
	},
	TplTaskSuccess: {
		Name: TplTaskSuccess,
		Body: "{{1}}",
		Actions: []Action{
			{lexicon.ActionMyTasks, "📋 המשימות שלי"},
			{lexicon.ActionNewTask, "➕ משימה חדשה"},
			{lexicon.ActionMainMenu, "🏠 תפריט"},
		},
		PlainFallback: true,
	},
	TplMeetingConfirm: {
		Name: TplMeetingConfirm,
		Body: "{{1}}",
		Actions: []Action{
			{lexicon.ActionConfirmMeeting, "✅ אשר ושלח"},
			{lexicon.ActionCancelFlow, "❌ בטל"},
		},
	},
	TplMeetingSuccess: {
		Name: TplMeetingSuccess,
		Body: "{{1}}",
		Actions: []Action{
			{lexicon.ActionMyMeetings, "📅 הפגישות שלי"},
			{lexicon.ActionScheduleMeeting, "➕ פגישה חדשה"},
			{lexicon.ActionMainMenu, "🏠 תפריט"},
		},
		PlainFallback: true,
	},
	TplDelegateSuccess: {
		Name: TplDelegateSuccess,
		Body: "{{1}}",
		Actions: []Action{
			{lexicon.ActionMyTasks, "📋 המשימות שלי"},
			{lexicon.ActionNewTask, "➕ משימה חדשה"},
			{lexicon.ActionMainMenu, "🏠 תפריט"},
		},
		PlainFallback: true,
	},
	TplReminder: {
		Name: TplReminder,
		Body: "{{1}}",
		Actions: []Action{
			{lexicon.ActionTaskDone, "✅ בוצע"},
			{lexicon.ActionSnooze30, "⏰ 30 דק'"},
			{lexicon.ActionSnooze60, "⏰ שעה"},
		},
	},
	TplDelegationInvite: {
		Name: TplDelegationInvite,
		Body: "{{1}}",
		Actions: []Action{
			{lexicon.ActionAcceptDelegation, "✅ קיבלתי"},
			{lexicon.ActionDeclineDelegation, "❌ לא יכול"},
		},
	},
	TplMeetingInvite: {
		Name: TplMeetingInvite,
		Body: "{{1}}",
		Actions: []Action{
			{lexicon.ActionAcceptMeeting, "✅ מאשר"},
			{lexicon.ActionDeclineMeeting, "❌ לא יכול"},
		},
	},
}

var digits = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

// Fallback renders the numbered plain-text degradation of a template.
// Labels are listed in order so the digit a user types maps back to the
// same position in the template's action/item list.
func (t Template) Fallback(vars map[string]string) string {
	body := substitute(t.Body, vars)
	if t.PlainFallback {
		return body
	}
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n")
	n := 0
	for _, a := range t.Actions {
		b.WriteString(fmt.Sprintf("\n%s %s", digits[n], a.Label))
		n++
	}
	for _, it := range t.Items {
		b.WriteString(fmt.Sprintf("\n%s %s", digits[n], it.Label))
		n++
	}
	b.WriteString("\n\n👆 שלח מספר לבחירה")
	return b.String()
}

// ActionAt returns the action id at 1-based position n, used to map a
// typed digit back to the structured selection it replaces.
func (t Template) ActionAt(n int) (lexicon.ActionID, bool) {
	idx := n - 1
	if idx < 0 {
		return "", false
	}
	if idx < len(t.Actions) {
		return t.Actions[idx].ID, true
	}
	idx -= len(t.Actions)
	if idx < len(t.Items) {
		return t.Items[idx].ID, true
	}
	return "", false
}

func substitute(body string, vars map[string]string) string {
	for k, v := range vars {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body
}

// ValidateCatalog checks that every button label in the catalog resolves
// through the lexicon's text-fallback table to the same action id, so a
// renamed action cannot silently break the plain-text path. The shared
// decline label is allowed to resolve to the generic decline action, and
// clock labels are exempt because the flow parses them as times.
func ValidateCatalog() error {
	labels := lexicon.ButtonLabels()
	for name, tpl := range Catalog {
		if name == TplTimeSelect {
			continue
		}
		check := func(id lexicon.ActionID, label string) error {
			got, ok := labels[label]
			if !ok {
				return fmt.Errorf("template %s: label %q missing from button text table", name, label)
			}
			if got != id && got != lexicon.ActionDecline {
				return fmt.Errorf("template %s: label %q maps to %q, template says %q", name, label, got, id)
			}
			return nil
		}
		for _, a := range tpl.Actions {
			if err := check(a.ID, a.Label); err != nil {
				return err
			}
		}
		for _, it := range tpl.Items {
			if err := check(it.ID, it.Label); err != nil {
				return err
			}
		}
	}
	return nil
}
