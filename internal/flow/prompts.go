package flow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskivo/taskivo/internal/extract"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/wa"
)

const (
	msgAskTask       = "📝 מה המשימה?"
	msgAskMeeting    = "🤝 מה נושא הפגישה? אפשר לציין גם תאריך ושעה"
	msgAskCustomDate = "✏️ שלח תאריך, למשל 25/12/2026 או 25/12"
	msgBadDate       = "🤔 לא הצלחתי להבין את התאריך. נסה למשל 25/12/2026"
	msgAskContact    = "👤 שלח איש קשר 📇 או מספר טלפון"
	msgAskInvite     = "👥 שלח איש קשר להזמנה, או כתוב 'סיום' כשתסיים"
	msgCancelled     = "👌 בוטל. חוזרים להתחלה"
	msgApology       = "😅 משהו השתבש, נסה שוב"
	msgVoiceRetry    = "🎤 לא הצלחתי להבין את ההקלטה, נסה שוב או הקלד"
	msgNoReminder    = "🤷 לא מצאתי תזכורת פעילה"
	msgHelp          = "💡 אפשר פשוט לכתוב לי מה לעשות, למשל:\n" +
		"• להתקשר לרופא מחר ב-15:00\n" +
		"• פגישה עם דנה ביום ראשון\n\n" +
		"או לשלוח הקלטה 🎤\n" +
		"פקודות: המשימות שלי, פגישות, תזכורות, ביטול"
)

var priorityLabels = map[model.Priority]string{
	model.PriorityLow:    "🟢 נמוכה",
	model.PriorityMedium: "🟡 רגילה",
	model.PriorityHigh:   "🟠 גבוהה",
	model.PriorityUrgent: "🔴 דחופה",
}

func priorityLabel(p model.Priority) string {
	if s, ok := priorityLabels[p]; ok {
		return s
	}
	return priorityLabels[model.PriorityMedium]
}

func confirmTaskText(slots extract.TaskSlots) string {
	var b strings.Builder
	b.WriteString("📋 זיהיתי משימה:\n\n")
	fmt.Fprintf(&b, "📌 %s\n", slots.Title)
	if slots.DueDate != nil {
		fmt.Fprintf(&b, "📅 %s\n", displayDate(*slots.DueDate))
	}
	if slots.DueTime != nil {
		fmt.Fprintf(&b, "🕐 %s\n", *slots.DueTime)
	}
	fmt.Fprintf(&b, "⚡ %s\n", priorityLabel(slots.Priority))
	b.WriteString("\nלשמור? (כן/לא)")
	return b.String()
}

func confirmMeetingText(slots extract.MeetingSlots) string {
	var b strings.Builder
	b.WriteString("🤝 זיהיתי פגישה:\n\n")
	fmt.Fprintf(&b, "📌 %s\n", slots.Title)
	if slots.Date != nil {
		fmt.Fprintf(&b, "📅 %s\n", displayDate(*slots.Date))
	}
	if slots.Time != nil {
		fmt.Fprintf(&b, "🕐 %s\n", *slots.Time)
	}
	if slots.Location != nil {
		fmt.Fprintf(&b, "📍 %s\n", *slots.Location)
	}
	if len(slots.Participants) > 0 {
		fmt.Fprintf(&b, "👥 %s\n", strings.Join(slots.Participants, ", "))
	}
	b.WriteString("\nלקבוע? (כן/לא)")
	return b.String()
}

// displayDate renders YYYY-MM-DD as DD/MM/YYYY for the user.
func displayDate(iso string) string {
	if len(iso) != 10 {
		return iso
	}
	return iso[8:10] + "/" + iso[5:7] + "/" + iso[0:4]
}

func invitePrompt(d InvitesData) string {
	if len(d.PendingNames) > 0 {
		return fmt.Sprintf("👥 זיהיתי משתתפים: %s\nשלח איש קשר עבור כל אחד, או כתוב 'סיום'",
			strings.Join(d.PendingNames, ", "))
	}
	return msgAskInvite
}

// Prompt is an outbound message: an interactive template when Template
// is set, plain text otherwise.
type Prompt struct {
	Template string
	Vars     map[string]string
	Text     string
}

func textPrompt(s string) Prompt { return Prompt{Text: s} }

func tplPrompt(name string, vars map[string]string) Prompt {
	return Prompt{Template: name, Vars: vars}
}

// stepPrompt derives the current step's prompt from flow name and data
// alone. Used to re-show the step after a discarded voice interruption;
// never stored.
func stepPrompt(name Name, raw []byte) Prompt {
	switch name {
	case FlowTask:
		var d TaskData
		if json.Unmarshal(raw, &d) != nil {
			return tplPrompt(wa.TplMainMenu, nil)
		}
		switch d.Step {
		case StepConfirm:
			return textPrompt(confirmTaskText(d.Slots))
		case StepDateFallback:
			return tplPrompt(wa.TplDateSelect, nil)
		case StepCustomDate:
			return textPrompt(msgAskCustomDate)
		case StepReminderSelect:
			return tplPrompt(wa.TplReminderSelect, nil)
		case StepDelegateAsk:
			return tplPrompt(wa.TplDelegateAsk, nil)
		default:
			return textPrompt(msgAskTask)
		}
	case FlowMeeting:
		var d MeetingData
		if json.Unmarshal(raw, &d) != nil {
			return tplPrompt(wa.TplMainMenu, nil)
		}
		switch d.Step {
		case StepConfirm:
			return tplPrompt(wa.TplMeetingConfirm, map[string]string{"1": confirmMeetingText(d.Slots)})
		case StepDateFallback:
			return tplPrompt(wa.TplDateSelect, nil)
		case StepCustomDate:
			return textPrompt(msgAskCustomDate)
		case StepTimeSelect:
			return tplPrompt(wa.TplTimeSelect, nil)
		default:
			return textPrompt(msgAskMeeting)
		}
	case FlowDelegate:
		return textPrompt(msgAskContact)
	case FlowInvites:
		var d InvitesData
		if json.Unmarshal(raw, &d) != nil {
			return textPrompt(msgAskInvite)
		}
		return textPrompt(invitePrompt(d))
	default:
		return tplPrompt(wa.TplMainMenu, nil)
	}
}
