// Package lexicon maps Hebrew and English chat phrases, menu selections,
// and interactive button texts to symbolic command and action identifiers.
// Pure lookup tables, no state.
package lexicon

import "strings"

// Command is a symbolic command identifier resolved from free text.
type Command string

const (
	CmdNewTask         Command = "new_task"
	CmdMyTasks         Command = "my_tasks"
	CmdHelp            Command = "help"
	CmdWelcome         Command = "welcome"
	CmdComplete        Command = "complete"
	CmdReminders       Command = "reminders"
	CmdMeetings        Command = "meetings"
	CmdTaskToday       Command = "task_today"
	CmdTaskScheduled   Command = "task_scheduled"
	CmdTaskDelegate    Command = "task_delegate"
	CmdScheduleMeeting Command = "schedule_meeting"
)

// hebrewCommands is matched first, exact after whitespace trim.
var hebrewCommands = map[string]Command{
	"משימה חדשה":    CmdNewTask,
	"המשימות שלי":   CmdMyTasks,
	"עזרה":          CmdHelp,
	"היי":           CmdWelcome,
	"שלום":          CmdWelcome,
	"תפריט":         CmdWelcome,
	"בוצע":          CmdComplete,
	"תזכורות":       CmdReminders,
	"פגישות":        CmdMeetings,
}

// englishCommands is matched case-insensitively.
var englishCommands = map[string]Command{
	"new task": CmdNewTask,
	"my tasks": CmdMyTasks,
	"help":     CmdHelp,
	"hi":       CmdWelcome,
	"hello":    CmdWelcome,
	"done":     CmdComplete,
}

// menuSelections maps the numbered plain-text fallback of the main menu.
// Interpreted only when no structured selection id arrived with the message.
var menuSelections = map[string]Command{
	"1": CmdTaskToday,
	"2": CmdTaskScheduled,
	"3": CmdTaskDelegate,
	"4": CmdScheduleMeeting,
	"5": CmdMyTasks,
}

// cancelKeywords abort any active flow regardless of step.
var cancelKeywords = map[string]struct{}{
	"ביטול":  {},
	"בטל":    {},
	"cancel": {},
	"חזור":   {},
}

// confirmations maps yes/no-equivalent tokens in either locale.
var confirmations = map[string]bool{
	"כן":      true,
	"לא":      false,
	"yes":     true,
	"no":      false,
	"קיבלתי":  true,
	"לא יכול": false,
	"מאשר":    true,
}

// doneKeywords exit the meeting invite-collection loop.
var doneKeywords = map[string]struct{}{
	"סיום":    {},
	"סיימתי":  {},
	"done":    {},
	"finish":  {},
}

// Resolve parses user input and returns the symbolic command.
// Matching order: Hebrew exact, English case-insensitive, menu selections.
func Resolve(text string) (Command, bool) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return "", false
	}
	if cmd, ok := hebrewCommands[cleaned]; ok {
		return cmd, true
	}
	if cmd, ok := englishCommands[strings.ToLower(cleaned)]; ok {
		return cmd, true
	}
	if cmd, ok := menuSelections[cleaned]; ok {
		return cmd, true
	}
	return "", false
}

// IsCancel reports whether the text is a cancel/abort keyword.
// Cancellation takes priority over all other interpretation.
func IsCancel(text string) bool {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return false
	}
	if _, ok := cancelKeywords[cleaned]; ok {
		return true
	}
	_, ok := cancelKeywords[strings.ToLower(cleaned)]
	return ok
}

// Confirmation parses a yes/no response. ok=false means unparseable and
// the caller should re-prompt.
func Confirmation(text string) (value, ok bool) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return false, false
	}
	if v, found := confirmations[cleaned]; found {
		return v, true
	}
	if v, found := confirmations[strings.ToLower(cleaned)]; found {
		return v, true
	}
	return false, false
}

// IsDone reports whether the text ends the invite-collection loop.
func IsDone(text string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	_, ok := doneKeywords[cleaned]
	return ok
}
