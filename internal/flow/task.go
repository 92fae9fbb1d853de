package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/taskivo/taskivo/internal/lexicon"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/services"
	"github.com/taskivo/taskivo/internal/wa"
)

// reminderOffsets maps reminder-select actions to minutes before due.
var reminderOffsets = map[lexicon.ActionID]int{
	lexicon.ActionRemind60:   60,
	lexicon.ActionRemind120:  120,
	lexicon.ActionRemind1440: 1440,
	lexicon.ActionRemindNone: 0,
}

func (e *Engine) handleTaskFlow(ctx context.Context, user *model.User, raw []byte, text string, action lexicon.ActionID, hasAction bool) error {
	var d TaskData
	if err := json.Unmarshal(raw, &d); err != nil {
		return errors.Wrap(err, "decode task flow data")
	}
	switch d.Step {
	case StepInput:
		return e.taskInput(ctx, user, d, text)
	case StepConfirm:
		return e.taskConfirm(ctx, user, d, text)
	case StepDateFallback:
		return e.taskDateFallback(ctx, user, d, text, action, hasAction)
	case StepCustomDate:
		return e.taskCustomDate(ctx, user, d, text)
	case StepReminderSelect:
		return e.taskReminderSelect(ctx, user, d, text, action, hasAction)
	case StepDelegateAsk:
		return e.taskDelegateAsk(ctx, user, d, text, action, hasAction)
	default:
		return errors.Errorf("task flow: unknown step %q", d.Step)
	}
}

func (e *Engine) taskInput(ctx context.Context, user *model.User, d TaskData, text string) error {
	if text == "" {
		e.sendText(ctx, user, msgAskTask)
		return nil
	}
	d.Slots = e.extractor.ExtractTask(ctx, text)
	d.Step = StepConfirm
	if err := e.save(ctx, user.ID, FlowTask, d); err != nil {
		return err
	}
	e.sendText(ctx, user, confirmTaskText(d.Slots))
	return nil
}

func (e *Engine) taskConfirm(ctx context.Context, user *model.User, d TaskData, text string) error {
	yes, ok := lexicon.Confirmation(text)
	if !ok {
		// Unparseable: re-send the confirmation unchanged.
		e.sendText(ctx, user, confirmTaskText(d.Slots))
		return nil
	}
	if !yes {
		d.Step = StepInput
		if err := e.save(ctx, user.ID, FlowTask, d); err != nil {
			return err
		}
		e.sendText(ctx, user, msgAskTask)
		return nil
	}
	if d.Slots.DueDate == nil && d.Kind == model.TaskToday {
		today := e.now().Format("2006-01-02")
		d.Slots.DueDate = &today
	}
	if d.Slots.DueDate == nil {
		d.Step = StepDateFallback
		if err := e.save(ctx, user.ID, FlowTask, d); err != nil {
			return err
		}
		e.sendTemplate(ctx, user, wa.TplDateSelect, nil)
		return nil
	}
	return e.taskToReminderSelect(ctx, user, d)
}

func (e *Engine) taskToReminderSelect(ctx context.Context, user *model.User, d TaskData) error {
	d.Step = StepReminderSelect
	if err := e.save(ctx, user.ID, FlowTask, d); err != nil {
		return err
	}
	e.sendTemplate(ctx, user, wa.TplReminderSelect, nil)
	return nil
}

// resolveDatePick turns a date-select response (action id, digit, quick
// keyword, or typed date) into a date or a switch to custom-date entry.
func (e *Engine) resolveDatePick(text string, action lexicon.ActionID, hasAction bool) (date string, custom, ok bool) {
	if !hasAction {
		if n, err := strconv.Atoi(text); err == nil {
			if a, found := wa.Catalog[wa.TplDateSelect].ActionAt(n); found {
				action, hasAction = a, true
			}
		}
	}
	if hasAction {
		switch action {
		case lexicon.ActionDateToday:
			return e.now().Format("2006-01-02"), false, true
		case lexicon.ActionDateTomorrow:
			return e.now().AddDate(0, 0, 1).Format("2006-01-02"), false, true
		case lexicon.ActionDateThisWeek:
			return endOfWeek(e.now()), false, true
		case lexicon.ActionDateCustom:
			return "", true, true
		default:
			return "", false, false
		}
	}
	if date, parsed := parseDate(text, e.now()); parsed {
		return date, false, true
	}
	return "", false, false
}

func (e *Engine) taskDateFallback(ctx context.Context, user *model.User, d TaskData, text string, action lexicon.ActionID, hasAction bool) error {
	date, custom, ok := e.resolveDatePick(text, action, hasAction)
	if !ok {
		e.sendTemplate(ctx, user, wa.TplDateSelect, nil)
		return nil
	}
	if custom {
		d.Step = StepCustomDate
		if err := e.save(ctx, user.ID, FlowTask, d); err != nil {
			return err
		}
		e.sendText(ctx, user, msgAskCustomDate)
		return nil
	}
	d.Slots.DueDate = &date
	return e.taskToReminderSelect(ctx, user, d)
}

func (e *Engine) taskCustomDate(ctx context.Context, user *model.User, d TaskData, text string) error {
	date, ok := parseDate(text, e.now())
	if !ok {
		e.sendText(ctx, user, msgBadDate)
		return nil
	}
	d.Slots.DueDate = &date
	return e.taskToReminderSelect(ctx, user, d)
}

func (e *Engine) taskReminderSelect(ctx context.Context, user *model.User, d TaskData, text string, action lexicon.ActionID, hasAction bool) error {
	if !hasAction {
		if n, err := strconv.Atoi(text); err == nil {
			if a, found := wa.Catalog[wa.TplReminderSelect].ActionAt(n); found {
				action, hasAction = a, true
			}
		}
	}
	offset, known := reminderOffsets[action]
	if !hasAction || !known {
		e.sendTemplate(ctx, user, wa.TplReminderSelect, nil)
		return nil
	}
	out, err := e.tasks.SaveWithReminder(ctx, user.ID, d.Slots, d.Kind, d.Via, offset)
	if err != nil {
		return errors.Wrap(err, "save task")
	}
	e.sendText(ctx, user, taskSavedText(out))

	if d.Delegate {
		// Entered via the delegate menu item: skip the ask, go straight
		// to contact collection.
		dd := DelegateData{TaskID: out.Task.ID, Title: out.Task.Title}
		if err := e.save(ctx, user.ID, FlowDelegate, dd); err != nil {
			return err
		}
		e.sendText(ctx, user, msgAskContact)
		return nil
	}
	d.Step = StepDelegateAsk
	d.SavedTaskID = out.Task.ID
	if err := e.save(ctx, user.ID, FlowTask, d); err != nil {
		return err
	}
	e.sendTemplate(ctx, user, wa.TplDelegateAsk, nil)
	return nil
}

func (e *Engine) taskDelegateAsk(ctx context.Context, user *model.User, d TaskData, text string, action lexicon.ActionID, hasAction bool) error {
	if !hasAction {
		if n, err := strconv.Atoi(text); err == nil {
			if a, found := wa.Catalog[wa.TplDelegateAsk].ActionAt(n); found {
				action, hasAction = a, true
			}
		}
	}
	var wantDelegate bool
	switch {
	case hasAction && action == lexicon.ActionDelegateYes:
		wantDelegate = true
	case hasAction && action == lexicon.ActionDelegateNo:
		wantDelegate = false
	default:
		yes, ok := lexicon.Confirmation(text)
		if !ok {
			e.sendTemplate(ctx, user, wa.TplDelegateAsk, nil)
			return nil
		}
		wantDelegate = yes
	}
	if wantDelegate {
		dd := DelegateData{TaskID: d.SavedTaskID, Title: d.Slots.Title}
		if err := e.save(ctx, user.ID, FlowDelegate, dd); err != nil {
			return err
		}
		e.sendText(ctx, user, msgAskContact)
		return nil
	}
	e.clear(ctx, user.ID)
	e.sendTemplate(ctx, user, wa.TplTaskSuccess, map[string]string{"1": "🎉 מוכן! המשימה ביומן"})
	return nil
}

func taskSavedText(out *services.SaveOutcome) string {
	msg := fmt.Sprintf("✅ נשמר: %s", out.Task.Title)
	if out.Task.DueDate != nil {
		msg += "\n📅 " + displayDate(*out.Task.DueDate)
	}
	if out.Task.DueTime != nil {
		msg += " 🕐 " + *out.Task.DueTime
	}
	switch {
	case out.Reminder != nil:
		msg += "\n⏰ תזכורת: " + out.Reminder.ScheduledTime.Local().Format("02/01 15:04")
	case out.ReminderErr != nil:
		msg += "\n⚠️ התזכורת לא נקבעה, המשימה נשמרה"
	}
	return msg
}
