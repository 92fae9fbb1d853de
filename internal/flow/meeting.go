package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/taskivo/taskivo/internal/contact"
	"github.com/taskivo/taskivo/internal/extract"
	"github.com/taskivo/taskivo/internal/lexicon"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/wa"
)

// timeActions maps time-select list items to HH:MM values.
var timeActions = map[lexicon.ActionID]string{
	lexicon.ActionTime08: "08:00",
	lexicon.ActionTime09: "09:00",
	lexicon.ActionTime10: "10:00",
	lexicon.ActionTime11: "11:00",
	lexicon.ActionTime12: "12:00",
	lexicon.ActionTime13: "13:00",
	lexicon.ActionTime14: "14:00",
	lexicon.ActionTime15: "15:00",
	lexicon.ActionTime16: "16:00",
	lexicon.ActionTime17: "17:00",
}

func (e *Engine) handleMeetingFlow(ctx context.Context, user *model.User, raw []byte, text string, action lexicon.ActionID, hasAction bool) error {
	var d MeetingData
	if err := json.Unmarshal(raw, &d); err != nil {
		return errors.Wrap(err, "decode meeting flow data")
	}
	switch d.Step {
	case StepInput:
		return e.meetingInput(ctx, user, d, text)
	case StepConfirm:
		return e.meetingConfirm(ctx, user, d, text, action, hasAction)
	case StepDateFallback:
		return e.meetingDateFallback(ctx, user, d, text, action, hasAction)
	case StepCustomDate:
		return e.meetingCustomDate(ctx, user, d, text)
	case StepTimeSelect:
		return e.meetingTimeSelect(ctx, user, d, text, action, hasAction)
	default:
		return errors.Errorf("meeting flow: unknown step %q", d.Step)
	}
}

func (e *Engine) meetingInput(ctx context.Context, user *model.User, d MeetingData, text string) error {
	if text == "" {
		e.sendText(ctx, user, msgAskMeeting)
		return nil
	}
	d.Slots = e.extractor.ExtractMeeting(ctx, text)
	d.Step = StepConfirm
	if err := e.save(ctx, user.ID, FlowMeeting, d); err != nil {
		return err
	}
	e.sendMeetingConfirm(ctx, user, d.Slots)
	return nil
}

// sendMeetingConfirm shows the confirm card with the recognized details
// in its body.
func (e *Engine) sendMeetingConfirm(ctx context.Context, user *model.User, slots extract.MeetingSlots) {
	e.sendTemplate(ctx, user, wa.TplMeetingConfirm, map[string]string{"1": confirmMeetingText(slots)})
}

func (e *Engine) meetingConfirm(ctx context.Context, user *model.User, d MeetingData, text string, action lexicon.ActionID, hasAction bool) error {
	if !hasAction {
		if n, err := strconv.Atoi(text); err == nil {
			if a, found := wa.Catalog[wa.TplMeetingConfirm].ActionAt(n); found {
				action, hasAction = a, true
			}
		}
	}
	yes, ok := lexicon.Confirmation(text)
	if hasAction {
		switch action {
		case lexicon.ActionConfirmMeeting:
			yes, ok = true, true
		case lexicon.ActionCancelFlow:
			yes, ok = false, true
		}
	}
	if !ok {
		e.sendMeetingConfirm(ctx, user, d.Slots)
		return nil
	}
	if !yes {
		d.Step = StepInput
		if err := e.save(ctx, user.ID, FlowMeeting, d); err != nil {
			return err
		}
		e.sendText(ctx, user, msgAskMeeting)
		return nil
	}
	return e.meetingAdvance(ctx, user, d)
}

// meetingAdvance moves a confirmed meeting to whatever is still missing:
// date, then time, then the save.
func (e *Engine) meetingAdvance(ctx context.Context, user *model.User, d MeetingData) error {
	if d.Slots.Date == nil {
		d.Step = StepDateFallback
		if err := e.save(ctx, user.ID, FlowMeeting, d); err != nil {
			return err
		}
		e.sendTemplate(ctx, user, wa.TplDateSelect, nil)
		return nil
	}
	if d.Slots.Time == nil {
		d.Step = StepTimeSelect
		if err := e.save(ctx, user.ID, FlowMeeting, d); err != nil {
			return err
		}
		e.sendTemplate(ctx, user, wa.TplTimeSelect, nil)
		return nil
	}
	return e.saveMeeting(ctx, user, d)
}

func (e *Engine) meetingDateFallback(ctx context.Context, user *model.User, d MeetingData, text string, action lexicon.ActionID, hasAction bool) error {
	date, custom, ok := e.resolveDatePick(text, action, hasAction)
	if !ok {
		e.sendTemplate(ctx, user, wa.TplDateSelect, nil)
		return nil
	}
	if custom {
		d.Step = StepCustomDate
		if err := e.save(ctx, user.ID, FlowMeeting, d); err != nil {
			return err
		}
		e.sendText(ctx, user, msgAskCustomDate)
		return nil
	}
	d.Slots.Date = &date
	return e.meetingAdvance(ctx, user, d)
}

func (e *Engine) meetingCustomDate(ctx context.Context, user *model.User, d MeetingData, text string) error {
	date, ok := parseDate(text, e.now())
	if !ok {
		e.sendText(ctx, user, msgBadDate)
		return nil
	}
	d.Slots.Date = &date
	return e.meetingAdvance(ctx, user, d)
}

func (e *Engine) meetingTimeSelect(ctx context.Context, user *model.User, d MeetingData, text string, action lexicon.ActionID, hasAction bool) error {
	if !hasAction {
		if n, err := strconv.Atoi(text); err == nil {
			if a, found := wa.Catalog[wa.TplTimeSelect].ActionAt(n); found {
				action, hasAction = a, true
			}
		}
	}
	var when string
	if hasAction {
		t, known := timeActions[action]
		if !known {
			e.sendTemplate(ctx, user, wa.TplTimeSelect, nil)
			return nil
		}
		when = t
	} else {
		t, ok := parseClock(text)
		if !ok {
			e.sendTemplate(ctx, user, wa.TplTimeSelect, nil)
			return nil
		}
		when = t
	}
	d.Slots.Time = &when
	return e.saveMeeting(ctx, user, d)
}

// saveMeeting persists the meeting plus companion task and hands off to
// the invite-collection loop.
func (e *Engine) saveMeeting(ctx context.Context, user *model.User, d MeetingData) error {
	out, err := e.meetings.Schedule(ctx, user.ID, d.Slots, d.Via)
	if err != nil {
		return errors.Wrap(err, "save meeting")
	}
	msg := fmt.Sprintf("✅ הפגישה נקבעה: %s\n📅 %s", out.Meeting.Title, displayDate(out.Meeting.Date))
	if out.Meeting.StartTime != nil {
		msg += " 🕐 " + *out.Meeting.StartTime
	}
	if out.CalendarLink != "" {
		msg += "\n\n📲 הוסף ליומן:\n" + out.CalendarLink
	}
	e.sendText(ctx, user, msg)

	inv := InvitesData{
		MeetingID:    out.Meeting.ID,
		Title:        out.Meeting.Title,
		Date:         out.Meeting.Date,
		CalendarLink: out.CalendarLink,
		PendingNames: d.Slots.Participants,
	}
	if out.Meeting.StartTime != nil {
		inv.StartTime = *out.Meeting.StartTime
	}
	if err := e.save(ctx, user.ID, FlowInvites, inv); err != nil {
		return err
	}
	e.sendText(ctx, user, invitePrompt(inv))
	return nil
}

func (e *Engine) handleInvitesFlow(ctx context.Context, user *model.User, raw []byte, text string, in Inbound) error {
	var d InvitesData
	if err := json.Unmarshal(raw, &d); err != nil {
		return errors.Wrap(err, "decode invites flow data")
	}
	if lexicon.IsDone(text) {
		e.clear(ctx, user.ID)
		e.sendTemplate(ctx, user, wa.TplMeetingSuccess,
			map[string]string{"1": fmt.Sprintf("🎉 הפגישה מוכנה! נשלחו %d הזמנות", d.Invited)})
		return nil
	}
	card, ok := e.inboundContact(text, in)
	if !ok {
		// Non-contact input exits the loop and is reprocessed fresh.
		e.clear(ctx, user.ID)
		e.sendText(ctx, user, fmt.Sprintf("👥 סיימנו עם ההזמנות (%d נשלחו)", d.Invited))
		e.routeIdle(ctx, user, text, "", false)
		return nil
	}
	if _, err := e.meetings.Invite(ctx, d.MeetingID, card); err != nil {
		if errors.Is(err, model.ErrConflict) {
			e.sendText(ctx, user, fmt.Sprintf("ℹ️ %s כבר הוזמן. עוד מישהו? או 'סיום'", card.Name))
			return nil
		}
		return errors.Wrap(err, "add participant")
	}
	body := fmt.Sprintf("🤝 %s מזמין אותך לפגישה:\n📌 %s\n📅 %s", user.PhoneNumber, d.Title, displayDate(d.Date))
	if d.StartTime != "" {
		body += " 🕐 " + d.StartTime
	}
	if d.CalendarLink != "" {
		body += "\n📲 " + d.CalendarLink
	}
	if _, err := e.sender.SendTemplate(ctx, card.Phone, wa.TplMeetingInvite, map[string]string{"1": body}); err != nil {
		e.log.Warn().Err(err).Int64("meeting_id", d.MeetingID).Msg("meeting invite send failed")
		e.sendText(ctx, user, fmt.Sprintf("⚠️ ההזמנה ל-%s לא נשלחה, שלח לו את הקישור ידנית", card.Name))
	} else {
		d.Invited++
		e.sendText(ctx, user, fmt.Sprintf("✅ הזמנה נשלחה ל-%s. עוד מישהו? או 'סיום'", card.Name))
	}
	return e.save(ctx, user.ID, FlowInvites, d)
}

// inboundContact extracts a contact from a shared vCard or a typed phone
// number, normalized with the default country code.
func (e *Engine) inboundContact(text string, in Inbound) (*contact.Card, bool) {
	if in.VCard != "" {
		return contact.ParseVCard(in.VCard, e.countryCode)
	}
	if contact.IsVCard(text) {
		return contact.ParseVCard(text, e.countryCode)
	}
	if phone, ok := contact.NormalizePhone(text, e.countryCode); ok {
		return &contact.Card{Name: phone, Phone: phone}, true
	}
	return nil, false
}
