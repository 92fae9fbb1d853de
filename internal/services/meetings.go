package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/calendar"
	"github.com/taskivo/taskivo/internal/contact"
	"github.com/taskivo/taskivo/internal/extract"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/store"
)

// Meetings persists meetings with their backing tasks and participants.
type Meetings struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewMeetings(st store.Store, log zerolog.Logger) *Meetings {
	return &Meetings{store: st, log: log.With().Str("service", "meetings").Logger(), now: time.Now}
}

// MeetingOutcome reports a scheduled meeting. A calendar link failure is
// recorded, not fatal.
type MeetingOutcome struct {
	Meeting      *model.Meeting
	Task         *model.Task
	CalendarLink string
	LinkErr      error
}

// Schedule persists a meeting from extracted slots. The companion task is
// created first so the meeting row can reference it; if the meeting
// insert then fails the task is removed so no orphan remains.
func (s *Meetings) Schedule(ctx context.Context, userID int64, slots extract.MeetingSlots, via model.Channel) (*MeetingOutcome, error) {
	if slots.Date == nil {
		return nil, errors.Wrap(model.ErrValidation, "meeting needs a date")
	}
	task, err := s.store.Tasks().Create(ctx, &model.Task{
		UserID:     userID,
		Title:      slots.Title,
		Type:       model.TaskMeeting,
		Priority:   model.PriorityMedium,
		DueDate:    slots.Date,
		DueTime:    slots.Time,
		CreatedVia: via,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create companion task")
	}
	meeting, err := s.store.Meetings().Create(ctx, &model.Meeting{
		TaskID:      task.ID,
		OrganizerID: userID,
		Title:       slots.Title,
		Date:        *slots.Date,
		StartTime:   slots.Time,
		Location:    slots.Location,
	})
	if err != nil {
		if delErr := s.store.Tasks().Delete(ctx, userID, task.ID); delErr != nil {
			s.log.Error().Err(delErr).Int64("task_id", task.ID).Msg("orphan companion task cleanup failed")
		}
		return nil, errors.Wrap(err, "create meeting")
	}
	out := &MeetingOutcome{Meeting: meeting, Task: task}
	startTime := ""
	if slots.Time != nil {
		startTime = *slots.Time
	}
	location := ""
	if slots.Location != nil {
		location = *slots.Location
	}
	out.CalendarLink, out.LinkErr = calendar.EventLink(slots.Title, *slots.Date, startTime, "", location, "")
	if out.LinkErr != nil {
		s.log.Warn().Err(out.LinkErr).Int64("meeting_id", meeting.ID).Msg("calendar link failed")
	}
	return out, nil
}

// Invite adds a contact as a participant with the invite send time
// pre-stamped. Duplicate invites surface as model.ErrConflict.
func (s *Meetings) Invite(ctx context.Context, meetingID int64, card *contact.Card) (*model.Participant, error) {
	name := card.Name
	at := s.now()
	return s.store.Meetings().AddParticipant(ctx, &model.Participant{
		MeetingID:    meetingID,
		PhoneNumber:  card.Phone,
		Name:         &name,
		NotifiedTime: &at,
	})
}

// Respond resolves the newest open invite for phone and records the RSVP.
func (s *Meetings) Respond(ctx context.Context, phone string, accept bool) (*model.Meeting, error) {
	meeting, err := s.store.Meetings().LatestInviteFor(ctx, phone)
	if err != nil {
		return nil, err
	}
	status := model.ParticipantAccepted
	if !accept {
		status = model.ParticipantDeclined
	}
	if _, err := s.store.Meetings().UpdateParticipantStatus(ctx, meeting.ID, phone, status, s.now()); err != nil {
		return nil, err
	}
	return meeting, nil
}

func (s *Meetings) Get(ctx context.Context, meetingID int64) (*model.Meeting, error) {
	return s.store.Meetings().GetByID(ctx, meetingID)
}

func (s *Meetings) ListByOrganizer(ctx context.Context, userID int64) ([]*model.Meeting, error) {
	return s.store.Meetings().ListByOrganizer(ctx, userID)
}

func (s *Meetings) Between(ctx context.Context, userID int64, fromDate, toDate string) ([]*model.Meeting, error) {
	return s.store.Meetings().Between(ctx, userID, fromDate, toDate)
}

func (s *Meetings) Participants(ctx context.Context, meetingID int64) ([]*model.Participant, error) {
	return s.store.Meetings().ListParticipants(ctx, meetingID)
}

// Cancel marks the meeting cancelled and completes nothing else; the
// backing task stays for history.
func (s *Meetings) Cancel(ctx context.Context, meetingID int64) error {
	return s.store.Meetings().SetStatus(ctx, meetingID, model.MeetingCancelled)
}
