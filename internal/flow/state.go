// Package flow is the conversation engine: it routes every inbound
// WhatsApp message through cancel/voice/global-action handling, an
// active multi-step flow, or command and free-text auto-detection, and
// persists per-user flow state between turns.
package flow

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/taskivo/taskivo/internal/extract"
	"github.com/taskivo/taskivo/internal/model"
)

// Name identifies an active flow.
type Name string

const (
	FlowTask     Name = "task"
	FlowMeeting  Name = "meeting"
	FlowDelegate Name = "delegate_contact"
	FlowInvites  Name = "meeting_invites"
	FlowVoice    Name = "voice_pending"
)

// Step is a position inside a flow.
type Step string

const (
	StepInput          Step = "input"
	StepConfirm        Step = "confirm"
	StepDateFallback   Step = "date_fallback"
	StepCustomDate     Step = "custom_date"
	StepReminderSelect Step = "reminder_select"
	StepDelegateAsk    Step = "delegate_ask"
	StepTimeSelect     Step = "time_select"
)

// TaskData is the task flow's accumulated state.
type TaskData struct {
	Step        Step              `json:"step"`
	Kind        model.TaskType    `json:"kind"`
	Via         model.Channel     `json:"via"`
	Delegate    bool              `json:"delegate,omitempty"` // entered via the delegate menu item
	Slots       extract.TaskSlots `json:"slots"`
	SavedTaskID int64             `json:"savedTaskId,omitempty"`
}

// MeetingData is the meeting flow's accumulated state.
type MeetingData struct {
	Step  Step                 `json:"step"`
	Via   model.Channel        `json:"via"`
	Slots extract.MeetingSlots `json:"slots"`
}

// DelegateData carries the saved task into the contact-collection flow.
type DelegateData struct {
	TaskID int64  `json:"taskId"`
	Title  string `json:"title"`
}

// InvitesData drives the meeting invite-collection loop.
type InvitesData struct {
	MeetingID    int64    `json:"meetingId"`
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	StartTime    string   `json:"startTime,omitempty"`
	CalendarLink string   `json:"calendarLink,omitempty"`
	Invited      int      `json:"invited"`
	PendingNames []string `json:"pendingNames,omitempty"`
}

// VoiceData holds a transcript awaiting confirmation plus the flow it
// interrupted, so a "yes" can resume exactly where the user was.
type VoiceData struct {
	Transcript string          `json:"_pending_voice"`
	ReturnFlow Name            `json:"_return_flow,omitempty"`
	ReturnData json.RawMessage `json:"_return_data,omitempty"`
}

// load reads the user's flow state. Fail-open: any storage error behaves
// as "no flow active" so a broken row can never block message handling.
func (e *Engine) load(ctx context.Context, userID int64) (Name, []byte) {
	st, err := e.store.Conversations().Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			e.log.Warn().Err(err).Int64("user_id", userID).Msg("conversation state read failed, treating as idle")
		}
		return "", nil
	}
	if st.FlowName == nil || *st.FlowName == "" {
		return "", nil
	}
	return Name(*st.FlowName), st.FlowData
}

// save persists flow state. Handlers mutate an in-memory copy, so every
// transition must write back before returning.
func (e *Engine) save(ctx context.Context, userID int64, name Name, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "marshal flow data")
	}
	if err := e.store.Conversations().Set(ctx, userID, string(name), raw, e.now()); err != nil {
		return errors.Wrap(err, "persist flow state")
	}
	return nil
}

// clear drops any active flow. Idempotent; errors are logged, not raised.
func (e *Engine) clear(ctx context.Context, userID int64) {
	if err := e.store.Conversations().Clear(ctx, userID); err != nil {
		e.log.Warn().Err(err).Int64("user_id", userID).Msg("conversation state clear failed")
	}
}
