// Package extract turns free-form Hebrew or English text into structured
// task or meeting slots. The primary parser is an OpenAI chat call; a
// deterministic keyword/regex parser covers backend failures and missing
// API keys.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/model"
)

// TaskSlots is the structured result of parsing a task description.
// Title is always non-empty.
type TaskSlots struct {
	Title        string
	DueDate      *string // YYYY-MM-DD
	DueTime      *string // HH:MM
	Priority     model.Priority
	AssigneeName *string
}

// MeetingSlots is the structured result of parsing a meeting description.
type MeetingSlots struct {
	Title        string
	Date         *string // YYYY-MM-DD
	Time         *string // HH:MM
	Location     *string
	Participants []string
}

// Kind tags the DetectAndExtract result.
type Kind string

const (
	KindTask    Kind = "task"
	KindMeeting Kind = "meeting"
)

// Detected is the auto-detect composite result.
type Detected struct {
	Kind    Kind
	Task    *TaskSlots
	Meeting *MeetingSlots
}

// meetingKeywords force the meeting extractor regardless of AI availability.
var meetingKeywords = []string{"פגישה", "פגישות", "תיאום", "לתאם", "תאם", "להיפגש", "meeting"}

func hasMeetingKeywords(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range meetingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Extractor is the slot extractor. A nil AI client degrades every call to
// the deterministic parser.
type Extractor struct {
	ai  *OpenAIClient
	log zerolog.Logger
	now func() time.Time
}

// New constructs an Extractor. ai may be nil.
func New(ai *OpenAIClient, log zerolog.Logger) *Extractor {
	return &Extractor{ai: ai, log: log.With().Str("component", "extract").Logger(), now: time.Now}
}

// NewWithClock is used by tests that pin "today".
func NewWithClock(ai *OpenAIClient, log zerolog.Logger, now func() time.Time) *Extractor {
	e := New(ai, log)
	e.now = now
	return e
}

// ExtractTask parses text into task slots. Never returns an empty title.
func (e *Extractor) ExtractTask(ctx context.Context, text string) TaskSlots {
	if e.ai != nil {
		res, err := e.ai.ParseJSON(ctx, taskPrompt(e.now()), text)
		if err != nil {
			e.log.Warn().Err(err).Msg("AI task parse failed, using fallback")
		} else if title := res.Get("title").String(); title != "" {
			return TaskSlots{
				Title:        clampTitle(title),
				DueDate:      normDate(res.Get("due_date").String()),
				DueTime:      normTime(res.Get("due_time").String()),
				Priority:     normPriority(res.Get("priority").String()),
				AssigneeName: optString(res.Get("assignee_name").String()),
			}
		}
	}
	return fallbackTask(text, e.now())
}

// ExtractMeeting parses text into meeting slots. Never returns an empty title.
func (e *Extractor) ExtractMeeting(ctx context.Context, text string) MeetingSlots {
	if e.ai != nil {
		res, err := e.ai.ParseJSON(ctx, meetingPrompt(e.now()), text)
		if err != nil {
			e.log.Warn().Err(err).Msg("AI meeting parse failed, using fallback")
		} else if title := res.Get("title").String(); title != "" {
			var participants []string
			for _, p := range res.Get("participants").Array() {
				if s := strings.TrimSpace(p.String()); s != "" {
					participants = append(participants, s)
				}
			}
			return MeetingSlots{
				Title:        clampTitle(title),
				Date:         normDate(res.Get("date").String()),
				Time:         normTime(res.Get("time").String()),
				Location:     optString(res.Get("location").String()),
				Participants: participants,
			}
		}
	}
	return fallbackMeeting(text, e.now())
}

// DetectAndExtract classifies text as a task or a meeting and parses it.
// Meeting keywords short-circuit to the meeting extractor before any AI
// classification runs.
func (e *Extractor) DetectAndExtract(ctx context.Context, text string) Detected {
	if hasMeetingKeywords(text) {
		m := e.ExtractMeeting(ctx, text)
		return Detected{Kind: KindMeeting, Meeting: &m}
	}
	if e.ai != nil {
		res, err := e.ai.ParseJSON(ctx, autoPrompt(e.now()), text)
		if err != nil {
			e.log.Warn().Err(err).Msg("AI auto parse failed, using fallback")
		} else if res.Get("type").String() == "meeting" && res.Get("title").String() != "" {
			var participants []string
			for _, p := range res.Get("participants").Array() {
				if s := strings.TrimSpace(p.String()); s != "" {
					participants = append(participants, s)
				}
			}
			m := MeetingSlots{
				Title:        clampTitle(res.Get("title").String()),
				Date:         normDate(res.Get("date").String()),
				Time:         normTime(res.Get("time").String()),
				Location:     optString(res.Get("location").String()),
				Participants: participants,
			}
			return Detected{Kind: KindMeeting, Meeting: &m}
		} else if res.Get("title").String() != "" {
			t := TaskSlots{
				Title:        clampTitle(res.Get("title").String()),
				DueDate:      normDate(res.Get("due_date").String()),
				DueTime:      normTime(res.Get("due_time").String()),
				Priority:     normPriority(res.Get("priority").String()),
				AssigneeName: optString(res.Get("assignee_name").String()),
			}
			return Detected{Kind: KindTask, Task: &t}
		}
	}
	t := fallbackTask(text, e.now())
	return Detected{Kind: KindTask, Task: &t}
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil
	}
	return &s
}

func normPriority(s string) model.Priority {
	switch model.Priority(strings.ToLower(strings.TrimSpace(s))) {
	case model.PriorityLow:
		return model.PriorityLow
	case model.PriorityHigh:
		return model.PriorityHigh
	case model.PriorityUrgent:
		return model.PriorityUrgent
	default:
		return model.PriorityMedium
	}
}

func normDate(s string) *string {
	s = strings.TrimSpace(s)
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return nil
	}
	return &s
}

func normTime(s string) *string {
	s = strings.TrimSpace(s)
	if _, err := time.Parse("15:04", s); err != nil {
		return nil
	}
	return &s
}
