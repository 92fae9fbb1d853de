package model

import "time"

// TaskType classifies how a task was scheduled.
type TaskType string

const (
	TaskToday     TaskType = "today"
	TaskScheduled TaskType = "scheduled"
	TaskRecurring TaskType = "recurring"
	TaskSomeday   TaskType = "someday"
	TaskDelegated TaskType = "delegated"
	TaskMeeting   TaskType = "meeting"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
	StatusOverdue    TaskStatus = "overdue"
)

// Priority is the four-level task priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Channel records how a task entered the system.
type Channel string

const (
	ChannelText  Channel = "whatsapp_text"
	ChannelVoice Channel = "whatsapp_voice"
	ChannelWeb   Channel = "web"
	ChannelAPI   Channel = "api"
)

// User is an account keyed by phone number. Created on first inbound message.
type User struct {
	ID               int64      `json:"id"`
	PhoneNumber      string     `json:"phoneNumber"`
	Name             *string    `json:"name,omitempty"`
	Email            *string    `json:"email,omitempty"`
	WhatsAppVerified bool       `json:"whatsappVerified"`
	Language         string     `json:"language"`
	TimeZone         string     `json:"timeZone"`
	NotificationPref string     `json:"notificationPreferences"`
	WeeklySummary    bool       `json:"weeklySummaryEnabled"`
	WeeklySummaryDay int        `json:"weeklySummaryDay"`
	CreationTime     time.Time  `json:"creationTime"`
	LastActiveTime   *time.Time `json:"lastActiveTime,omitempty"`
}

// Task is the central work item. Meetings and delegations reference one.
type Task struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"userId"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	Type            TaskType   `json:"taskType"`
	Status          TaskStatus `json:"status"`
	Priority        Priority   `json:"priority"`
	Category        string     `json:"category"`
	DueDate         *string    `json:"dueDate,omitempty"` // YYYY-MM-DD
	DueTime         *string    `json:"dueTime,omitempty"` // HH:MM
	CreatedVia      Channel    `json:"createdVia"`
	VoiceTranscript *string    `json:"voiceTranscript,omitempty"`
	CreationTime    time.Time  `json:"creationTime"`
	CompletedTime   *time.Time `json:"completedTime,omitempty"`
	UpdateTime      time.Time  `json:"updateTime"`
}

// DelegationStatus is the assignee-side state of a delegated task.
type DelegationStatus string

const (
	DelegationPending   DelegationStatus = "pending"
	DelegationAccepted  DelegationStatus = "accepted"
	DelegationRejected  DelegationStatus = "rejected"
	DelegationCompleted DelegationStatus = "completed"
)

// Delegation links a task to an assignee identified by phone.
type Delegation struct {
	ID            int64            `json:"id"`
	TaskID        int64            `json:"taskId"`
	DelegatorID   int64            `json:"delegatorId"`
	AssigneePhone string           `json:"assigneePhone"`
	AssigneeName  *string          `json:"assigneeName,omitempty"`
	Status        DelegationStatus `json:"status"`
	SentTime      *time.Time       `json:"sentTime,omitempty"`
	AcceptedTime  *time.Time       `json:"acceptedTime,omitempty"`
	CompletedTime *time.Time       `json:"completedTime,omitempty"`
	FollowUpCount int              `json:"followUpCount"`
}

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingCancelled MeetingStatus = "cancelled"
	MeetingCompleted MeetingStatus = "completed"
)

// Meeting always references the companion task created alongside it.
type Meeting struct {
	ID          int64         `json:"id"`
	TaskID      int64         `json:"taskId"`
	OrganizerID int64         `json:"organizerId"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Date        string        `json:"meetingDate"` // YYYY-MM-DD
	StartTime   *string       `json:"startTime,omitempty"`
	EndTime     *string       `json:"endTime,omitempty"`
	Location    *string       `json:"location,omitempty"`
	Status      MeetingStatus `json:"status"`
}

// ParticipantStatus is a participant's RSVP state.
type ParticipantStatus string

const (
	ParticipantPending   ParticipantStatus = "pending"
	ParticipantAccepted  ParticipantStatus = "accepted"
	ParticipantDeclined  ParticipantStatus = "declined"
	ParticipantTentative ParticipantStatus = "tentative"
)

// Participant belongs to a meeting.
type Participant struct {
	ID            int64             `json:"id"`
	MeetingID     int64             `json:"meetingId"`
	PhoneNumber   string            `json:"phoneNumber"`
	Name          *string           `json:"name,omitempty"`
	Status        ParticipantStatus `json:"status"`
	NotifiedTime  *time.Time        `json:"notifiedTime,omitempty"`
	RespondedTime *time.Time        `json:"respondedTime,omitempty"`
}

// ReminderType classifies why a reminder fires.
type ReminderType string

const (
	ReminderBeforeTask ReminderType = "before_task"
	ReminderFollowUp   ReminderType = "follow_up"
	ReminderOverdue    ReminderType = "overdue"
	ReminderDelegation ReminderType = "delegation"
)

// ReminderStatus is a reminder's delivery state.
type ReminderStatus string

const (
	ReminderPending      ReminderStatus = "pending"
	ReminderSent         ReminderStatus = "sent"
	ReminderAcknowledged ReminderStatus = "acknowledged"
	ReminderCancelled    ReminderStatus = "cancelled"
)

// Reminder is a scheduled nudge for a task.
type Reminder struct {
	ID            int64          `json:"id"`
	TaskID        int64          `json:"taskId"`
	UserID        int64          `json:"userId"`
	Type          ReminderType   `json:"reminderType"`
	ScheduledTime time.Time      `json:"scheduledTime"`
	SentTime      *time.Time     `json:"sentTime,omitempty"`
	Status        ReminderStatus `json:"status"`
	Template      *string        `json:"messageTemplate,omitempty"`
}

// DueReminder is a pending reminder joined with its task and user,
// as consumed by the sweep.
type DueReminder struct {
	Reminder
	TaskTitle   string  `json:"taskTitle"`
	TaskDueDate *string `json:"taskDueDate,omitempty"`
	TaskDueTime *string `json:"taskDueTime,omitempty"`
	TaskStatus  TaskStatus
	Priority    Priority
	PhoneNumber string
	UserName    *string
	Language    string
}

// MessageLogEntry is an append-only audit record of channel traffic.
type MessageLogEntry struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	Direction     string    `json:"direction"` // incoming / outgoing
	MessageType   string    `json:"messageType"`
	Content       string    `json:"content"`
	VoiceDuration *int      `json:"voiceDuration,omitempty"`
	Transcription *string   `json:"transcription,omitempty"`
	CreationTime  time.Time `json:"creationTime"`
}

// ConversationState is the persisted per-user flow record. A nil FlowName
// means no flow is active and the next input is treated as a command or
// free-text auto-detect.
type ConversationState struct {
	UserID          int64
	FlowName        *string
	FlowData        []byte // JSON object; opaque to everything but the owning flow handler
	StartedTime     time.Time
	LastInteraction time.Time
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	Status   *TaskStatus
	Type     *TaskType
	Category *string
	DueDate  *string
	Search   *string
}

// TaskStats aggregates per-user counts for the dashboard and CLI.
type TaskStats struct {
	ActiveCount    int `json:"activeCount"`
	CompletedCount int `json:"completedCount"`
	OverdueCount   int `json:"overdueCount"`
	DelegatedCount int `json:"delegatedCount"`
}
