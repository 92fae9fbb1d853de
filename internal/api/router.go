package api

import (
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/api/recovery"
	"github.com/taskivo/taskivo/internal/flow"
	"github.com/taskivo/taskivo/internal/services"
)

// RouterDeps carries everything the HTTP surface needs. The services are
// built once in run.go and shared with the conversation engine.
type RouterDeps struct {
	Engine      *flow.Engine
	Users       *services.Users
	Tasks       *services.Tasks
	Meetings    *services.Meetings
	Delegations *services.Delegations
	Reminders   *services.Reminders
	Media       MediaFetcher
	CountryCode string
	Logger      zerolog.Logger
}

// NewRouter creates the HTTP router with the webhook and all REST routes.
func NewRouter(d RouterDeps) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)

	// Create handlers
	healthHandler := NewHealthHandler()
	webhookHandler := NewWebhookHandler(d.Engine, d.Users, d.Media, d.Logger)
	taskHandler := NewTaskHandler(d.Tasks, d.Logger)
	meetingHandler := NewMeetingHandler(d.Meetings, d.Logger)
	delegationHandler := NewDelegationHandler(d.Delegations, d.CountryCode, d.Logger)
	userHandler := NewUserHandler(d.Users, d.Reminders, d.Logger)

	// Inbound WhatsApp messages
	router.HandleFunc("/webhook/whatsapp", webhookHandler.Receive).Methods("POST")

	// Health endpoint
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	// User endpoints
	router.HandleFunc("/api/users/{userId}", userHandler.GetUser).Methods("GET")
	router.HandleFunc("/api/users/{userId}", userHandler.UpdateUser).Methods("PATCH")

	// Task endpoints. /today is registered before {taskId} so mux does not
	// try to parse it as an id.
	router.HandleFunc("/api/users/{userId}/tasks", taskHandler.CreateTask).Methods("POST")
	router.HandleFunc("/api/users/{userId}/tasks", taskHandler.ListTasks).Methods("GET")
	router.HandleFunc("/api/users/{userId}/tasks/today", taskHandler.TodayView).Methods("GET")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId:[0-9]+}", taskHandler.GetTask).Methods("GET")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId:[0-9]+}", taskHandler.UpdateTask).Methods("PUT")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId:[0-9]+}", taskHandler.DeleteTask).Methods("DELETE")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId:[0-9]+}/complete", taskHandler.CompleteTask).Methods("POST")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId:[0-9]+}/delegate", delegationHandler.DelegateTask).Methods("POST")
	router.HandleFunc("/api/users/{userId}/delegations", delegationHandler.ListDelegations).Methods("GET")
	router.HandleFunc("/api/users/{userId}/stats", taskHandler.Stats).Methods("GET")

	// Meeting endpoints
	router.HandleFunc("/api/users/{userId}/meetings", meetingHandler.ListMeetings).Methods("GET")
	router.HandleFunc("/api/meetings/{meetingId:[0-9]+}", meetingHandler.GetMeeting).Methods("GET")
	router.HandleFunc("/api/meetings/{meetingId:[0-9]+}", meetingHandler.CancelMeeting).Methods("DELETE")

	// Reminder endpoints
	router.HandleFunc("/api/users/{userId}/reminders", userHandler.ListReminders).Methods("GET")
	router.HandleFunc("/api/users/{userId}/reminders/{reminderId:[0-9]+}", userHandler.CancelReminder).Methods("DELETE")

	return router
}
