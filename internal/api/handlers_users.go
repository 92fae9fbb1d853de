package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/api/respond"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/services"
)

// UserHandler serves user profile and reminder endpoints.
type UserHandler struct {
	users     *services.Users
	reminders *services.Reminders
	log       zerolog.Logger
}

func NewUserHandler(users *services.Users, reminders *services.Reminders, log zerolog.Logger) *UserHandler {
	return &UserHandler{users: users, reminders: reminders, log: log.With().Str("handler", "users").Logger()}
}

// GetUser handles GET /api/users/{userId}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		respond.WriteBadRequest(w, "invalid user id")
		return
	}
	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeStoreError(w, h.log, err, "user")
		return
	}
	respond.WriteJSON(w, http.StatusOK, u)
}

type userUpdateRequest struct {
	Name             *string `json:"name,omitempty"`
	Email            *string `json:"email,omitempty"`
	Language         *string `json:"language,omitempty"`
	TimeZone         *string `json:"timeZone,omitempty"`
	WeeklySummary    *bool   `json:"weeklySummaryEnabled,omitempty"`
	WeeklySummaryDay *int    `json:"weeklySummaryDay,omitempty"`
}

// UpdateUser handles PATCH /api/users/{userId}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		respond.WriteBadRequest(w, "invalid user id")
		return
	}
	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeStoreError(w, h.log, err, "user")
		return
	}
	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON")
		return
	}
	if req.Name != nil {
		u.Name = req.Name
	}
	if req.Email != nil {
		u.Email = req.Email
	}
	if req.Language != nil {
		u.Language = *req.Language
	}
	if req.TimeZone != nil {
		u.TimeZone = *req.TimeZone
	}
	if req.WeeklySummary != nil {
		u.WeeklySummary = *req.WeeklySummary
	}
	if req.WeeklySummaryDay != nil {
		if *req.WeeklySummaryDay < 0 || *req.WeeklySummaryDay > 6 {
			respond.WriteBadRequest(w, "weeklySummaryDay must be 0..6")
			return
		}
		u.WeeklySummaryDay = *req.WeeklySummaryDay
	}
	if err := h.users.Update(r.Context(), u); err != nil {
		writeStoreError(w, h.log, err, "user")
		return
	}
	respond.WriteJSON(w, http.StatusOK, u)
}

// ListReminders handles GET /api/users/{userId}/reminders with an
// optional status query param.
func (h *UserHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		respond.WriteBadRequest(w, "invalid user id")
		return
	}
	var status *model.ReminderStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := model.ReminderStatus(v)
		status = &s
	}
	rems, err := h.reminders.ListByUser(r.Context(), userID, status)
	if err != nil {
		writeStoreError(w, h.log, err, "reminders")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"reminders": rems})
}

// CancelReminder handles DELETE /api/users/{userId}/reminders/{reminderId}
func (h *UserHandler) CancelReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	reminderID, ok2 := pathID(r, "reminderId")
	if !ok || !ok2 {
		respond.WriteBadRequest(w, "invalid id")
		return
	}
	if err := h.reminders.Cancel(r.Context(), userID, reminderID); err != nil {
		writeStoreError(w, h.log, err, "reminder")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
