package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/api/respond"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/services"
)

// TaskHandler serves the REST task endpoints.
type TaskHandler struct {
	tasks *services.Tasks
	log   zerolog.Logger
}

func NewTaskHandler(tasks *services.Tasks, log zerolog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log.With().Str("handler", "tasks").Logger()}
}

func pathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[key], 10, 64)
	return id, err == nil && id > 0
}

// writeStoreError maps model sentinel errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, log zerolog.Logger, err error, what string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, what+" not found")
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrConflict):
		respond.WriteConflict(w, what+" already exists")
	default:
		log.Error().Err(err).Str("what", what).Msg("request failed")
		respond.WriteInternalError(w, "internal error")
	}
}

type taskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Type        string  `json:"taskType"`
	Priority    string  `json:"priority"`
	Category    string  `json:"category"`
	DueDate     *string `json:"dueDate,omitempty"`
	DueTime     *string `json:"dueTime,omitempty"`
}

// CreateTask handles POST /api/users/{userId}/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		respond.WriteBadRequest(w, "invalid user id")
		return
	}
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON")
		return
	}
	if req.Type == "" {
		req.Type = string(model.TaskToday)
	}
	if req.Priority == "" {
		req.Priority = string(model.PriorityMedium)
	}
	task, err := h.tasks.Create(r.Context(), &model.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Type:        model.TaskType(req.Type),
		Priority:    model.Priority(req.Priority),
		Category:    req.Category,
		DueDate:     req.DueDate,
		DueTime:     req.DueTime,
		CreatedVia:  model.ChannelAPI,
	})
	if err != nil {
		writeStoreError(w, h.log, err, "task")
		return
	}
	respond.WriteJSON(w, http.StatusCreated, task)
}

// ListTasks handles GET /api/users/{userId}/tasks with optional
// status/type/category/dueDate/search filters.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		respond.WriteBadRequest(w, "invalid user id")
		return
	}
	q := r.URL.Query()
	var f model.TaskFilter
	if v := q.Get("status"); v != "" {
		s := model.TaskStatus(v)
		f.Status = &s
	}
	if v := q.Get("type"); v != "" {
		t := model.TaskType(v)
		f.Type = &t
	}
	if v := q.Get("category"); v != "" {
		f.Category = &v
	}
	if v := q.Get("dueDate"); v != "" {
		f.DueDate = &v
	}
	if v := q.Get("search"); v != "" {
		f.Search = &v
	}
	tasks, err := h.tasks.List(r.Context(), userID, f)
	if err != nil {
		writeStoreError(w, h.log, err, "tasks")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks, "count": len(tasks)})
}

// GetTask handles GET /api/users/{userId}/tasks/{taskId}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	taskID, ok2 := pathID(r, "taskId")
	if !ok || !ok2 {
		respond.WriteBadRequest(w, "invalid id")
		return
	}
	task, err := h.tasks.Get(r.Context(), userID, taskID)
	if err != nil {
		writeStoreError(w, h.log, err, "task")
		return
	}
	respond.WriteJSON(w, http.StatusOK, task)
}

// UpdateTask handles PUT /api/users/{userId}/tasks/{taskId}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	taskID, ok2 := pathID(r, "taskId")
	if !ok || !ok2 {
		respond.WriteBadRequest(w, "invalid id")
		return
	}
	task, err := h.tasks.Get(r.Context(), userID, taskID)
	if err != nil {
		writeStoreError(w, h.log, err, "task")
		return
	}
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON")
		return
	}
	if req.Title != "" {
		task.Title = req.Title
	}
	if req.Description != nil {
		task.Description = req.Description
	}
	if req.Type != "" {
		task.Type = model.TaskType(req.Type)
	}
	if req.Priority != "" {
		task.Priority = model.Priority(req.Priority)
	}
	if req.Category != "" {
		task.Category = req.Category
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.DueTime != nil {
		task.DueTime = req.DueTime
	}
	if err := h.tasks.Update(r.Context(), task); err != nil {
		writeStoreError(w, h.log, err, "task")
		return
	}
	respond.WriteJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/users/{userId}/tasks/{taskId}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	taskID, ok2 := pathID(r, "taskId")
	if !ok || !ok2 {
		respond.WriteBadRequest(w, "invalid id")
		return
	}
	if err := h.tasks.Delete(r.Context(), userID, taskID); err != nil {
		writeStoreError(w, h.log, err, "task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask handles POST /api/users/{userId}/tasks/{taskId}/complete
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	taskID, ok2 := pathID(r, "taskId")
	if !ok || !ok2 {
		respond.WriteBadRequest(w, "invalid id")
		return
	}
	task, err := h.tasks.Complete(r.Context(), userID, taskID)
	if err != nil {
		writeStoreError(w, h.log, err, "task")
		return
	}
	respond.WriteJSON(w, http.StatusOK, task)
}

// TodayView handles GET /api/users/{userId}/tasks/today
func (h *TaskHandler) TodayView(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		respond.WriteBadRequest(w, "invalid user id")
		return
	}
	today := time.Now().Format("2006-01-02")
	due, overdue, err := h.tasks.Today(r.Context(), userID, today)
	if err != nil {
		writeStoreError(w, h.log, err, "tasks")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"date": today, "due": due, "overdue": overdue,
	})
}

// Stats handles GET /api/users/{userId}/stats
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		respond.WriteBadRequest(w, "invalid user id")
		return
	}
	stats, err := h.tasks.Stats(r.Context(), userID)
	if err != nil {
		writeStoreError(w, h.log, err, "stats")
		return
	}
	respond.WriteJSON(w, http.StatusOK, stats)
}
