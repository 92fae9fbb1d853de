package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/api/respond"
	"github.com/taskivo/taskivo/internal/contact"
	"github.com/taskivo/taskivo/internal/services"
)

// DelegationHandler serves the REST delegation endpoints.
type DelegationHandler struct {
	delegations *services.Delegations
	countryCode string
	log         zerolog.Logger
}

func NewDelegationHandler(delegations *services.Delegations, countryCode string, log zerolog.Logger) *DelegationHandler {
	return &DelegationHandler{
		delegations: delegations,
		countryCode: countryCode,
		log:         log.With().Str("handler", "delegations").Logger(),
	}
}

type delegateRequest struct {
	AssigneePhone string `json:"assigneePhone"`
	AssigneeName  string `json:"assigneeName,omitempty"`
}

// DelegateTask handles POST /api/users/{userId}/tasks/{taskId}/delegate.
// It records the delegation only; notifying the assignee stays a chat
// concern.
func (h *DelegationHandler) DelegateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	taskID, ok2 := pathID(r, "taskId")
	if !ok || !ok2 {
		respond.WriteBadRequest(w, "invalid id")
		return
	}
	var req delegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON")
		return
	}
	phone, valid := contact.NormalizePhone(req.AssigneePhone, h.countryCode)
	if !valid {
		respond.WriteBadRequest(w, "assigneePhone is not a valid phone number")
		return
	}
	card := &contact.Card{Name: req.AssigneeName, Phone: phone}
	if card.Name == "" {
		card.Name = phone
	}
	delegation, task, err := h.delegations.Delegate(r.Context(), userID, taskID, card)
	if err != nil {
		writeStoreError(w, h.log, err, "delegation")
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"delegation": delegation, "task": task,
	})
}

// ListDelegations handles GET /api/users/{userId}/delegations
func (h *DelegationHandler) ListDelegations(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		respond.WriteBadRequest(w, "invalid user id")
		return
	}
	delegations, err := h.delegations.ListByDelegator(r.Context(), userID)
	if err != nil {
		writeStoreError(w, h.log, err, "delegations")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"delegations": delegations})
}
