package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/api/respond"
	"github.com/taskivo/taskivo/internal/services"
)

// MeetingHandler serves the REST meeting endpoints.
type MeetingHandler struct {
	meetings *services.Meetings
	log      zerolog.Logger
}

func NewMeetingHandler(meetings *services.Meetings, log zerolog.Logger) *MeetingHandler {
	return &MeetingHandler{meetings: meetings, log: log.With().Str("handler", "meetings").Logger()}
}

// ListMeetings handles GET /api/users/{userId}/meetings with optional
// from/to range query params.
func (h *MeetingHandler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		respond.WriteBadRequest(w, "invalid user id")
		return
	}
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	var err error
	var meetings interface{}
	if from != "" && to != "" {
		meetings, err = h.meetings.Between(r.Context(), userID, from, to)
	} else {
		meetings, err = h.meetings.ListByOrganizer(r.Context(), userID)
	}
	if err != nil {
		writeStoreError(w, h.log, err, "meetings")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"meetings": meetings})
}

// GetMeeting handles GET /api/meetings/{meetingId}
func (h *MeetingHandler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	meetingID, ok := pathID(r, "meetingId")
	if !ok {
		respond.WriteBadRequest(w, "invalid meeting id")
		return
	}
	meeting, err := h.meetings.Get(r.Context(), meetingID)
	if err != nil {
		writeStoreError(w, h.log, err, "meeting")
		return
	}
	participants, err := h.meetings.Participants(r.Context(), meetingID)
	if err != nil {
		writeStoreError(w, h.log, err, "participants")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"meeting": meeting, "participants": participants,
	})
}

// CancelMeeting handles DELETE /api/meetings/{meetingId}
func (h *MeetingHandler) CancelMeeting(w http.ResponseWriter, r *http.Request) {
	meetingID, ok := pathID(r, "meetingId")
	if !ok {
		respond.WriteBadRequest(w, "invalid meeting id")
		return
	}
	if err := h.meetings.Cancel(r.Context(), meetingID); err != nil {
		writeStoreError(w, h.log, err, "meeting")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
