package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/store"
)

// MessageLog appends audit records of channel traffic. Logging is never
// allowed to fail a user-visible operation; write errors are logged once
// and dropped.
type MessageLog struct {
	store store.Store
	log   zerolog.Logger
}

func NewMessageLog(st store.Store, log zerolog.Logger) *MessageLog {
	return &MessageLog{store: st, log: log.With().Str("service", "messagelog").Logger()}
}

func (s *MessageLog) Incoming(ctx context.Context, userID int64, messageType, content string, transcript *string) {
	s.append(ctx, &model.MessageLogEntry{
		UserID:        userID,
		Direction:     "incoming",
		MessageType:   messageType,
		Content:       content,
		Transcription: transcript,
	})
}

func (s *MessageLog) Outgoing(ctx context.Context, userID int64, messageType, content string) {
	s.append(ctx, &model.MessageLogEntry{
		UserID:      userID,
		Direction:   "outgoing",
		MessageType: messageType,
		Content:     content,
	})
}

func (s *MessageLog) append(ctx context.Context, e *model.MessageLogEntry) {
	if err := s.store.MessageLog().Append(ctx, e); err != nil {
		s.log.Warn().Err(err).Int64("user_id", e.UserID).Msg("message log append failed")
	}
}

func (s *MessageLog) Recent(ctx context.Context, userID int64, limit int) ([]*model.MessageLogEntry, error) {
	return s.store.MessageLog().ListRecent(ctx, userID, limit)
}
