package flow

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/taskivo/taskivo/internal/lexicon"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/wa"
)

// handleVoice transcribes an inbound voice message. When it lands in the
// middle of a flow the transcript is parked for confirmation and the
// interrupted flow is stashed for resumption; otherwise the transcript is
// treated as typed input.
func (e *Engine) handleVoice(ctx context.Context, user *model.User, mediaURL string) {
	transcript, err := e.transcriber.Transcribe(ctx, mediaURL)
	if err != nil || strings.TrimSpace(transcript) == "" {
		if err != nil {
			e.log.Warn().Err(err).Int64("user_id", user.ID).Msg("transcription failed")
		}
		e.sendText(ctx, user, msgVoiceRetry)
		return
	}
	transcript = strings.TrimSpace(transcript)

	name, raw := e.load(ctx, user.ID)
	if name != "" && name != FlowVoice {
		vd := VoiceData{Transcript: transcript, ReturnFlow: name, ReturnData: raw}
		if err := e.save(ctx, user.ID, FlowVoice, vd); err != nil {
			e.log.Error().Err(err).Int64("user_id", user.ID).Msg("park transcript failed")
			e.fail(ctx, user)
			return
		}
		e.sendTemplate(ctx, user, wa.TplVoiceConfirm, map[string]string{"1": transcript})
		return
	}
	// No flow to interrupt (or a stale transcript is pending): run the
	// transcript through fresh auto-detection.
	e.clear(ctx, user.ID)
	e.autoDetect(ctx, user, transcript, model.ChannelVoice)
}

func (e *Engine) handleVoicePending(ctx context.Context, user *model.User, raw []byte, text string, action lexicon.ActionID, hasAction bool) error {
	var d VoiceData
	if err := json.Unmarshal(raw, &d); err != nil {
		return errors.Wrap(err, "decode voice flow data")
	}
	yes, ok := lexicon.Confirmation(text)
	if hasAction {
		switch action {
		case lexicon.ActionConfirmVoice:
			yes, ok = true, true
		case lexicon.ActionRetryVoice:
			yes, ok = false, true
		}
	}
	if !ok {
		switch strings.TrimSpace(text) {
		case "1":
			yes, ok = true, true
		case "2":
			yes, ok = false, true
		}
	}
	if !ok {
		e.sendTemplate(ctx, user, wa.TplVoiceConfirm, map[string]string{"1": d.Transcript})
		return nil
	}

	if d.ReturnFlow == "" {
		e.clear(ctx, user.ID)
		if yes {
			e.autoDetect(ctx, user, d.Transcript, model.ChannelVoice)
			return nil
		}
		e.sendText(ctx, user, "🎤 בסדר, שלח שוב הקלטה או הקלד")
		return nil
	}

	// Restore the interrupted flow exactly as it was.
	if err := e.store.Conversations().Set(ctx, user.ID, string(d.ReturnFlow), d.ReturnData, e.now()); err != nil {
		return errors.Wrap(err, "restore interrupted flow")
	}
	if yes {
		// Re-dispatch the transcript into the current step's input path.
		return e.dispatch(ctx, user, d.ReturnFlow, d.ReturnData, d.Transcript, "", false, Inbound{Text: d.Transcript})
	}
	e.sendPrompt(ctx, user, stepPrompt(d.ReturnFlow, d.ReturnData))
	return nil
}
