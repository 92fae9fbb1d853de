package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/wa"
)

func (e *Engine) handleDelegateFlow(ctx context.Context, user *model.User, raw []byte, text string, in Inbound) error {
	var d DelegateData
	if err := json.Unmarshal(raw, &d); err != nil {
		return errors.Wrap(err, "decode delegate flow data")
	}
	card, ok := e.inboundContact(text, in)
	if !ok {
		// Escape hatch: a non-contact message abandons the delegation and
		// is reprocessed as a fresh command or auto-detected input.
		e.clear(ctx, user.ID)
		e.sendText(ctx, user, "👌 בלי האצלה. ממשיכים")
		e.routeIdle(ctx, user, text, "", false)
		return nil
	}
	delegation, task, err := e.delegations.Delegate(ctx, user.ID, d.TaskID, card)
	if err != nil {
		return errors.Wrap(err, "record delegation")
	}
	body := fmt.Sprintf("👋 %s העביר אליך משימה:\n📌 %s", user.PhoneNumber, task.Title)
	if task.DueDate != nil {
		body += "\n📅 " + displayDate(*task.DueDate)
	}
	e.clear(ctx, user.ID)
	if _, err := e.sender.SendTemplate(ctx, card.Phone, wa.TplDelegationInvite, map[string]string{"1": body}); err != nil {
		// The delegation is committed either way; the delegator just has
		// to pass the word along manually.
		e.log.Warn().Err(err).Int64("delegation_id", delegation.ID).Msg("delegation invite send failed")
		e.sendText(ctx, user, fmt.Sprintf("⚠️ המשימה הועברה ל-%s אבל ההודעה אליו לא נשלחה, עדכן אותו ידנית", card.Name))
		return nil
	}
	e.delegations.MarkSent(ctx, delegation.ID)
	e.sendTemplate(ctx, user, wa.TplDelegateSuccess,
		map[string]string{"1": fmt.Sprintf("🎉 המשימה \"%s\" הועברה ל-%s", task.Title, card.Name)})
	return nil
}
