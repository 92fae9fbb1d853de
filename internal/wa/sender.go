// Package wa sends outbound WhatsApp messages through Twilio: plain
// text, interactive quick-reply cards, and list pickers, with numbered
// plain-text fallbacks when interactive delivery is unavailable.
package wa

import (
	"context"

	"github.com/rs/zerolog"
)

// Sender is the outbound messaging surface used by the conversation
// engine and background jobs.
type Sender interface {
	// SendText sends a plain text message and returns the provider
	// message id.
	SendText(ctx context.Context, phone, body string) (string, error)
	// SendTemplate sends a catalog template by name, degrading to the
	// numbered text fallback when interactive delivery fails.
	SendTemplate(ctx context.Context, phone, name string, vars map[string]string) (string, error)
}

// Noop logs messages instead of sending them. Used when Twilio
// credentials are not configured, typically local development.
type Noop struct {
	Log zerolog.Logger
}

func (n *Noop) SendText(ctx context.Context, phone, body string) (string, error) {
	n.Log.Info().Str("to", phone).Str("body", body).Msg("noop send text")
	return "noop", nil
}

func (n *Noop) SendTemplate(ctx context.Context, phone, name string, vars map[string]string) (string, error) {
	tpl, ok := Catalog[name]
	if !ok {
		n.Log.Warn().Str("template", name).Msg("noop send of unknown template")
		return "noop", nil
	}
	n.Log.Info().Str("to", phone).Str("template", name).Str("body", tpl.Fallback(vars)).Msg("noop send template")
	return "noop", nil
}
