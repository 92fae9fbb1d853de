package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/flow"
	"github.com/taskivo/taskivo/internal/services"
)

// MediaFetcher downloads inbound media bodies. Twilio media URLs require
// the account's basic auth.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TwilioMediaFetcher fetches media with account credentials.
type TwilioMediaFetcher struct {
	http *resty.Client
}

func NewTwilioMediaFetcher(accountSID, authToken string) *TwilioMediaFetcher {
	c := resty.New()
	if accountSID != "" {
		c.SetBasicAuth(accountSID, authToken)
	}
	return &TwilioMediaFetcher{http: c}
}

func (f *TwilioMediaFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, errors.Wrap(err, "fetch media")
	}
	if resp.IsError() {
		return nil, errors.Errorf("fetch media: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// WebhookHandler receives Twilio WhatsApp callbacks and feeds them to the
// conversation engine.
type WebhookHandler struct {
	engine *flow.Engine
	users  *services.Users
	media  MediaFetcher
	log    zerolog.Logger
}

func NewWebhookHandler(engine *flow.Engine, users *services.Users, media MediaFetcher, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		engine: engine,
		users:  users,
		media:  media,
		log:    log.With().Str("component", "webhook").Logger(),
	}
}

// Receive handles POST /webhook/whatsapp. Twilio expects a prompt 2xx;
// everything user-visible happens through outbound sends, so the response
// body stays empty.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	// Correlation id ties engine log lines back to one webhook delivery.
	log := h.log.With().Str("request_id", uuid.NewString()).Logger()
	if err := r.ParseForm(); err != nil {
		log.Warn().Err(err).Msg("webhook form parse failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	phone := strings.TrimPrefix(r.PostFormValue("From"), "whatsapp:")
	if phone == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	numMedia, _ := strconv.Atoi(r.PostFormValue("NumMedia"))
	in := flow.Inbound{
		Text:             r.PostFormValue("Body"),
		Payload:          firstNonEmpty(r.PostFormValue("ButtonPayload"), r.PostFormValue("ListId")),
		NumMedia:         numMedia,
		MediaURL:         r.PostFormValue("MediaUrl0"),
		MediaContentType: r.PostFormValue("MediaContentType0"),
	}

	ctx := r.Context()
	// Shared contact cards arrive as vCard media, not message text.
	if numMedia > 0 && strings.Contains(in.MediaContentType, "vcard") {
		body, err := h.media.Fetch(ctx, in.MediaURL)
		if err != nil {
			log.Warn().Err(err).Msg("vcard download failed")
		} else {
			in.VCard = string(body)
			in.NumMedia = 0
		}
	}

	user, _, err := h.users.GetOrCreate(ctx, phone)
	if err != nil {
		log.Error().Err(err).Str("phone", phone).Msg("user resolution failed")
		// Still 200: Twilio retries are useless if the DB is down and
		// would duplicate the message once it recovers.
		w.WriteHeader(http.StatusOK)
		return
	}

	h.engine.Handle(ctx, user, in)
	w.WriteHeader(http.StatusOK)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
