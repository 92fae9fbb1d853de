package wa

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	messagesURL = "https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json"
	contentURL  = "https://content.twilio.com/v1/Content"
)

// TemplateCache resolves catalog template names to Twilio content SIDs.
// Existing templates are discovered once from the Content API; missing
// ones are created from their catalog definition on first use.
type TemplateCache struct {
	mu     sync.Mutex
	sids   map[string]string
	loaded bool
	http   *resty.Client
	log    zerolog.Logger
}

func NewTemplateCache(accountSID, authToken string, log zerolog.Logger) *TemplateCache {
	return &TemplateCache{
		sids: make(map[string]string),
		http: resty.New().SetBasicAuth(accountSID, authToken),
		log:  log,
	}
}

// SID returns the content SID for tpl, creating the template if Twilio
// does not have it yet.
func (c *TemplateCache) SID(ctx context.Context, tpl Template) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		if err := c.load(ctx); err != nil {
			return "", err
		}
		c.loaded = true
	}
	if sid, ok := c.sids[tpl.Name]; ok {
		return sid, nil
	}
	sid, err := c.create(ctx, tpl)
	if err != nil {
		return "", err
	}
	c.sids[tpl.Name] = sid
	c.log.Info().Str("template", tpl.Name).Str("sid", sid).Msg("created content template")
	return sid, nil
}

func (c *TemplateCache) load(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("PageSize", "100").
		Get(contentURL)
	if err != nil {
		return errors.Wrap(err, "list content templates")
	}
	if resp.IsError() {
		return errors.Errorf("list content templates: status %d", resp.StatusCode())
	}
	for _, item := range gjson.GetBytes(resp.Body(), "contents").Array() {
		name := item.Get("friendly_name").String()
		if strings.HasPrefix(name, "wt_") {
			c.sids[name] = item.Get("sid").String()
		}
	}
	return nil
}

func (c *TemplateCache) create(ctx context.Context, tpl Template) (string, error) {
	def := map[string]any{
		"friendly_name": tpl.Name,
		"language":      "he",
		"types":         contentTypes(tpl),
	}
	if strings.Contains(tpl.Body, "{{1}}") {
		def["variables"] = map[string]string{"1": ""}
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(def).
		Post(contentURL)
	if err != nil {
		return "", errors.Wrapf(err, "create content template %s", tpl.Name)
	}
	if resp.IsError() {
		return "", errors.Errorf("create content template %s: status %d: %s", tpl.Name, resp.StatusCode(), resp.Body())
	}
	sid := gjson.GetBytes(resp.Body(), "sid").String()
	if sid == "" {
		return "", errors.Errorf("create content template %s: no sid in response", tpl.Name)
	}
	return sid, nil
}

func contentTypes(tpl Template) map[string]any {
	if len(tpl.Items) > 0 {
		items := make([]map[string]string, 0, len(tpl.Items))
		for _, it := range tpl.Items {
			row := map[string]string{"item": it.Label, "id": string(it.ID)}
			if it.Description != "" {
				row["description"] = it.Description
			}
			items = append(items, row)
		}
		return map[string]any{
			"twilio/list-picker": map[string]any{
				"body":   tpl.Body,
				"button": tpl.Button,
				"items":  items,
			},
		}
	}
	actions := make([]map[string]string, 0, len(tpl.Actions))
	for _, a := range tpl.Actions {
		actions = append(actions, map[string]string{
			"title": a.Label,
			"id":    string(a.ID),
			"type":  "QUICK_REPLY",
		})
	}
	return map[string]any{
		"twilio/quick-reply": map[string]any{
			"body":    tpl.Body,
			"actions": actions,
		},
	}
}

// Client sends WhatsApp messages through the Twilio REST API.
type Client struct {
	http       *resty.Client
	accountSID string
	from       string
	cache      *TemplateCache
	log        zerolog.Logger
}

func NewClient(accountSID, authToken, from string, cache *TemplateCache, log zerolog.Logger) *Client {
	return &Client{
		http:       resty.New().SetBasicAuth(accountSID, authToken),
		accountSID: accountSID,
		from:       from,
		cache:      cache,
		log:        log,
	}
}

func waAddr(phone string) string {
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	return "whatsapp:" + phone
}

// SendText sends a plain text message and returns the message SID.
func (c *Client) SendText(ctx context.Context, phone, body string) (string, error) {
	return c.post(ctx, map[string]string{
		"To":   waAddr(phone),
		"From": c.from,
		"Body": body,
	})
}

// SendTemplate sends the named interactive template. If the template SID
// cannot be resolved or the interactive send fails, it degrades to the
// template's numbered plain-text fallback so the user is never left
// without a prompt.
func (c *Client) SendTemplate(ctx context.Context, phone, name string, vars map[string]string) (string, error) {
	tpl, ok := Catalog[name]
	if !ok {
		return "", errors.Errorf("unknown template %q", name)
	}
	sid, err := c.cache.SID(ctx, tpl)
	if err != nil {
		c.log.Warn().Err(err).Str("template", name).Msg("template unavailable, sending text fallback")
		return c.SendText(ctx, phone, tpl.Fallback(vars))
	}
	form := map[string]string{
		"To":         waAddr(phone),
		"From":       c.from,
		"ContentSid": sid,
	}
	if len(vars) > 0 {
		raw, _ := json.Marshal(vars)
		form["ContentVariables"] = string(raw)
	}
	msgSID, err := c.post(ctx, form)
	if err != nil {
		c.log.Warn().Err(err).Str("template", name).Msg("interactive send failed, sending text fallback")
		return c.SendText(ctx, phone, tpl.Fallback(vars))
	}
	return msgSID, nil
}

func (c *Client) post(ctx context.Context, form map[string]string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(fmt.Sprintf(messagesURL, c.accountSID))
	if err != nil {
		return "", errors.Wrap(err, "send message")
	}
	if resp.IsError() {
		return "", errors.Errorf("send message: status %d: %s", resp.StatusCode(), resp.Body())
	}
	return gjson.GetBytes(resp.Body(), "sid").String(), nil
}
