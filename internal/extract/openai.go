package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const chatCompletionsURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient is a minimal chat-completions client used for slot parsing.
type OpenAIClient struct {
	http  *resty.Client
	model string
}

// NewOpenAIClient returns nil when apiKey is empty so callers can wire the
// extractor without conditionals.
func NewOpenAIClient(apiKey, chatModel string) *OpenAIClient {
	if apiKey == "" {
		return nil
	}
	client := resty.New().
		SetTimeout(8 * time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &OpenAIClient{http: client, model: chatModel}
}

// ParseJSON sends one system+user message pair and returns the assistant's
// reply parsed as JSON. Markdown code fences around the reply are stripped.
func (c *OpenAIClient) ParseJSON(ctx context.Context, systemPrompt, userText string) (gjson.Result, error) {
	body := map[string]any{
		"model":       c.model,
		"temperature": 0,
		"max_tokens":  200,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userText},
		},
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(chatCompletionsURL)
	if err != nil {
		return gjson.Result{}, err
	}
	if resp.StatusCode() != 200 {
		return gjson.Result{}, fmt.Errorf("openai status %d: %.200s", resp.StatusCode(), resp.String())
	}
	content := gjson.GetBytes(resp.Body(), "choices.0.message.content").String()
	content = stripCodeFences(content)
	if !gjson.Valid(content) {
		return gjson.Result{}, fmt.Errorf("openai reply is not JSON: %.200s", content)
	}
	return gjson.Parse(content), nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// hebrewDays indexes time.Weekday to the Hebrew day name used in prompts.
var hebrewDays = [7]string{"ראשון", "שני", "שלישי", "רביעי", "חמישי", "שישי", "שבת"}

func promptHeader(now time.Time) string {
	return fmt.Sprintf("היום %s (יום %s). ", now.Format("2006-01-02"), hebrewDays[now.Weekday()])
}

func taskPrompt(now time.Time) string {
	return promptHeader(now) +
		"אתה מנתח טקסט בעברית שמתאר משימה. " +
		"החזר JSON בלבד עם השדות הבאים:\n" +
		`- "title": כותרת קצרה של המשימה (עד 80 תווים)` + "\n" +
		`- "due_date": תאריך יעד בפורמט YYYY-MM-DD או null` + "\n" +
		`- "due_time": שעה בפורמט HH:MM או null` + "\n" +
		`- "priority": "low"/"medium"/"high"/"urgent" (ברירת מחדל medium)` + "\n" +
		`- "assignee_name": שם של אדם אם מוזכר, או null` + "\n" +
		"החזר רק JSON תקין, בלי הסברים."
}

func meetingPrompt(now time.Time) string {
	return promptHeader(now) +
		"אתה מנתח טקסט בעברית שמתאר פגישה. " +
		"החזר JSON בלבד עם השדות הבאים:\n" +
		`- "title": נושא הפגישה (עד 80 תווים)` + "\n" +
		`- "date": תאריך בפורמט YYYY-MM-DD או null` + "\n" +
		`- "time": שעה בפורמט HH:MM או null` + "\n" +
		`- "location": מיקום או null` + "\n" +
		`- "participants": רשימת שמות משתתפים (מערך) או []` + "\n" +
		"החזר רק JSON תקין, בלי הסברים."
}

func autoPrompt(now time.Time) string {
	return promptHeader(now) +
		"אתה מנתח טקסט בעברית שמתאר משימה או פגישה.\n\n" +
		"אם זו משימה, החזר:\n" +
		`{"type": "task", "title": "כותרת קצרה (עד 80 תווים)", "due_date": "YYYY-MM-DD או null", ` +
		`"due_time": "HH:MM או null", "priority": "low/medium/high/urgent", "assignee_name": "שם או null"}` + "\n\n" +
		"אם זו פגישה, החזר:\n" +
		`{"type": "meeting", "title": "נושא (עד 80 תווים)", "date": "YYYY-MM-DD או null", ` +
		`"time": "HH:MM או null", "location": "מיקום או null", "participants": ["שמות"]}` + "\n\n" +
		"חשוב מאוד: אם מוזכרת המילה פגישה, תיאום, להיפגש, לתאם, meeting - זו תמיד פגישה!\n" +
		"פגישה: מוזכרים משתתפים, מיקום, נושא דיון, תיאום, פגישה, להיפגש, לתאם.\n" +
		"משימה: פעולה לביצוע, תזכורת, דד-ליין, צריך לעשות (ללא אזכור של פגישה/תיאום).\n" +
		"אם יש ספק - בדוק אם יש מילה שקשורה לפגישה. אם כן, סמן כ-meeting.\n" +
		"החזר רק JSON תקין, בלי הסברים."
}
