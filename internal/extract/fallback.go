package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/taskivo/taskivo/internal/model"
)

// Deterministic parser used when the AI backend is missing, errors, or
// times out. English keywords match on \b word boundaries; Hebrew has no
// ASCII word characters, so Hebrew keywords match by substring.

var priorityPatterns = []struct {
	level model.Priority
	re    *regexp.Regexp
}{
	{model.PriorityUrgent, regexp.MustCompile(`(?i)\b(urgent|urgently|asap|immediately|critical)\b`)},
	{model.PriorityHigh, regexp.MustCompile(`(?i)\b(important|high priority|crucial|essential)\b`)},
	{model.PriorityLow, regexp.MustCompile(`(?i)\b(low priority|whenever|no rush|not urgent|eventually)\b`)},
}

var hebrewPriority = []struct {
	level model.Priority
	word  string
}{
	{model.PriorityUrgent, "דחוף"},
	{model.PriorityHigh, "חשוב"},
}

func fallbackPriority(text string) model.Priority {
	for _, p := range priorityPatterns {
		if p.re.MatchString(text) {
			return p.level
		}
	}
	for _, p := range hebrewPriority {
		if strings.Contains(text, p.word) {
			return p.level
		}
	}
	return model.PriorityMedium
}

type englishDateRule struct {
	re     *regexp.Regexp
	target func(today time.Time) time.Time
}

var englishDateRules = []englishDateRule{
	{regexp.MustCompile(`(?i)\bday after tomorrow\b`), func(t time.Time) time.Time { return t.AddDate(0, 0, 2) }},
	{regexp.MustCompile(`(?i)\btomorrow\b`), func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
	{regexp.MustCompile(`(?i)\btoday\b`), func(t time.Time) time.Time { return t }},
	{regexp.MustCompile(`(?i)\bnext week\b`), func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }},
	{regexp.MustCompile(`(?i)\bnext monday\b`), nextWeekdayFn(time.Monday)},
	{regexp.MustCompile(`(?i)\bnext tuesday\b`), nextWeekdayFn(time.Tuesday)},
	{regexp.MustCompile(`(?i)\bnext wednesday\b`), nextWeekdayFn(time.Wednesday)},
	{regexp.MustCompile(`(?i)\bnext thursday\b`), nextWeekdayFn(time.Thursday)},
	{regexp.MustCompile(`(?i)\bnext friday\b`), nextWeekdayFn(time.Friday)},
	{regexp.MustCompile(`(?i)\bnext saturday\b`), nextWeekdayFn(time.Saturday)},
	{regexp.MustCompile(`(?i)\bnext sunday\b`), nextWeekdayFn(time.Sunday)},
}

type hebrewDateRule struct {
	word   string
	target func(today time.Time) time.Time
}

// Order matters: מחרתיים contains מחר.
var hebrewDateRules = []hebrewDateRule{
	{"מחרתיים", func(t time.Time) time.Time { return t.AddDate(0, 0, 2) }},
	{"מחר", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
	{"היום", func(t time.Time) time.Time { return t }},
	{"ביום ראשון", nextWeekdayFn(time.Sunday)},
	{"ביום שני", nextWeekdayFn(time.Monday)},
	{"ביום שלישי", nextWeekdayFn(time.Tuesday)},
	{"ביום רביעי", nextWeekdayFn(time.Wednesday)},
	{"ביום חמישי", nextWeekdayFn(time.Thursday)},
	{"ביום שישי", nextWeekdayFn(time.Friday)},
	{"בשבת", nextWeekdayFn(time.Saturday)},
}

func nextWeekdayFn(wd time.Weekday) func(time.Time) time.Time {
	return func(today time.Time) time.Time {
		days := (int(wd) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days)
	}
}

var (
	isoDateRe   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	clockRe     = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
)

func fallbackDate(text string, now time.Time) *string {
	for _, r := range englishDateRules {
		if r.re.MatchString(text) {
			d := r.target(now).Format("2006-01-02")
			return &d
		}
	}
	for _, r := range hebrewDateRules {
		if strings.Contains(text, r.word) {
			d := r.target(now).Format("2006-01-02")
			return &d
		}
	}
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if _, err := time.Parse("2006-01-02", m[1]); err == nil {
			return &m[1]
		}
	}
	if m := slashDateRe.FindStringSubmatch(text); m != nil {
		d, err := time.Parse("2/1/2006", m[1]+"/"+m[2]+"/"+m[3])
		if err == nil {
			s := d.Format("2006-01-02")
			return &s
		}
	}
	return nil
}

func fallbackTime(text string) *string {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	t, err := time.Parse("15:04", m[0])
	if err != nil {
		return nil
	}
	s := t.Format("15:04")
	return &s
}

var fillerPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(remind me to|remind me|please remind me to)\s+`),
	regexp.MustCompile(`(?i)^(i need to|i have to|i want to|i should)\s+`),
	regexp.MustCompile(`(?i)^(create a task to|add a task to|add task)\s+`),
	regexp.MustCompile(`(?i)^(task|note|reminder)[:\s]+`),
	regexp.MustCompile(`^(תזכיר לי ל|תזכיר לי |צריך ל|אני צריך ל|משימה[:\s]+)`),
}

var sentenceEndRe = regexp.MustCompile(`[.!?\n]`)

// fallbackTitle strips leading filler phrases, cuts at the first sentence
// boundary, and clamps to 80 characters.
func fallbackTitle(text string) string {
	title := strings.TrimSpace(text)
	for _, re := range fillerPrefixes {
		title = re.ReplaceAllString(title, "")
	}
	if loc := sentenceEndRe.FindStringIndex(title); loc != nil {
		title = title[:loc[0]]
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(text)
	}
	return clampTitle(title)
}

func clampTitle(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= 80 {
		return string(r)
	}
	return string(r[:77]) + "..."
}

func fallbackTask(text string, now time.Time) TaskSlots {
	return TaskSlots{
		Title:    fallbackTitle(text),
		DueDate:  fallbackDate(text, now),
		DueTime:  fallbackTime(text),
		Priority: fallbackPriority(text),
	}
}

func fallbackMeeting(text string, now time.Time) MeetingSlots {
	return MeetingSlots{
		Title: fallbackTitle(text),
		Date:  fallbackDate(text, now),
		Time:  fallbackTime(text),
	}
}
