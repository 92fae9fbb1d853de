package flow

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts accepted for typed dates, tried in order.
var dateLayouts = []string{"02/01/2006", "2006-01-02", "02.01.2006", "02-01-2006"}

var dayMonthRe = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})$`)

// parseDate turns a typed date into YYYY-MM-DD. Accepts the common
// numeric formats, day/month without a year (resolved to the next future
// occurrence), and the today/tomorrow keywords in both locales.
func parseDate(text string, now time.Time) (string, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", false
	}
	switch strings.ToLower(s) {
	case "היום", "today":
		return now.Format("2006-01-02"), true
	case "מחר", "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02"), true
		}
	}
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		d, err := time.Parse("2/1/2006", m[1]+"/"+m[2]+"/"+now.Format("2006"))
		if err != nil {
			return "", false
		}
		today, _ := time.Parse("2006-01-02", now.Format("2006-01-02"))
		if d.Before(today) {
			d = d.AddDate(1, 0, 0)
		}
		return d.Format("2006-01-02"), true
	}
	return "", false
}

// endOfWeek is the quick-pick "this week" target: the coming Friday, or
// a week ahead when today already is Friday.
func endOfWeek(now time.Time) string {
	days := (int(time.Friday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days).Format("2006-01-02")
}

var timeRe = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// parseClock validates a typed HH:MM and returns it zero-padded.
func parseClock(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if !timeRe.MatchString(s) {
		return "", false
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", false
	}
	return t.Format("15:04"), true
}
