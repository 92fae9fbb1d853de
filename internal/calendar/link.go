// Package calendar builds Google Calendar deep links for scheduled
// meetings. No OAuth; the link opens a prefilled event-creation page.
package calendar

import (
	"net/url"
	"time"
)

const renderURL = "https://calendar.google.com/calendar/render"

// EventLink returns a prefilled event-creation link. startTime may be
// empty, in which case an all-day event on date is produced. A meeting
// without an explicit end time defaults to one hour.
func EventLink(title, date, startTime, endTime, location, details string) (string, error) {
	var dates string
	if startTime == "" {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return "", err
		}
		dates = d.Format("20060102") + "/" + d.AddDate(0, 0, 1).Format("20060102")
	} else {
		start, err := time.Parse("2006-01-02 15:04", date+" "+startTime)
		if err != nil {
			return "", err
		}
		end := start.Add(time.Hour)
		if endTime != "" {
			if e, err := time.Parse("2006-01-02 15:04", date+" "+endTime); err == nil && e.After(start) {
				end = e
			}
		}
		dates = start.Format("20060102T150405") + "/" + end.Format("20060102T150405")
	}

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", title)
	q.Set("dates", dates)
	if location != "" {
		q.Set("location", location)
	}
	if details != "" {
		q.Set("details", details)
	}
	return renderURL + "?" + q.Encode(), nil
}
