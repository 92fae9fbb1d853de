// Package sweeper runs the background jobs: the reminder sweep that
// turns due reminder rows into outbound cards, and the weekly summary.
// Both only read entity tables and flip statuses; conversation state is
// never touched, so the sweep is safe alongside live webhook traffic.
package sweeper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/services"
	"github.com/taskivo/taskivo/internal/store"
	"github.com/taskivo/taskivo/internal/wa"
)

// Sweeper fires due reminders on a fixed interval.
type Sweeper struct {
	reminders *services.Reminders
	msgLog    *services.MessageLog
	sender    wa.Sender
	log       zerolog.Logger
	now       func() time.Time
}

func New(reminders *services.Reminders, msgLog *services.MessageLog, sender wa.Sender, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		reminders: reminders,
		msgLog:    msgLog,
		sender:    sender,
		log:       log.With().Str("component", "sweeper").Logger(),
		now:       time.Now,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.log.Info().Dur("interval", interval).Msg("reminder sweep started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reminder sweep stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep sends every due reminder once. A reminder is marked sent even
// when the outbound send fails, so a broken channel cannot re-fire the
// same reminder every interval.
func (s *Sweeper) Sweep(ctx context.Context) {
	due, err := s.reminders.Due(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("due reminder query failed")
		return
	}
	for _, r := range due {
		body := reminderText(r)
		if _, err := s.sender.SendTemplate(ctx, r.PhoneNumber, wa.TplReminder, map[string]string{"1": body}); err != nil {
			s.log.Error().Err(err).Int64("reminder_id", r.ID).Msg("reminder send failed")
		} else {
			s.msgLog.Outgoing(ctx, r.UserID, "reminder", body)
		}
		s.reminders.MarkSent(ctx, r.ID)
	}
	if len(due) > 0 {
		s.log.Info().Int("count", len(due)).Msg("reminders dispatched")
	}
}

var priorityIcons = map[model.Priority]string{
	model.PriorityLow:    "🟢",
	model.PriorityMedium: "🟡",
	model.PriorityHigh:   "🟠",
	model.PriorityUrgent: "🔴",
}

func reminderText(r *model.DueReminder) string {
	icon := priorityIcons[r.Priority]
	if icon == "" {
		icon = priorityIcons[model.PriorityMedium]
	}
	msg := fmt.Sprintf("⏰ תזכורת!\n\n%s %s", icon, r.TaskTitle)
	if r.TaskDueDate != nil {
		msg += "\n📅 " + displayDate(*r.TaskDueDate)
	}
	if r.TaskDueTime != nil {
		msg += " 🕐 " + *r.TaskDueTime
	}
	return msg
}

func displayDate(iso string) string {
	if len(iso) != 10 {
		return iso
	}
	return iso[8:10] + "/" + iso[5:7] + "/" + iso[0:4]
}

// WeeklySummary sends each opted-in user a snapshot of the week ahead on
// their chosen day.
type WeeklySummary struct {
	store  store.Store
	tasks  *services.Tasks
	sender wa.Sender
	log    zerolog.Logger
	day    int // time.Weekday numbering, 0 = Sunday
	hour   int
	now    func() time.Time
}

func NewWeeklySummary(st store.Store, tasks *services.Tasks, sender wa.Sender, log zerolog.Logger, day, hour int) *WeeklySummary {
	return &WeeklySummary{
		store:  st,
		tasks:  tasks,
		sender: sender,
		log:    log.With().Str("component", "weekly_summary").Logger(),
		day:    day,
		hour:   hour,
		now:    time.Now,
	}
}

// Run checks hourly whether the summary window has arrived; sends at most
// once per process per week.
func (w *WeeklySummary) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	var lastSent string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := w.now()
			year, wk := now.ISOWeek()
			week := fmt.Sprintf("%d-%02d", year, wk)
			if int(now.Weekday()) != w.day || now.Hour() != w.hour || week == lastSent {
				continue
			}
			w.SendAll(ctx)
			lastSent = week
		}
	}
}

// SendAll composes and sends the summary for every opted-in user.
func (w *WeeklySummary) SendAll(ctx context.Context) {
	users, err := w.store.Users().ListWeeklySummaryOptIns(ctx, w.day)
	if err != nil {
		w.log.Error().Err(err).Msg("weekly summary opt-in query failed")
		return
	}
	for _, u := range users {
		body, err := w.compose(ctx, u)
		if err != nil {
			w.log.Error().Err(err).Int64("user_id", u.ID).Msg("weekly summary compose failed")
			continue
		}
		if _, err := w.sender.SendText(ctx, u.PhoneNumber, body); err != nil {
			w.log.Error().Err(err).Int64("user_id", u.ID).Msg("weekly summary send failed")
		}
	}
	if len(users) > 0 {
		w.log.Info().Int("count", len(users)).Msg("weekly summaries sent")
	}
}

func (w *WeeklySummary) compose(ctx context.Context, u *model.User) (string, error) {
	from := w.now().Format("2006-01-02")
	to := w.now().AddDate(0, 0, 7).Format("2006-01-02")
	upcoming, err := w.store.Tasks().DueBetween(ctx, u.ID, from, to)
	if err != nil {
		return "", err
	}
	overdue, err := w.store.Tasks().Overdue(ctx, u.ID, from)
	if err != nil {
		return "", err
	}
	stats, err := w.tasks.Stats(ctx, u.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("📊 הסיכום השבועי שלך\n\n")
	if len(overdue) > 0 {
		fmt.Fprintf(&b, "⚠️ %d משימות באיחור:\n", len(overdue))
		for _, t := range overdue {
			fmt.Fprintf(&b, "%s %s\n", priorityIcons[t.Priority], t.Title)
		}
		b.WriteString("\n")
	}
	if len(upcoming) > 0 {
		b.WriteString("📅 השבוע הקרוב:\n")
		for _, t := range upcoming {
			line := fmt.Sprintf("%s %s", priorityIcons[t.Priority], t.Title)
			if t.DueDate != nil {
				line += " — " + displayDate(*t.DueDate)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("🎉 אין משימות מתוכננות לשבוע הקרוב\n\n")
	}
	fmt.Fprintf(&b, "✅ הושלמו: %d | ⏳ פתוחות: %d", stats.CompletedCount, stats.ActiveCount)
	return b.String(), nil
}
