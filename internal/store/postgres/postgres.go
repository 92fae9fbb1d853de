// Package postgres is the production store driver, using the pgx stdlib
// adapter over database/sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

// Bootstrap opens dsn and applies the schema. Safe to run repeatedly.
func Bootstrap(ctx context.Context, dsn string) error {
	db, err := Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, schema)
	return err
}

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users                 { return &users{db: s.db} }
func (s *pgStore) Tasks() store.Tasks                 { return &tasks{db: s.db} }
func (s *pgStore) Meetings() store.Meetings           { return &meetings{db: s.db} }
func (s *pgStore) Delegations() store.Delegations     { return &delegations{db: s.db} }
func (s *pgStore) Reminders() store.Reminders         { return &reminders{db: s.db} }
func (s *pgStore) Conversations() store.Conversations { return &conversations{db: s.db} }
func (s *pgStore) MessageLog() store.MessageLog       { return &messageLog{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	// 23505 = unique_violation
	if strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key") {
		return fmt.Errorf("%w: %s", model.ErrConflict, err.Error())
	}
	return err
}

// --- Users ---

type users struct{ db *sql.DB }

const userCols = `id, phone_number, name, email, whatsapp_verified, language, time_zone,
    notification_preferences, weekly_summary_enabled, weekly_summary_day, creation_time, last_active_time`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.PhoneNumber, &u.Name, &u.Email, &u.WhatsAppVerified,
		&u.Language, &u.TimeZone, &u.NotificationPref, &u.WeeklySummary,
		&u.WeeklySummaryDay, &u.CreationTime, &u.LastActiveTime); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *users) Create(ctx context.Context, u *model.User) (*model.User, error) {
	out := *u
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO users (phone_number, name, email, whatsapp_verified, language, time_zone,
            notification_preferences, weekly_summary_enabled, weekly_summary_day)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, creation_time`,
		u.PhoneNumber, u.Name, u.Email, u.WhatsAppVerified, u.Language, u.TimeZone,
		u.NotificationPref, u.WeeklySummary, u.WeeklySummaryDay)
	if err := row.Scan(&out.ID, &out.CreationTime); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (s *users) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id=$1`, userID))
}

func (s *users) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE phone_number=$1`, phone))
}

func (s *users) List(ctx context.Context) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users ORDER BY creation_time`)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]*model.User, error) {
	defer func() { _ = rows.Close() }()
	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *users) Update(ctx context.Context, u *model.User) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE users SET name=$1, email=$2, whatsapp_verified=$3, language=$4, time_zone=$5,
            notification_preferences=$6, weekly_summary_enabled=$7, weekly_summary_day=$8
        WHERE id=$9`,
		u.Name, u.Email, u.WhatsAppVerified, u.Language, u.TimeZone,
		u.NotificationPref, u.WeeklySummary, u.WeeklySummaryDay, u.ID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *users) TouchLastActive(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_active_time=$1 WHERE id=$2`, at.UTC(), userID)
	return err
}

func (s *users) ListWeeklySummaryOptIns(ctx context.Context, day int) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users WHERE weekly_summary_enabled AND weekly_summary_day=$1`, day)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

// --- Tasks ---

type tasks struct{ db *sql.DB }

const taskCols = `id, user_id, title, description, task_type, status, priority, category,
    due_date, due_time, created_via, voice_transcript, creation_time, completed_time, update_time`

func scanTask(row interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Type, &t.Status,
		&t.Priority, &t.Category, &t.DueDate, &t.DueTime, &t.CreatedVia,
		&t.VoiceTranscript, &t.CreationTime, &t.CompletedTime, &t.UpdateTime); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]*model.Task, error) {
	defer func() { _ = rows.Close() }()
	var out []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *tasks) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	if t.Title == "" {
		return nil, fmt.Errorf("%w: task title is empty", model.ErrValidation)
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Type == "" {
		t.Type = model.TaskToday
	}
	if t.Category == "" {
		t.Category = "general"
	}
	out := *t
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO tasks (user_id, title, description, task_type, status, priority, category,
            due_date, due_time, created_via, voice_transcript)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, creation_time, update_time`,
		t.UserID, t.Title, t.Description, t.Type, t.Status, t.Priority, t.Category,
		t.DueDate, t.DueTime, t.CreatedVia, t.VoiceTranscript)
	if err := row.Scan(&out.ID, &out.CreationTime, &out.UpdateTime); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (s *tasks) GetByID(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE id=$1 AND user_id=$2`, taskID, userID))
}

func (s *tasks) List(ctx context.Context, userID int64, f model.TaskFilter) ([]*model.Task, error) {
	q := `SELECT ` + taskCols + ` FROM tasks WHERE user_id=$1`
	args := []any{userID}
	n := 2
	add := func(clause string, v any) {
		q += fmt.Sprintf(clause, n)
		args = append(args, v)
		n++
	}
	if f.Status != nil {
		add(` AND status=$%d`, *f.Status)
	}
	if f.Type != nil {
		add(` AND task_type=$%d`, *f.Type)
	}
	if f.Category != nil {
		add(` AND category=$%d`, *f.Category)
	}
	if f.DueDate != nil {
		add(` AND due_date=$%d`, *f.DueDate)
	}
	if f.Search != nil {
		q += fmt.Sprintf(` AND (title ILIKE $%d OR description ILIKE $%d)`, n, n)
		args = append(args, "%"+*f.Search+"%")
		n++
	}
	q += ` ORDER BY creation_time DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

func (s *tasks) Update(ctx context.Context, t *model.Task) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE tasks SET title=$1, description=$2, task_type=$3, status=$4, priority=$5,
            category=$6, due_date=$7, due_time=$8, update_time=now()
        WHERE id=$9 AND user_id=$10`,
		t.Title, t.Description, t.Type, t.Status, t.Priority, t.Category,
		t.DueDate, t.DueTime, t.ID, t.UserID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *tasks) SetStatus(ctx context.Context, userID, taskID int64, status model.TaskStatus, at time.Time) (*model.Task, error) {
	var completed any
	if status == model.StatusCompleted {
		completed = at.UTC()
	}
	row := s.db.QueryRowContext(ctx, `
        UPDATE tasks SET status=$1, completed_time=$2, update_time=$3
        WHERE id=$4 AND user_id=$5
        RETURNING `+taskCols,
		status, completed, at.UTC(), taskID, userID)
	return scanTask(row)
}

func (s *tasks) Delete(ctx context.Context, userID, taskID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id=$1 AND user_id=$2`, taskID, userID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *tasks) DueOn(ctx context.Context, userID int64, date string) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+taskCols+` FROM tasks
        WHERE user_id=$1 AND due_date=$2 AND status NOT IN ('completed','cancelled')
        ORDER BY due_time NULLS LAST`, userID, date)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

func (s *tasks) Overdue(ctx context.Context, userID int64, today string) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+taskCols+` FROM tasks
        WHERE user_id=$1 AND due_date < $2 AND status NOT IN ('completed','cancelled')
        ORDER BY due_date`, userID, today)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

func (s *tasks) DueBetween(ctx context.Context, userID int64, fromDate, toDate string) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+taskCols+` FROM tasks
        WHERE user_id=$1 AND due_date >= $2 AND due_date <= $3
          AND status NOT IN ('completed','cancelled')
        ORDER BY due_date, due_time NULLS LAST`, userID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

func (s *tasks) Stats(ctx context.Context, userID int64) (*model.TaskStats, error) {
	var st model.TaskStats
	today := time.Now().UTC().Format("2006-01-02")
	row := s.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*) FILTER (WHERE status IN ('pending','in_progress')),
            COUNT(*) FILTER (WHERE status = 'completed'),
            COUNT(*) FILTER (WHERE status NOT IN ('completed','cancelled') AND due_date < $1),
            COUNT(*) FILTER (WHERE task_type = 'delegated' AND status NOT IN ('completed','cancelled'))
        FROM tasks WHERE user_id=$2`, today, userID)
	if err := row.Scan(&st.ActiveCount, &st.CompletedCount, &st.OverdueCount, &st.DelegatedCount); err != nil {
		return nil, mapErr(err)
	}
	return &st, nil
}

// --- Meetings ---

type meetings struct{ db *sql.DB }

const meetingCols = `id, task_id, organizer_id, title, description, meeting_date, start_time, end_time, location, status`

func scanMeeting(row interface{ Scan(...any) error }) (*model.Meeting, error) {
	var m model.Meeting
	if err := row.Scan(&m.ID, &m.TaskID, &m.OrganizerID, &m.Title, &m.Description,
		&m.Date, &m.StartTime, &m.EndTime, &m.Location, &m.Status); err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func scanMeetings(rows *sql.Rows) ([]*model.Meeting, error) {
	defer func() { _ = rows.Close() }()
	var out []*model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *meetings) Create(ctx context.Context, m *model.Meeting) (*model.Meeting, error) {
	if m.Title == "" || m.Date == "" {
		return nil, fmt.Errorf("%w: meeting needs title and date", model.ErrValidation)
	}
	out := *m
	out.Status = model.MeetingScheduled
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO meetings (task_id, organizer_id, title, description, meeting_date,
            start_time, end_time, location)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`,
		m.TaskID, m.OrganizerID, m.Title, m.Description, m.Date,
		m.StartTime, m.EndTime, m.Location)
	if err := row.Scan(&out.ID); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (s *meetings) GetByID(ctx context.Context, meetingID int64) (*model.Meeting, error) {
	return scanMeeting(s.db.QueryRowContext(ctx,
		`SELECT `+meetingCols+` FROM meetings WHERE id=$1`, meetingID))
}

func (s *meetings) GetByTask(ctx context.Context, taskID int64) (*model.Meeting, error) {
	return scanMeeting(s.db.QueryRowContext(ctx,
		`SELECT `+meetingCols+` FROM meetings WHERE task_id=$1`, taskID))
}

func (s *meetings) ListByOrganizer(ctx context.Context, userID int64) ([]*model.Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+meetingCols+` FROM meetings WHERE organizer_id=$1 ORDER BY meeting_date, start_time`, userID)
	if err != nil {
		return nil, err
	}
	return scanMeetings(rows)
}

func (s *meetings) Between(ctx context.Context, userID int64, fromDate, toDate string) ([]*model.Meeting, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+meetingCols+` FROM meetings
        WHERE organizer_id=$1 AND meeting_date >= $2 AND meeting_date <= $3 AND status='scheduled'
        ORDER BY meeting_date, start_time`, userID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return scanMeetings(rows)
}

func (s *meetings) SetStatus(ctx context.Context, meetingID int64, status model.MeetingStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET status=$1 WHERE id=$2`, status, meetingID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *meetings) AddParticipant(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	out := *p
	out.Status = model.ParticipantPending
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO meeting_participants (meeting_id, phone_number, name, notified_time)
        VALUES ($1,$2,$3,$4)
        RETURNING id`,
		p.MeetingID, p.PhoneNumber, p.Name, p.NotifiedTime)
	if err := row.Scan(&out.ID); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (s *meetings) ListParticipants(ctx context.Context, meetingID int64) ([]*model.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, meeting_id, phone_number, name, status, notified_time, responded_time
        FROM meeting_participants WHERE meeting_id=$1 ORDER BY id`, meetingID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.MeetingID, &p.PhoneNumber, &p.Name, &p.Status,
			&p.NotifiedTime, &p.RespondedTime); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *meetings) UpdateParticipantStatus(ctx context.Context, meetingID int64, phone string, status model.ParticipantStatus, at time.Time) (*model.Participant, error) {
	var p model.Participant
	row := s.db.QueryRowContext(ctx, `
        UPDATE meeting_participants SET status=$1, responded_time=$2
        WHERE meeting_id=$3 AND phone_number=$4
        RETURNING id, meeting_id, phone_number, name, status, notified_time, responded_time`,
		status, at.UTC(), meetingID, phone)
	if err := row.Scan(&p.ID, &p.MeetingID, &p.PhoneNumber, &p.Name, &p.Status,
		&p.NotifiedTime, &p.RespondedTime); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *meetings) LatestInviteFor(ctx context.Context, phone string) (*model.Meeting, error) {
	return scanMeeting(s.db.QueryRowContext(ctx, `
        SELECT m.id, m.task_id, m.organizer_id, m.title, m.description, m.meeting_date,
            m.start_time, m.end_time, m.location, m.status
        FROM meetings m
        JOIN meeting_participants p ON p.meeting_id = m.id
        WHERE p.phone_number=$1 AND p.status='pending' AND m.status='scheduled'
        ORDER BY p.id DESC LIMIT 1`, phone))
}

// --- Delegations ---

type delegations struct{ db *sql.DB }

const delegationCols = `id, task_id, delegator_id, assignee_phone, assignee_name, status,
    sent_time, accepted_time, completed_time, follow_up_count`

func scanDelegation(row interface{ Scan(...any) error }) (*model.Delegation, error) {
	var d model.Delegation
	if err := row.Scan(&d.ID, &d.TaskID, &d.DelegatorID, &d.AssigneePhone, &d.AssigneeName,
		&d.Status, &d.SentTime, &d.AcceptedTime, &d.CompletedTime, &d.FollowUpCount); err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (s *delegations) Create(ctx context.Context, d *model.Delegation) (*model.Delegation, error) {
	if d.AssigneePhone == "" {
		return nil, fmt.Errorf("%w: assignee phone is empty", model.ErrValidation)
	}
	out := *d
	out.Status = model.DelegationPending
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO delegations (task_id, delegator_id, assignee_phone, assignee_name)
        VALUES ($1,$2,$3,$4)
        RETURNING id`,
		d.TaskID, d.DelegatorID, d.AssigneePhone, d.AssigneeName)
	if err := row.Scan(&out.ID); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (s *delegations) GetByID(ctx context.Context, delegationID int64) (*model.Delegation, error) {
	return scanDelegation(s.db.QueryRowContext(ctx,
		`SELECT `+delegationCols+` FROM delegations WHERE id=$1`, delegationID))
}

func (s *delegations) ListByDelegator(ctx context.Context, userID int64) ([]*model.Delegation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+delegationCols+` FROM delegations WHERE delegator_id=$1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Delegation
	for rows.Next() {
		d, err := scanDelegation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *delegations) LatestForAssignee(ctx context.Context, phone string) (*model.Delegation, error) {
	return scanDelegation(s.db.QueryRowContext(ctx, `
        SELECT `+delegationCols+` FROM delegations
        WHERE assignee_phone=$1 AND status=$2 ORDER BY id DESC LIMIT 1`,
		phone, model.DelegationPending))
}

func (s *delegations) MarkSent(ctx context.Context, delegationID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE delegations SET sent_time=$1 WHERE id=$2`, at.UTC(), delegationID)
	return err
}

func (s *delegations) UpdateStatus(ctx context.Context, delegationID int64, status model.DelegationStatus, at time.Time) (*model.Delegation, error) {
	var row *sql.Row
	switch status {
	case model.DelegationAccepted:
		row = s.db.QueryRowContext(ctx, `
            UPDATE delegations SET status=$1, accepted_time=$2 WHERE id=$3
            RETURNING `+delegationCols, status, at.UTC(), delegationID)
	case model.DelegationCompleted:
		row = s.db.QueryRowContext(ctx, `
            UPDATE delegations SET status=$1, completed_time=$2 WHERE id=$3
            RETURNING `+delegationCols, status, at.UTC(), delegationID)
	default:
		row = s.db.QueryRowContext(ctx, `
            UPDATE delegations SET status=$1 WHERE id=$2
            RETURNING `+delegationCols, status, delegationID)
	}
	return scanDelegation(row)
}

// --- Reminders ---

type reminders struct{ db *sql.DB }

const reminderCols = `id, task_id, user_id, reminder_type, scheduled_time, sent_time, status, message_template`

func scanReminder(row interface{ Scan(...any) error }) (*model.Reminder, error) {
	var r model.Reminder
	if err := row.Scan(&r.ID, &r.TaskID, &r.UserID, &r.Type, &r.ScheduledTime,
		&r.SentTime, &r.Status, &r.Template); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

func scanReminders(rows *sql.Rows) ([]*model.Reminder, error) {
	defer func() { _ = rows.Close() }()
	var out []*model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *reminders) Create(ctx context.Context, r *model.Reminder) (*model.Reminder, error) {
	out := *r
	out.Status = model.ReminderPending
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO reminders (task_id, user_id, reminder_type, scheduled_time, message_template)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`,
		r.TaskID, r.UserID, r.Type, r.ScheduledTime.UTC(), r.Template)
	if err := row.Scan(&out.ID); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (s *reminders) ListByTask(ctx context.Context, taskID int64) ([]*model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderCols+` FROM reminders WHERE task_id=$1 ORDER BY scheduled_time`, taskID)
	if err != nil {
		return nil, err
	}
	return scanReminders(rows)
}

func (s *reminders) ListByUser(ctx context.Context, userID int64, status *model.ReminderStatus) ([]*model.Reminder, error) {
	q := `SELECT ` + reminderCols + ` FROM reminders WHERE user_id=$1`
	args := []any{userID}
	if status != nil {
		q += ` AND status=$2`
		args = append(args, *status)
	}
	q += ` ORDER BY scheduled_time`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanReminders(rows)
}

func (s *reminders) Due(ctx context.Context, now time.Time) ([]*model.DueReminder, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.id, r.task_id, r.user_id, r.reminder_type, r.scheduled_time, r.sent_time,
               r.status, r.message_template,
               t.title, t.due_date, t.due_time, t.status, t.priority,
               u.phone_number, u.name, u.language
        FROM reminders r
        JOIN tasks t ON t.id = r.task_id
        JOIN users u ON u.id = r.user_id
        WHERE r.status = 'pending' AND r.scheduled_time <= $1
          AND t.status NOT IN ('completed','cancelled')
        ORDER BY r.scheduled_time`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.DueReminder
	for rows.Next() {
		var d model.DueReminder
		if err := rows.Scan(&d.ID, &d.TaskID, &d.UserID, &d.Type, &d.ScheduledTime,
			&d.SentTime, &d.Status, &d.Template,
			&d.TaskTitle, &d.TaskDueDate, &d.TaskDueTime, &d.TaskStatus, &d.Priority,
			&d.PhoneNumber, &d.UserName, &d.Language); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *reminders) MarkSent(ctx context.Context, reminderID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET status='sent', sent_time=$1 WHERE id=$2`, at.UTC(), reminderID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *reminders) LatestSent(ctx context.Context, userID int64) (*model.Reminder, error) {
	return scanReminder(s.db.QueryRowContext(ctx, `
        SELECT `+reminderCols+` FROM reminders
        WHERE user_id=$1 AND status='sent' ORDER BY sent_time DESC NULLS LAST, id DESC LIMIT 1`, userID))
}

func (s *reminders) Snooze(ctx context.Context, reminderID int64, until time.Time) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE reminders SET status='pending', scheduled_time=$1, sent_time=NULL
        WHERE id=$2 AND status='sent'`, until.UTC(), reminderID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *reminders) Cancel(ctx context.Context, userID, reminderID int64) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE reminders SET status='cancelled' WHERE id=$1 AND user_id=$2 AND status='pending'`,
		reminderID, userID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *reminders) CancelForTask(ctx context.Context, taskID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET status='cancelled' WHERE task_id=$1 AND status='pending'`, taskID)
	return err
}

// --- Conversations ---

type conversations struct{ db *sql.DB }

func (s *conversations) Get(ctx context.Context, userID int64) (*model.ConversationState, error) {
	var c model.ConversationState
	var flow string
	var data string
	row := s.db.QueryRowContext(ctx, `
        SELECT user_id, current_flow, flow_data, started_time, last_interaction
        FROM conversations WHERE user_id=$1`, userID)
	if err := row.Scan(&c.UserID, &flow, &data, &c.StartedTime, &c.LastInteraction); err != nil {
		return nil, mapErr(err)
	}
	c.FlowName = &flow
	c.FlowData = []byte(data)
	return &c, nil
}

func (s *conversations) Set(ctx context.Context, userID int64, flowName string, flowData []byte, at time.Time) error {
	if len(flowData) == 0 {
		flowData = []byte("{}")
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO conversations (user_id, current_flow, flow_data, started_time, last_interaction)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (user_id) DO UPDATE SET
            current_flow=excluded.current_flow,
            flow_data=excluded.flow_data,
            last_interaction=excluded.last_interaction`,
		userID, flowName, string(flowData), at.UTC(), at.UTC())
	return mapErr(err)
}

func (s *conversations) Clear(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE user_id=$1`, userID)
	return err
}

// --- Message log ---

type messageLog struct{ db *sql.DB }

func (s *messageLog) Append(ctx context.Context, e *model.MessageLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO message_log (user_id, direction, message_type, content, voice_duration, transcription)
        VALUES ($1,$2,$3,$4,$5,$6)`,
		e.UserID, e.Direction, e.MessageType, e.Content, e.VoiceDuration, e.Transcription)
	return mapErr(err)
}

func (s *messageLog) ListRecent(ctx context.Context, userID int64, limit int) ([]*model.MessageLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, direction, message_type, content, voice_duration, transcription, creation_time
        FROM message_log WHERE user_id=$1 ORDER BY id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.MessageLogEntry
	for rows.Next() {
		var e model.MessageLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Direction, &e.MessageType, &e.Content,
			&e.VoiceDuration, &e.Transcription, &e.CreationTime); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
