// Package sqlite is the default store driver, used for local deployments
// and for tests (in-memory databases).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/store"
)

// Open opens (or creates) a SQLite database at path and applies the schema.
// Pass ":memory:" for an ephemeral database.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc's driver is not safe for concurrent writers over pooled
	// connections; a single connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens path and wraps it in a store.Store.
func New(path string) (store.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB constructs a SQLite store over an existing connection.
func NewWithDB(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Users() store.Users               { return &users{db: s.db} }
func (s *sqliteStore) Tasks() store.Tasks               { return &tasks{db: s.db} }
func (s *sqliteStore) Meetings() store.Meetings         { return &meetings{db: s.db} }
func (s *sqliteStore) Delegations() store.Delegations   { return &delegations{db: s.db} }
func (s *sqliteStore) Reminders() store.Reminders       { return &reminders{db: s.db} }
func (s *sqliteStore) Conversations() store.Conversations { return &conversations{db: s.db} }
func (s *sqliteStore) MessageLog() store.MessageLog     { return &messageLog{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
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
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO users (phone_number, name, email, whatsapp_verified, language, time_zone,
            notification_preferences, weekly_summary_enabled, weekly_summary_day, creation_time)
        VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.PhoneNumber, u.Name, u.Email, u.WhatsAppVerified, u.Language, u.TimeZone,
		u.NotificationPref, u.WeeklySummary, u.WeeklySummaryDay, now)
	if err != nil {
		return nil, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *u
	out.ID = id
	out.CreationTime = now
	return &out, nil
}

func (s *users) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = ?`, userID))
}

func (s *users) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE phone_number = ?`, phone))
}

func (s *users) List(ctx context.Context) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users ORDER BY creation_time`)
	if err != nil {
		return nil, err
	}
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
        UPDATE users SET name=?, email=?, whatsapp_verified=?, language=?, time_zone=?,
            notification_preferences=?, weekly_summary_enabled=?, weekly_summary_day=?
        WHERE id=?`,
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
		`UPDATE users SET last_active_time=? WHERE id=?`, at.UTC(), userID)
	return err
}

func (s *users) ListWeeklySummaryOptIns(ctx context.Context, day int) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users WHERE weekly_summary_enabled=1 AND weekly_summary_day=?`, day)
	if err != nil {
		return nil, err
	}
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

func (s *tasks) scanAll(rows *sql.Rows) ([]*model.Task, error) {
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
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO tasks (user_id, title, description, task_type, status, priority, category,
            due_date, due_time, created_via, voice_transcript, creation_time, update_time)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.UserID, t.Title, t.Description, t.Type, t.Status, t.Priority, t.Category,
		t.DueDate, t.DueTime, t.CreatedVia, t.VoiceTranscript, now, now)
	if err != nil {
		return nil, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *t
	out.ID = id
	out.CreationTime = now
	out.UpdateTime = now
	return &out, nil
}

func (s *tasks) GetByID(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE id=? AND user_id=?`, taskID, userID))
}

func (s *tasks) List(ctx context.Context, userID int64, f model.TaskFilter) ([]*model.Task, error) {
	q := `SELECT ` + taskCols + ` FROM tasks WHERE user_id=?`
	args := []any{userID}
	if f.Status != nil {
		q += ` AND status=?`
		args = append(args, *f.Status)
	}
	if f.Type != nil {
		q += ` AND task_type=?`
		args = append(args, *f.Type)
	}
	if f.Category != nil {
		q += ` AND category=?`
		args = append(args, *f.Category)
	}
	if f.DueDate != nil {
		q += ` AND due_date=?`
		args = append(args, *f.DueDate)
	}
	if f.Search != nil {
		q += ` AND (title LIKE ? OR description LIKE ?)`
		pat := "%" + *f.Search + "%"
		args = append(args, pat, pat)
	}
	q += ` ORDER BY creation_time DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return s.scanAll(rows)
}

func (s *tasks) Update(ctx context.Context, t *model.Task) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE tasks SET title=?, description=?, task_type=?, status=?, priority=?, category=?,
            due_date=?, due_time=?, update_time=?
        WHERE id=? AND user_id=?`,
		t.Title, t.Description, t.Type, t.Status, t.Priority, t.Category,
		t.DueDate, t.DueTime, time.Now().UTC(), t.ID, t.UserID)
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
	res, err := s.db.ExecContext(ctx, `
        UPDATE tasks SET status=?, completed_time=?, update_time=? WHERE id=? AND user_id=?`,
		status, completed, at.UTC(), taskID, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return s.GetByID(ctx, userID, taskID)
}

func (s *tasks) Delete(ctx context.Context, userID, taskID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id=? AND user_id=?`, taskID, userID)
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
        WHERE user_id=? AND due_date=? AND status NOT IN ('completed','cancelled')
        ORDER BY due_time IS NULL, due_time`, userID, date)
	if err != nil {
		return nil, err
	}
	return s.scanAll(rows)
}

func (s *tasks) Overdue(ctx context.Context, userID int64, today string) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+taskCols+` FROM tasks
        WHERE user_id=? AND due_date < ? AND status NOT IN ('completed','cancelled')
        ORDER BY due_date`, userID, today)
	if err != nil {
		return nil, err
	}
	return s.scanAll(rows)
}

func (s *tasks) DueBetween(ctx context.Context, userID int64, fromDate, toDate string) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+taskCols+` FROM tasks
        WHERE user_id=? AND due_date >= ? AND due_date <= ?
          AND status NOT IN ('completed','cancelled')
        ORDER BY due_date, due_time IS NULL, due_time`, userID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return s.scanAll(rows)
}

func (s *tasks) Stats(ctx context.Context, userID int64) (*model.TaskStats, error) {
	var st model.TaskStats
	today := time.Now().UTC().Format("2006-01-02")
	row := s.db.QueryRowContext(ctx, `
        SELECT
            COUNT(CASE WHEN status IN ('pending','in_progress') THEN 1 END),
            COUNT(CASE WHEN status = 'completed' THEN 1 END),
            COUNT(CASE WHEN status NOT IN ('completed','cancelled') AND due_date < ? THEN 1 END),
            COUNT(CASE WHEN task_type = 'delegated' AND status NOT IN ('completed','cancelled') THEN 1 END)
        FROM tasks WHERE user_id=?`, today, userID)
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

func (s *meetings) Create(ctx context.Context, m *model.Meeting) (*model.Meeting, error) {
	if m.Title == "" || m.Date == "" {
		return nil, fmt.Errorf("%w: meeting needs title and date", model.ErrValidation)
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO meetings (task_id, organizer_id, title, description, meeting_date,
            start_time, end_time, location, status)
        VALUES (?,?,?,?,?,?,?,?,?)`,
		m.TaskID, m.OrganizerID, m.Title, m.Description, m.Date,
		m.StartTime, m.EndTime, m.Location, model.MeetingScheduled)
	if err != nil {
		return nil, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *m
	out.ID = id
	out.Status = model.MeetingScheduled
	return &out, nil
}

func (s *meetings) GetByID(ctx context.Context, meetingID int64) (*model.Meeting, error) {
	return scanMeeting(s.db.QueryRowContext(ctx,
		`SELECT `+meetingCols+` FROM meetings WHERE id=?`, meetingID))
}

func (s *meetings) GetByTask(ctx context.Context, taskID int64) (*model.Meeting, error) {
	return scanMeeting(s.db.QueryRowContext(ctx,
		`SELECT `+meetingCols+` FROM meetings WHERE task_id=?`, taskID))
}

func (s *meetings) ListByOrganizer(ctx context.Context, userID int64) ([]*model.Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+meetingCols+` FROM meetings WHERE organizer_id=? ORDER BY meeting_date, start_time`, userID)
	if err != nil {
		return nil, err
	}
	return scanMeetings(rows)
}

func (s *meetings) Between(ctx context.Context, userID int64, fromDate, toDate string) ([]*model.Meeting, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+meetingCols+` FROM meetings
        WHERE organizer_id=? AND meeting_date >= ? AND meeting_date <= ? AND status='scheduled'
        ORDER BY meeting_date, start_time`, userID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return scanMeetings(rows)
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

func (s *meetings) SetStatus(ctx context.Context, meetingID int64, status model.MeetingStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET status=? WHERE id=?`, status, meetingID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *meetings) AddParticipant(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO meeting_participants (meeting_id, phone_number, name, status, notified_time)
        VALUES (?,?,?,?,?)`,
		p.MeetingID, p.PhoneNumber, p.Name, model.ParticipantPending, p.NotifiedTime)
	if err != nil {
		return nil, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *p
	out.ID = id
	out.Status = model.ParticipantPending
	return &out, nil
}

func (s *meetings) ListParticipants(ctx context.Context, meetingID int64) ([]*model.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, meeting_id, phone_number, name, status, notified_time, responded_time
        FROM meeting_participants WHERE meeting_id=? ORDER BY id`, meetingID)
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
	res, err := s.db.ExecContext(ctx, `
        UPDATE meeting_participants SET status=?, responded_time=?
        WHERE meeting_id=? AND phone_number=?`, status, at.UTC(), meetingID, phone)
	if err != nil {
		return nil, mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	var p model.Participant
	row := s.db.QueryRowContext(ctx, `
        SELECT id, meeting_id, phone_number, name, status, notified_time, responded_time
        FROM meeting_participants WHERE meeting_id=? AND phone_number=?`, meetingID, phone)
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
        WHERE p.phone_number=? AND p.status='pending' AND m.status='scheduled'
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
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO delegations (task_id, delegator_id, assignee_phone, assignee_name, status)
        VALUES (?,?,?,?,?)`,
		d.TaskID, d.DelegatorID, d.AssigneePhone, d.AssigneeName, model.DelegationPending)
	if err != nil {
		return nil, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *d
	out.ID = id
	out.Status = model.DelegationPending
	return &out, nil
}

func (s *delegations) GetByID(ctx context.Context, delegationID int64) (*model.Delegation, error) {
	return scanDelegation(s.db.QueryRowContext(ctx,
		`SELECT `+delegationCols+` FROM delegations WHERE id=?`, delegationID))
}

func (s *delegations) ListByDelegator(ctx context.Context, userID int64) ([]*model.Delegation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+delegationCols+` FROM delegations WHERE delegator_id=? ORDER BY id DESC`, userID)
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
        WHERE assignee_phone=? AND status=? ORDER BY id DESC LIMIT 1`,
		phone, model.DelegationPending))
}

func (s *delegations) MarkSent(ctx context.Context, delegationID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE delegations SET sent_time=? WHERE id=?`, at.UTC(), delegationID)
	return err
}

func (s *delegations) UpdateStatus(ctx context.Context, delegationID int64, status model.DelegationStatus, at time.Time) (*model.Delegation, error) {
	var res sql.Result
	var err error
	switch status {
	case model.DelegationAccepted:
		res, err = s.db.ExecContext(ctx,
			`UPDATE delegations SET status=?, accepted_time=? WHERE id=?`, status, at.UTC(), delegationID)
	case model.DelegationCompleted:
		res, err = s.db.ExecContext(ctx,
			`UPDATE delegations SET status=?, completed_time=? WHERE id=?`, status, at.UTC(), delegationID)
	default:
		res, err = s.db.ExecContext(ctx,
			`UPDATE delegations SET status=? WHERE id=?`, status, delegationID)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return s.GetByID(ctx, delegationID)
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

func (s *reminders) Create(ctx context.Context, r *model.Reminder) (*model.Reminder, error) {
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO reminders (task_id, user_id, reminder_type, scheduled_time, status, message_template)
        VALUES (?,?,?,?,?,?)`,
		r.TaskID, r.UserID, r.Type, r.ScheduledTime.UTC(), model.ReminderPending, r.Template)
	if err != nil {
		return nil, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *r
	out.ID = id
	out.Status = model.ReminderPending
	return &out, nil
}

func (s *reminders) ListByTask(ctx context.Context, taskID int64) ([]*model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderCols+` FROM reminders WHERE task_id=? ORDER BY scheduled_time`, taskID)
	if err != nil {
		return nil, err
	}
	return scanReminders(rows)
}

func (s *reminders) ListByUser(ctx context.Context, userID int64, status *model.ReminderStatus) ([]*model.Reminder, error) {
	q := `SELECT ` + reminderCols + ` FROM reminders WHERE user_id=?`
	args := []any{userID}
	if status != nil {
		q += ` AND status=?`
		args = append(args, *status)
	}
	q += ` ORDER BY scheduled_time`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanReminders(rows)
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

func (s *reminders) Due(ctx context.Context, now time.Time) ([]*model.DueReminder, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.id, r.task_id, r.user_id, r.reminder_type, r.scheduled_time, r.sent_time,
               r.status, r.message_template,
               t.title, t.due_date, t.due_time, t.status, t.priority,
               u.phone_number, u.name, u.language
        FROM reminders r
        JOIN tasks t ON t.id = r.task_id
        JOIN users u ON u.id = r.user_id
        WHERE r.status = 'pending' AND r.scheduled_time <= ?
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
		`UPDATE reminders SET status='sent', sent_time=? WHERE id=?`, at.UTC(), reminderID)
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
        WHERE user_id=? AND status='sent' ORDER BY sent_time DESC, id DESC LIMIT 1`, userID))
}

func (s *reminders) Snooze(ctx context.Context, reminderID int64, until time.Time) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE reminders SET status='pending', scheduled_time=?, sent_time=NULL
        WHERE id=? AND status='sent'`, until.UTC(), reminderID)
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
        UPDATE reminders SET status='cancelled' WHERE id=? AND user_id=? AND status='pending'`,
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
		`UPDATE reminders SET status='cancelled' WHERE task_id=? AND status='pending'`, taskID)
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
        FROM conversations WHERE user_id=?`, userID)
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
        VALUES (?,?,?,?,?)
        ON CONFLICT(user_id) DO UPDATE SET
            current_flow=excluded.current_flow,
            flow_data=excluded.flow_data,
            last_interaction=excluded.last_interaction`,
		userID, flowName, string(flowData), at.UTC(), at.UTC())
	return mapErr(err)
}

func (s *conversations) Clear(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE user_id=?`, userID)
	return err
}

// --- Message log ---

type messageLog struct{ db *sql.DB }

func (s *messageLog) Append(ctx context.Context, e *model.MessageLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO message_log (user_id, direction, message_type, content, voice_duration, transcription, creation_time)
        VALUES (?,?,?,?,?,?,?)`,
		e.UserID, e.Direction, e.MessageType, e.Content, e.VoiceDuration, e.Transcription,
		time.Now().UTC())
	return mapErr(err)
}

func (s *messageLog) ListRecent(ctx context.Context, userID int64, limit int) ([]*model.MessageLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, direction, message_type, content, voice_duration, transcription, creation_time
        FROM message_log WHERE user_id=? ORDER BY id DESC LIMIT ?`, userID, limit)
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
