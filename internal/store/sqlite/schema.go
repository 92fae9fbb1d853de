package sqlite

// schema is applied on Open. Statements are idempotent so reopening an
// existing database file is safe.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id                       INTEGER PRIMARY KEY AUTOINCREMENT,
    phone_number             TEXT NOT NULL UNIQUE,
    name                     TEXT,
    email                    TEXT,
    whatsapp_verified        INTEGER NOT NULL DEFAULT 0,
    language                 TEXT NOT NULL DEFAULT 'he',
    time_zone                TEXT NOT NULL DEFAULT 'Asia/Jerusalem',
    notification_preferences TEXT NOT NULL DEFAULT 'all',
    weekly_summary_enabled   INTEGER NOT NULL DEFAULT 1,
    weekly_summary_day       INTEGER NOT NULL DEFAULT 0,
    creation_time            TIMESTAMP NOT NULL,
    last_active_time         TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id          INTEGER NOT NULL REFERENCES users(id),
    title            TEXT NOT NULL,
    description      TEXT,
    task_type        TEXT NOT NULL DEFAULT 'today'
                     CHECK (task_type IN ('today','scheduled','recurring','someday','delegated','meeting')),
    status           TEXT NOT NULL DEFAULT 'pending'
                     CHECK (status IN ('pending','in_progress','completed','cancelled','overdue')),
    priority         TEXT NOT NULL DEFAULT 'medium'
                     CHECK (priority IN ('low','medium','high','urgent')),
    category         TEXT NOT NULL DEFAULT 'general',
    due_date         TEXT,
    due_time         TEXT,
    created_via      TEXT NOT NULL DEFAULT 'whatsapp_text'
                     CHECK (created_via IN ('whatsapp_text','whatsapp_voice','web','api')),
    voice_transcript TEXT,
    creation_time    TIMESTAMP NOT NULL,
    completed_time   TIMESTAMP,
    update_time      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);

CREATE TABLE IF NOT EXISTS delegations (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id         INTEGER NOT NULL REFERENCES tasks(id),
    delegator_id    INTEGER NOT NULL REFERENCES users(id),
    assignee_phone  TEXT NOT NULL,
    assignee_name   TEXT,
    status          TEXT NOT NULL DEFAULT 'pending'
                    CHECK (status IN ('pending','accepted','rejected','completed')),
    sent_time       TIMESTAMP,
    accepted_time   TIMESTAMP,
    completed_time  TIMESTAMP,
    follow_up_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_delegations_delegator ON delegations(delegator_id);

CREATE TABLE IF NOT EXISTS meetings (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id      INTEGER NOT NULL REFERENCES tasks(id),
    organizer_id INTEGER NOT NULL REFERENCES users(id),
    title        TEXT NOT NULL,
    description  TEXT,
    meeting_date TEXT NOT NULL,
    start_time   TEXT,
    end_time     TEXT,
    location     TEXT,
    status       TEXT NOT NULL DEFAULT 'scheduled'
                 CHECK (status IN ('scheduled','cancelled','completed'))
);
CREATE INDEX IF NOT EXISTS idx_meetings_organizer ON meetings(organizer_id, meeting_date);

CREATE TABLE IF NOT EXISTS meeting_participants (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    meeting_id     INTEGER NOT NULL REFERENCES meetings(id),
    phone_number   TEXT NOT NULL,
    name           TEXT,
    status         TEXT NOT NULL DEFAULT 'pending'
                   CHECK (status IN ('pending','accepted','declined','tentative')),
    notified_time  TIMESTAMP,
    responded_time TIMESTAMP,
    UNIQUE(meeting_id, phone_number)
);

CREATE TABLE IF NOT EXISTS reminders (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id          INTEGER NOT NULL REFERENCES tasks(id),
    user_id          INTEGER NOT NULL REFERENCES users(id),
    reminder_type    TEXT NOT NULL DEFAULT 'before_task'
                     CHECK (reminder_type IN ('before_task','follow_up','overdue','delegation')),
    scheduled_time   TIMESTAMP NOT NULL,
    sent_time        TIMESTAMP,
    status           TEXT NOT NULL DEFAULT 'pending'
                     CHECK (status IN ('pending','sent','acknowledged','cancelled')),
    message_template TEXT
);
CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(status, scheduled_time);

CREATE TABLE IF NOT EXISTS conversations (
    user_id          INTEGER PRIMARY KEY REFERENCES users(id),
    current_flow     TEXT NOT NULL,
    flow_data        TEXT NOT NULL DEFAULT '{}',
    started_time     TIMESTAMP NOT NULL,
    last_interaction TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS message_log (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id        INTEGER NOT NULL REFERENCES users(id),
    direction      TEXT NOT NULL CHECK (direction IN ('incoming','outgoing')),
    message_type   TEXT NOT NULL,
    content        TEXT NOT NULL,
    voice_duration INTEGER,
    transcription  TEXT,
    creation_time  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_message_log_user ON message_log(user_id, creation_time);
`
