package postgres

// schema mirrors the sqlite driver's DDL in Postgres dialect. Applied by
// Bootstrap (and by taskivoctl migrate); statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id                       BIGSERIAL PRIMARY KEY,
    phone_number             TEXT NOT NULL UNIQUE,
    name                     TEXT,
    email                    TEXT,
    whatsapp_verified        BOOLEAN NOT NULL DEFAULT FALSE,
    language                 TEXT NOT NULL DEFAULT 'he',
    time_zone                TEXT NOT NULL DEFAULT 'Asia/Jerusalem',
    notification_preferences TEXT NOT NULL DEFAULT 'all',
    weekly_summary_enabled   BOOLEAN NOT NULL DEFAULT TRUE,
    weekly_summary_day       INTEGER NOT NULL DEFAULT 0,
    creation_time            TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_active_time         TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS tasks (
    id               BIGSERIAL PRIMARY KEY,
    user_id          BIGINT NOT NULL REFERENCES users(id),
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
    creation_time    TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_time   TIMESTAMPTZ,
    update_time      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);

CREATE TABLE IF NOT EXISTS delegations (
    id              BIGSERIAL PRIMARY KEY,
    task_id         BIGINT NOT NULL REFERENCES tasks(id),
    delegator_id    BIGINT NOT NULL REFERENCES users(id),
    assignee_phone  TEXT NOT NULL,
    assignee_name   TEXT,
    status          TEXT NOT NULL DEFAULT 'pending'
                    CHECK (status IN ('pending','accepted','rejected','completed')),
    sent_time       TIMESTAMPTZ,
    accepted_time   TIMESTAMPTZ,
    completed_time  TIMESTAMPTZ,
    follow_up_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_delegations_delegator ON delegations(delegator_id);

CREATE TABLE IF NOT EXISTS meetings (
    id           BIGSERIAL PRIMARY KEY,
    task_id      BIGINT NOT NULL REFERENCES tasks(id),
    organizer_id BIGINT NOT NULL REFERENCES users(id),
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
    id             BIGSERIAL PRIMARY KEY,
    meeting_id     BIGINT NOT NULL REFERENCES meetings(id),
    phone_number   TEXT NOT NULL,
    name           TEXT,
    status         TEXT NOT NULL DEFAULT 'pending'
                   CHECK (status IN ('pending','accepted','declined','tentative')),
    notified_time  TIMESTAMPTZ,
    responded_time TIMESTAMPTZ,
    UNIQUE(meeting_id, phone_number)
);

CREATE TABLE IF NOT EXISTS reminders (
    id               BIGSERIAL PRIMARY KEY,
    task_id          BIGINT NOT NULL REFERENCES tasks(id),
    user_id          BIGINT NOT NULL REFERENCES users(id),
    reminder_type    TEXT NOT NULL DEFAULT 'before_task'
                     CHECK (reminder_type IN ('before_task','follow_up','overdue','delegation')),
    scheduled_time   TIMESTAMPTZ NOT NULL,
    sent_time        TIMESTAMPTZ,
    status           TEXT NOT NULL DEFAULT 'pending'
                     CHECK (status IN ('pending','sent','acknowledged','cancelled')),
    message_template TEXT
);
CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(status, scheduled_time);

CREATE TABLE IF NOT EXISTS conversations (
    user_id          BIGINT PRIMARY KEY REFERENCES users(id),
    current_flow     TEXT NOT NULL,
    flow_data        TEXT NOT NULL DEFAULT '{}',
    started_time     TIMESTAMPTZ NOT NULL,
    last_interaction TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS message_log (
    id             BIGSERIAL PRIMARY KEY,
    user_id        BIGINT NOT NULL REFERENCES users(id),
    direction      TEXT NOT NULL CHECK (direction IN ('incoming','outgoing')),
    message_type   TEXT NOT NULL,
    content        TEXT NOT NULL,
    voice_duration INTEGER,
    transcription  TEXT,
    creation_time  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_message_log_user ON message_log(user_id, creation_time);
`
