package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/warmline/warmline/server/internal/model"
	"github.com/warmline/warmline/server/internal/store"
)

// ddl bootstraps the local schema. Safe to run repeatedly.
const ddl = `
CREATE TABLE IF NOT EXISTS users (
    user_id         TEXT PRIMARY KEY,
    first_name      TEXT NOT NULL,
    phone_number    TEXT NOT NULL,
    companion_name  TEXT NOT NULL DEFAULT '',
    companion_voice TEXT NOT NULL DEFAULT '',
    interests       TEXT NOT NULL DEFAULT '',
    creation_time   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS call_schedules (
    schedule_id    TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL REFERENCES users(user_id),
    day_of_week    TEXT NOT NULL,
    call_time      TEXT NOT NULL,
    enabled        BOOLEAN NOT NULL DEFAULT TRUE,
    last_called_at TIMESTAMP,
    creation_time  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS call_logs (
    log_id           TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL REFERENCES users(user_id),
    call_time        TIMESTAMP NOT NULL,
    duration_seconds INTEGER NOT NULL DEFAULT 0,
    answered         BOOLEAN NOT NULL DEFAULT FALSE,
    recording_url    TEXT,
    summary          TEXT NOT NULL DEFAULT '',
    mood             TEXT NOT NULL DEFAULT '',
    topics           TEXT NOT NULL DEFAULT ''
);
`

// Open opens (or creates) a SQLite database file and bootstraps the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB wires a store over an existing connection (used by factory and tests).
func NewWithDB(db *sql.DB) store.Store { return &liteStore{db: db} }

type liteStore struct{ db *sql.DB }

func (s *liteStore) Schedules() store.Schedules { return &schedules{db: s.db} }
func (s *liteStore) Users() store.Users         { return &users{db: s.db} }
func (s *liteStore) CallLogs() store.CallLogs   { return &callLogs{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *liteStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

func mapRowErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// --- Schedules ---

type schedules struct{ db *sql.DB }

func (r *schedules) Create(ctx context.Context, m *model.Schedule) (*model.Schedule, error) {
	id := m.ScheduleID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO call_schedules (schedule_id, user_id, day_of_week, call_time, enabled, creation_time)
        VALUES (?,?,?,?,?,?)
    `, id, m.UserID, m.DayOfWeek, m.CallTime, m.Enabled, now)
	if err != nil {
		return nil, err
	}
	out := *m
	out.ScheduleID = id
	out.CreationTime = now
	return &out, nil
}

func (r *schedules) Get(ctx context.Context, scheduleID string) (*model.Schedule, error) {
	var out model.Schedule
	var last *time.Time
	row := r.db.QueryRowContext(ctx, `
        SELECT schedule_id, user_id, day_of_week, call_time, enabled, last_called_at, creation_time
        FROM call_schedules WHERE schedule_id=?
    `, scheduleID)
	if err := row.Scan(&out.ScheduleID, &out.UserID, &out.DayOfWeek, &out.CallTime, &out.Enabled, &last, &out.CreationTime); err != nil {
		return nil, mapRowErr(err)
	}
	out.LastCalledAt = last
	return &out, nil
}

func (r *schedules) ListEnabled(ctx context.Context) ([]*model.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT schedule_id, user_id, day_of_week, call_time, enabled, last_called_at, creation_time
        FROM call_schedules WHERE enabled = TRUE
        ORDER BY creation_time ASC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Schedule
	for rows.Next() {
		var s model.Schedule
		var last *time.Time
		if err := rows.Scan(&s.ScheduleID, &s.UserID, &s.DayOfWeek, &s.CallTime, &s.Enabled, &last, &s.CreationTime); err != nil {
			return nil, err
		}
		s.LastCalledAt = last
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *schedules) MarkFired(ctx context.Context, scheduleID string, firedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE call_schedules SET last_called_at=? WHERE schedule_id=?
    `, firedAt.UTC(), scheduleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *schedules) SetEnabled(ctx context.Context, scheduleID string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE call_schedules SET enabled=? WHERE schedule_id=?
    `, enabled, scheduleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Users ---

type users struct{ db *sql.DB }

func (r *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	id := m.UserID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO users (user_id, first_name, phone_number, companion_name, companion_voice, interests, creation_time)
        VALUES (?,?,?,?,?,?,?)
    `, id, m.FirstName, m.PhoneNumber, m.CompanionName, m.CompanionVoice, m.Interests, now)
	if err != nil {
		return nil, err
	}
	out := *m
	out.UserID = id
	out.CreationTime = now
	return &out, nil
}

func (r *users) Get(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	row := r.db.QueryRowContext(ctx, `
        SELECT user_id, first_name, phone_number, companion_name, companion_voice, interests, creation_time
        FROM users WHERE user_id=?
    `, userID)
	if err := row.Scan(&out.UserID, &out.FirstName, &out.PhoneNumber, &out.CompanionName, &out.CompanionVoice, &out.Interests, &out.CreationTime); err != nil {
		return nil, mapRowErr(err)
	}
	return &out, nil
}

func (r *users) GetByPhone(ctx context.Context, phoneNumber string) (*model.User, error) {
	var out model.User
	row := r.db.QueryRowContext(ctx, `
        SELECT user_id, first_name, phone_number, companion_name, companion_voice, interests, creation_time
        FROM users WHERE phone_number=?
        ORDER BY creation_time ASC LIMIT 1
    `, phoneNumber)
	if err := row.Scan(&out.UserID, &out.FirstName, &out.PhoneNumber, &out.CompanionName, &out.CompanionVoice, &out.Interests, &out.CreationTime); err != nil {
		return nil, mapRowErr(err)
	}
	return &out, nil
}

// --- Call logs ---

type callLogs struct{ db *sql.DB }

func (r *callLogs) Append(ctx context.Context, m *model.CallLog) (*model.CallLog, error) {
	id := m.LogID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO call_logs (log_id, user_id, call_time, duration_seconds, answered, recording_url, summary, mood, topics)
        VALUES (?,?,?,?,?,?,?,?,?)
    `, id, m.UserID, m.CallTime.UTC(), m.DurationSeconds, m.Answered, m.RecordingURL, m.Summary, m.Mood, m.Topics)
	if err != nil {
		return nil, err
	}
	out := *m
	out.LogID = id
	return &out, nil
}

func (r *callLogs) ListByUser(ctx context.Context, userID string) ([]*model.CallLog, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT log_id, user_id, call_time, duration_seconds, answered, recording_url, summary, mood, topics
        FROM call_logs WHERE user_id=?
        ORDER BY call_time DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.CallLog
	for rows.Next() {
		var l model.CallLog
		var rec *string
		if err := rows.Scan(&l.LogID, &l.UserID, &l.CallTime, &l.DurationSeconds, &l.Answered, &rec, &l.Summary, &l.Mood, &l.Topics); err != nil {
			return nil, err
		}
		l.RecordingURL = rec
		out = append(out, &l)
	}
	return out, rows.Err()
}
