package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/warmline/warmline/server/internal/model"
	"github.com/warmline/warmline/server/internal/store"
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

type pgStore struct{ db *sql.DB }

func (s *pgStore) Schedules() store.Schedules { return &schedules{db: s.db} }
func (s *pgStore) Users() store.Users         { return &users{db: s.db} }
func (s *pgStore) CallLogs() store.CallLogs   { return &callLogs{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

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
	var created time.Time
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO call_schedules (schedule_id, user_id, day_of_week, call_time, enabled)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING creation_time
    `, id, m.UserID, m.DayOfWeek, m.CallTime, m.Enabled)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out := *m
	out.ScheduleID = id
	out.CreationTime = created
	return &out, nil
}

func (r *schedules) Get(ctx context.Context, scheduleID string) (*model.Schedule, error) {
	var out model.Schedule
	var last *time.Time
	row := r.db.QueryRowContext(ctx, `
        SELECT schedule_id, user_id, day_of_week, call_time, enabled, last_called_at, creation_time
        FROM call_schedules WHERE schedule_id=$1
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
        UPDATE call_schedules SET last_called_at=$2 WHERE schedule_id=$1
    `, scheduleID, firedAt.UTC())
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
        UPDATE call_schedules SET enabled=$2 WHERE schedule_id=$1
    `, scheduleID, enabled)
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
	var created time.Time
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO users (user_id, first_name, phone_number, companion_name, companion_voice, interests)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING creation_time
    `, id, m.FirstName, m.PhoneNumber, m.CompanionName, m.CompanionVoice, m.Interests)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out := *m
	out.UserID = id
	out.CreationTime = created
	return &out, nil
}

func (r *users) Get(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	row := r.db.QueryRowContext(ctx, `
        SELECT user_id, first_name, phone_number, companion_name, companion_voice, interests, creation_time
        FROM users WHERE user_id=$1
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
        FROM users WHERE phone_number=$1
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
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
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
        FROM call_logs WHERE user_id=$1
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
