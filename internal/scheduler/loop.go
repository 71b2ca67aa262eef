package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/warmline/warmline/server/internal/clock"
	"github.com/warmline/warmline/server/internal/model"
	"github.com/warmline/warmline/server/internal/store"
)

// SkipReason explains why a due schedule did not complete its firing.
type SkipReason string

const (
	SkipUserFetch SkipReason = "user-fetch"  // remains eligible next minute
	SkipLogAppend SkipReason = "log-append"  // log row lost, schedule still marked
	SkipMarkFired SkipReason = "mark-fired"  // may re-fire next minute, duplicate log possible
)

// Skipped is one due schedule that hit a failure mid-firing.
type Skipped struct {
	ScheduleID string     `json:"scheduleId"`
	Reason     SkipReason `json:"reason"`
	Err        string     `json:"error"`
}

// TickReport is the explicit outcome of one tick, visible to tests and the
// admin tick endpoint instead of being swallowed into logs.
type TickReport struct {
	At      time.Time `json:"at"`
	Checked int       `json:"checked"`
	Due     int       `json:"due"`
	Fired   []string  `json:"fired,omitempty"`
	Skipped []Skipped `json:"skipped,omitempty"`
}

// Config controls the loop cadence.
type Config struct {
	Interval time.Duration
}

// Loop drives the detector once per interval and dispatches firing side
// effects. A single Loop runs ticks strictly serially.
type Loop struct {
	store    store.Store
	detector *Detector
	clk      clock.Clock
	cfg      Config
	log      zerolog.Logger
}

func NewLoop(st store.Store, det *Detector, clk clock.Clock, cfg Config, log zerolog.Logger) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Loop{store: st, detector: det, clk: clk, cfg: cfg, log: log}
}

// Run ticks until ctx is canceled. Tick failures are logged and never stop
// the cadence; only process shutdown ends the loop.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Dur("interval", l.cfg.Interval).Msg("scheduler loop starting")
	ticker := l.clk.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("scheduler loop stopping")
			return ctx.Err()
		case <-ticker.C():
			report, err := l.Tick(ctx)
			if err != nil {
				l.log.Error().Err(err).Msg("tick failed")
				continue
			}
			if report.Due == 0 {
				l.log.Debug().Int("checked", report.Checked).Msg("no calls due this minute")
			}
		}
	}
}

// Tick runs one detection pass and fires every due schedule. Per-schedule
// failures are isolated into the report; only a failure to list schedules is
// returned as an error.
func (l *Loop) Tick(ctx context.Context) (TickReport, error) {
	now := l.clk.Now()
	report := TickReport{At: now}

	schedules, err := l.store.Schedules().ListEnabled(ctx)
	if err != nil {
		return report, err
	}
	report.Checked = len(schedules)

	due := l.detector.Detect(now, schedules)
	report.Due = len(due)

	for _, s := range due {
		l.fire(ctx, now, s, &report)
	}

	if report.Due > 0 {
		l.log.Info().
			Int("due", report.Due).
			Strs("fired", report.Fired).
			Int("skipped", len(report.Skipped)).
			Msg("tick complete")
	}
	return report, nil
}

// fire processes one due schedule: fetch user, append the stub call log,
// mark the schedule fired. Append happens before mark-fired on purpose: a
// crash between the two duplicates a log row rather than losing the record
// of a fired call. The two writes are not transactional.
func (l *Loop) fire(ctx context.Context, now time.Time, s *model.Schedule, report *TickReport) {
	user, err := l.store.Users().Get(ctx, s.UserID)
	if err != nil {
		// No mark-fired, no log row: the schedule stays eligible next
		// minute and self-heals once the user row is readable again.
		l.log.Warn().Err(err).Str("schedule_id", s.ScheduleID).Str("user_id", s.UserID).Msg("user fetch failed, skipping")
		report.Skipped = append(report.Skipped, Skipped{ScheduleID: s.ScheduleID, Reason: SkipUserFetch, Err: err.Error()})
		return
	}

	l.log.Info().
		Str("schedule_id", s.ScheduleID).
		Str("user", user.FirstName).
		Str("phone", user.PhoneNumber).
		Str("companion", user.CompanionName).
		Str("voice", user.CompanionVoice).
		Msg("due call")

	entry := &model.CallLog{
		UserID:          s.UserID,
		CallTime:        now.UTC(),
		DurationSeconds: 0,
		Answered:        false,
		RecordingURL:    nil,
		Summary:         "Scheduler triggered; telephony dispatch pending.",
		Mood:            "neutral",
		Topics:          user.Interests,
	}
	if _, err := l.store.CallLogs().Append(ctx, entry); err != nil {
		l.log.Error().Err(err).Str("schedule_id", s.ScheduleID).Msg("call log append failed")
		report.Skipped = append(report.Skipped, Skipped{ScheduleID: s.ScheduleID, Reason: SkipLogAppend, Err: err.Error()})
		// Still try to mark fired so the schedule does not hot-loop.
	}

	if err := l.store.Schedules().MarkFired(ctx, s.ScheduleID, now.UTC()); err != nil {
		l.log.Error().Err(err).Str("schedule_id", s.ScheduleID).Msg("mark fired failed")
		report.Skipped = append(report.Skipped, Skipped{ScheduleID: s.ScheduleID, Reason: SkipMarkFired, Err: err.Error()})
		return
	}
	report.Fired = append(report.Fired, s.ScheduleID)
}
