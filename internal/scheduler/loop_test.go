package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/warmline/warmline/server/internal/clock"
	"github.com/warmline/warmline/server/internal/model"
	"github.com/warmline/warmline/server/internal/store"
)

// --- Fakes ---

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	tick chan time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, tick: make(chan time.Time, 1)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(time.Duration) clock.Ticker { return c }
func (c *fakeClock) C() <-chan time.Time                  { return c.tick }
func (c *fakeClock) Stop()                                {}

// Tick triggers one loop iteration synthetically.
func (c *fakeClock) Tick() { c.tick <- c.Now() }

type fakeStore struct {
	mu        sync.Mutex
	schedules map[string]*model.Schedule
	users     map[string]*model.User
	logs      []*model.CallLog

	listErr   error
	userErr   map[string]error
	appendErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		schedules: map[string]*model.Schedule{},
		users:     map[string]*model.User{},
		userErr:   map[string]error{},
	}
}

func (f *fakeStore) Schedules() store.Schedules { return scheduleAPI{f} }
func (f *fakeStore) Users() store.Users         { return userAPI{f} }
func (f *fakeStore) CallLogs() store.CallLogs   { return callLogAPI{f} }

type scheduleAPI struct{ f *fakeStore }

func (a scheduleAPI) Create(ctx context.Context, s *model.Schedule) (*model.Schedule, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	a.f.schedules[s.ScheduleID] = s
	return s, nil
}

func (a scheduleAPI) Get(ctx context.Context, id string) (*model.Schedule, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	s, ok := a.f.schedules[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return s, nil
}

func (a scheduleAPI) ListEnabled(ctx context.Context) ([]*model.Schedule, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	if a.f.listErr != nil {
		return nil, a.f.listErr
	}
	var out []*model.Schedule
	for _, s := range a.f.schedules {
		if s.Enabled {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (a scheduleAPI) MarkFired(ctx context.Context, id string, at time.Time) error {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	s, ok := a.f.schedules[id]
	if !ok {
		return model.ErrNotFound
	}
	at = at.UTC()
	s.LastCalledAt = &at
	return nil
}

func (a scheduleAPI) SetEnabled(ctx context.Context, id string, enabled bool) error {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	s, ok := a.f.schedules[id]
	if !ok {
		return model.ErrNotFound
	}
	s.Enabled = enabled
	return nil
}

type userAPI struct{ f *fakeStore }

func (a userAPI) Create(ctx context.Context, u *model.User) (*model.User, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	a.f.users[u.UserID] = u
	return u, nil
}

func (a userAPI) Get(ctx context.Context, id string) (*model.User, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	if err := a.f.userErr[id]; err != nil {
		return nil, err
	}
	u, ok := a.f.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return u, nil
}

func (a userAPI) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	for _, u := range a.f.users {
		if u.PhoneNumber == phone {
			return u, nil
		}
	}
	return nil, model.ErrNotFound
}

type callLogAPI struct{ f *fakeStore }

func (a callLogAPI) Append(ctx context.Context, l *model.CallLog) (*model.CallLog, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	if a.f.appendErr != nil {
		return nil, a.f.appendErr
	}
	a.f.logs = append(a.f.logs, l)
	return l, nil
}

func (a callLogAPI) ListByUser(ctx context.Context, userID string) ([]*model.CallLog, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	var out []*model.CallLog
	for _, l := range a.f.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func mondayLondon(t *testing.T) (time.Time, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return time.Date(2025, 6, 2, 9, 0, 0, 0, loc), loc
}

func newTestLoop(t *testing.T, f *fakeStore, clk clock.Clock, loc *time.Location) *Loop {
	t.Helper()
	return NewLoop(f, NewDetector(loc), clk, Config{Interval: time.Minute}, zerolog.Nop())
}

func seed(f *fakeStore) {
	f.users["u1"] = &model.User{
		UserID: "u1", FirstName: "Ada", PhoneNumber: "+447700900001",
		CompanionName: "June", CompanionVoice: "voice-june", Interests: "gardening",
	}
	f.schedules["s1"] = &model.Schedule{
		ScheduleID: "s1", UserID: "u1", DayOfWeek: "Mon", CallTime: "09:00", Enabled: true,
	}
}

func TestTick_FiresDueScheduleOnce(t *testing.T) {
	now, loc := mondayLondon(t)
	f := newFakeStore()
	seed(f)
	clk := newFakeClock(now)
	loop := newTestLoop(t, f, clk, loc)

	report, err := loop.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if report.Due != 1 || len(report.Fired) != 1 || report.Fired[0] != "s1" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(f.logs) != 1 {
		t.Fatalf("expected 1 call log, got %d", len(f.logs))
	}
	l := f.logs[0]
	if l.DurationSeconds != 0 || l.Answered || l.RecordingURL != nil || l.Mood != "neutral" || l.Topics != "gardening" {
		t.Fatalf("stub log fields wrong: %+v", l)
	}
	if f.schedules["s1"].LastCalledAt == nil {
		t.Fatal("schedule not marked fired")
	}

	// One minute later, same day: nothing due.
	clk.Advance(time.Minute)
	report, err = loop.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick 2: %v", err)
	}
	if report.Due != 0 || len(f.logs) != 1 {
		t.Fatalf("schedule re-fired same day: %+v logs=%d", report, len(f.logs))
	}
}

func TestTick_UserFetchFailureSelfHeals(t *testing.T) {
	now, loc := mondayLondon(t)
	f := newFakeStore()
	seed(f)
	f.userErr["u1"] = errors.New("store timeout")
	clk := newFakeClock(now)
	loop := newTestLoop(t, f, clk, loc)

	report, err := loop.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(report.Fired) != 0 || len(report.Skipped) != 1 || report.Skipped[0].Reason != SkipUserFetch {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(f.logs) != 0 || f.schedules["s1"].LastCalledAt != nil {
		t.Fatal("skip path must leave no log row and no fired mark")
	}

	// Same minute, user readable again: fires now.
	delete(f.userErr, "u1")
	report, err = loop.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick 2: %v", err)
	}
	if len(report.Fired) != 1 || len(f.logs) != 1 {
		t.Fatalf("expected self-healed firing: %+v", report)
	}
}

func TestTick_PerScheduleIsolation(t *testing.T) {
	now, loc := mondayLondon(t)
	f := newFakeStore()
	seed(f)
	f.users["u2"] = &model.User{UserID: "u2", FirstName: "Bea", PhoneNumber: "+447700900002"}
	f.schedules["s2"] = &model.Schedule{
		ScheduleID: "s2", UserID: "u2", DayOfWeek: "Mon", CallTime: "09:00", Enabled: true,
	}
	f.userErr["u1"] = errors.New("boom")
	clk := newFakeClock(now)
	loop := newTestLoop(t, f, clk, loc)

	report, err := loop.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if report.Due != 2 || len(report.Fired) != 1 || report.Fired[0] != "s2" {
		t.Fatalf("one failing schedule must not block the other: %+v", report)
	}
}

func TestTick_ListFailureReturnsError(t *testing.T) {
	now, loc := mondayLondon(t)
	f := newFakeStore()
	f.listErr = errors.New("connection refused")
	loop := newTestLoop(t, f, newFakeClock(now), loc)

	if _, err := loop.Tick(context.Background()); err == nil {
		t.Fatal("expected list error to surface from Tick")
	}
}

func TestRun_DrivenBySyntheticTicks(t *testing.T) {
	now, loc := mondayLondon(t)
	f := newFakeStore()
	seed(f)
	clk := newFakeClock(now)
	loop := newTestLoop(t, f, clk, loc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	clk.Tick()
	waitFor(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.logs) == 1
	})

	// A failing tick must not stop the loop.
	f.mu.Lock()
	f.listErr = errors.New("transient")
	f.mu.Unlock()
	clk.Tick()

	f.mu.Lock()
	f.listErr = nil
	f.schedules["s1"].LastCalledAt = nil
	f.mu.Unlock()
	clk.Tick()
	waitFor(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.logs) == 2
	})

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}

func waitFor(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
