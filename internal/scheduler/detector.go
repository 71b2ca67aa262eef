// Package scheduler decides which check-in calls are due and fires them on a
// fixed cadence.
package scheduler

import (
	"time"

	"github.com/warmline/warmline/server/internal/model"
)

// Detector is the pure due-call decision. All day/time comparisons happen in
// the reference timezone, independent of server locale.
type Detector struct {
	loc *time.Location
}

func NewDetector(loc *time.Location) *Detector {
	if loc == nil {
		loc = time.UTC
	}
	return &Detector{loc: loc}
}

// Detect returns the subset of schedules due at now: enabled, weekday symbol
// matching now's weekday, call time matching now's exact minute, and not
// already fired on now's calendar date. Malformed rows are skipped, never an
// error; the result is deterministic for identical inputs.
func (d *Detector) Detect(now time.Time, schedules []*model.Schedule) []*model.Schedule {
	local := now.In(d.loc)

	var due []*model.Schedule
	for _, s := range schedules {
		if !s.Enabled {
			continue
		}
		day, err := model.ParseWeekday(s.DayOfWeek)
		if err != nil {
			continue
		}
		if !day.Matches(local) {
			continue
		}
		ct, err := model.ParseClockTime(s.CallTime)
		if err != nil {
			continue
		}
		if !ct.Matches(local) {
			continue
		}
		if d.firedToday(s.LastCalledAt, local) {
			continue
		}
		due = append(due, s)
	}
	return due
}

// firedToday compares the last firing's calendar date to now's, both in the
// reference timezone. A nil last-fired means never fired.
func (d *Detector) firedToday(lastCalledAt *time.Time, local time.Time) bool {
	if lastCalledAt == nil {
		return false
	}
	last := lastCalledAt.In(d.loc)
	y1, m1, day1 := last.Date()
	y2, m2, day2 := local.Date()
	return y1 == y2 && m1 == m2 && day1 == day2
}
