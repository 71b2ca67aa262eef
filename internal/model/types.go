package model

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a closed seven-value day-of-week enumeration, Monday=0.
// Schedule rows persist the short symbol ("Mon".."Sun"); ParseWeekday is the
// only way to get from a stored string to a Weekday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdaySymbols = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// ParseWeekday maps a stored day symbol to its Weekday. Unknown symbols are an
// error; callers treat the row as malformed and skip it.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	for i, sym := range weekdaySymbols {
		if s == sym {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: day_of_week %q", ErrValidation, s)
}

func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdaySymbols[d]
}

// Matches reports whether d is t's weekday (time.Weekday counts Sunday=0,
// this enum counts Monday=0).
func (d Weekday) Matches(t time.Time) bool {
	return int(d) == (int(t.Weekday())+6)%7
}

// ClockTime is a call time at minute granularity, parsed from "HH:MM".
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses exactly two-digit "HH:MM". The stored format is
// strict: a row carrying trailing garbage ("09:30junk") or a fractional
// minute ("09:3.5") is malformed and must be skipped, never reinterpreted
// as some nearby minute.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != ':' ||
		!isDigit(s[0]) || !isDigit(s[1]) || !isDigit(s[3]) || !isDigit(s[4]) {
		return ClockTime{}, fmt.Errorf("%w: call_time %q, expected HH:MM", ErrValidation, s)
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return ClockTime{}, fmt.Errorf("%w: call_time %q out of range", ErrValidation, s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Matches reports whether t falls inside c's minute.
func (c ClockTime) Matches(t time.Time) bool {
	return t.Hour() == c.Hour && t.Minute() == c.Minute
}

// Schedule is a recurring weekly check-in call slot. DayOfWeek and CallTime
// are kept as stored strings; the detector parses them per tick so one
// corrupt row never poisons a batch.
type Schedule struct {
	ScheduleID   string     `json:"scheduleId"`
	UserID       string     `json:"userId"`
	DayOfWeek    string     `json:"dayOfWeek"`
	CallTime     string     `json:"callTime"`
	Enabled      bool       `json:"enabled"`
	LastCalledAt *time.Time `json:"lastCalledAt,omitempty"`
	CreationTime time.Time  `json:"creationTime"`
}

// User is a companion-service member. Read-only from this service's
// perspective apart from admin creation.
type User struct {
	UserID         string    `json:"userId"`
	FirstName      string    `json:"firstName"`
	PhoneNumber    string    `json:"phoneNumber"`
	CompanionName  string    `json:"companionName"`
	CompanionVoice string    `json:"companionVoice"`
	Interests      string    `json:"interests"`
	CreationTime   time.Time `json:"creationTime"`
}

// CallLog records one firing. Append-only; later enrichment (duration,
// recording) happens outside this service.
type CallLog struct {
	LogID           string    `json:"logId"`
	UserID          string    `json:"userId"`
	CallTime        time.Time `json:"callTime"`
	DurationSeconds int       `json:"durationSeconds"`
	Answered        bool      `json:"answered"`
	RecordingURL    *string   `json:"recordingUrl,omitempty"`
	Summary         string    `json:"summary"`
	Mood            string    `json:"mood"`
	Topics          string    `json:"topics"`
}
