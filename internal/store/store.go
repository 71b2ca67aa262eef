package store

import (
	"context"
	"time"

	"github.com/warmline/warmline/server/internal/model"
)

// Store exposes persistence operations required by the service.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Schedules() Schedules
	Users() Users
	CallLogs() CallLogs
}

type Schedules interface {
	Create(ctx context.Context, s *model.Schedule) (*model.Schedule, error)
	Get(ctx context.Context, scheduleID string) (*model.Schedule, error)
	ListEnabled(ctx context.Context) ([]*model.Schedule, error)
	MarkFired(ctx context.Context, scheduleID string, firedAt time.Time) error
	SetEnabled(ctx context.Context, scheduleID string, enabled bool) error
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	// GetByPhone resolves an inbound caller to their profile. Ties on a
	// shared number go to the earliest-created user.
	GetByPhone(ctx context.Context, phoneNumber string) (*model.User, error)
}

type CallLogs interface {
	Append(ctx context.Context, l *model.CallLog) (*model.CallLog, error)
	ListByUser(ctx context.Context, userID string) ([]*model.CallLog, error)
}
