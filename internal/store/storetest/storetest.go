package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warmline/warmline/server/internal/model"
	"github.com/warmline/warmline/server/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	userID := "u-" + uuid.New().String()

	// Users
	u := &model.User{
		UserID:         userID,
		FirstName:      "Ada",
		PhoneNumber:    "+447700900001",
		CompanionName:  "June",
		CompanionVoice: "voice-june",
		Interests:      "gardening, radio plays",
	}
	_, err := s.Users().Create(ctx, u)
	require.NoError(t, err, "CreateUser")

	got, err := s.Users().Get(ctx, userID)
	require.NoError(t, err, "GetUser")
	assert.Equal(t, "Ada", got.FirstName)

	_, err = s.Users().Get(ctx, "missing-"+uuid.New().String())
	require.ErrorIs(t, err, model.ErrNotFound, "GetUser missing")

	byPhone, err := s.Users().GetByPhone(ctx, u.PhoneNumber)
	require.NoError(t, err, "GetByPhone")
	assert.Equal(t, userID, byPhone.UserID)

	_, err = s.Users().GetByPhone(ctx, "+440000000000")
	require.ErrorIs(t, err, model.ErrNotFound, "GetByPhone missing")

	// Schedules
	sc, err := s.Schedules().Create(ctx, &model.Schedule{
		UserID:    userID,
		DayOfWeek: "Mon",
		CallTime:  "09:00",
		Enabled:   true,
	})
	require.NoError(t, err, "CreateSchedule")
	require.NotEmpty(t, sc.ScheduleID)

	sched, err := s.Schedules().Get(ctx, sc.ScheduleID)
	require.NoError(t, err, "GetSchedule")
	assert.Equal(t, "09:00", sched.CallTime)
	assert.Nil(t, sched.LastCalledAt, "new schedule must never have fired")

	enabled, err := s.Schedules().ListEnabled(ctx)
	require.NoError(t, err, "ListEnabled")
	assert.True(t, containsSchedule(enabled, sc.ScheduleID), "created schedule missing from ListEnabled")

	firedAt := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Schedules().MarkFired(ctx, sc.ScheduleID, firedAt), "MarkFired")

	sched, err = s.Schedules().Get(ctx, sc.ScheduleID)
	require.NoError(t, err)
	require.NotNil(t, sched.LastCalledAt)
	assert.True(t, sched.LastCalledAt.UTC().Equal(firedAt), "MarkFired timestamp: got %v want %v", sched.LastCalledAt.UTC(), firedAt)

	err = s.Schedules().MarkFired(ctx, "missing", firedAt)
	require.ErrorIs(t, err, model.ErrNotFound, "MarkFired missing")

	require.NoError(t, s.Schedules().SetEnabled(ctx, sc.ScheduleID, false), "SetEnabled")
	enabled, err = s.Schedules().ListEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, containsSchedule(enabled, sc.ScheduleID), "disabled schedule still returned")

	// Call logs
	_, err = s.CallLogs().Append(ctx, &model.CallLog{
		UserID:   userID,
		CallTime: firedAt,
		Summary:  "Scheduler triggered; telephony dispatch pending.",
		Mood:     "neutral",
		Topics:   u.Interests,
	})
	require.NoError(t, err, "AppendCallLog")

	logs, err := s.CallLogs().ListByUser(ctx, userID)
	require.NoError(t, err, "ListByUser")
	require.Len(t, logs, 1)

	l := logs[0]
	assert.Zero(t, l.DurationSeconds)
	assert.False(t, l.Answered)
	assert.Nil(t, l.RecordingURL)
	assert.Equal(t, "neutral", l.Mood)
	assert.Equal(t, u.Interests, l.Topics)
}

func containsSchedule(in []*model.Schedule, id string) bool {
	for _, s := range in {
		if s.ScheduleID == id {
			return true
		}
	}
	return false
}
