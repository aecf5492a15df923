package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"macrotrack/internal/daykey"
	"macrotrack/internal/history"
	"macrotrack/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, f *fixture, userID string, id string, at time.Time, cal float64) {
	t.Helper()
	require.NoError(t, f.store.PutEntry(context.Background(), userID, model.FoodEntry{
		ID:         id,
		Name:       id,
		Macros:     model.Macros{Calories: cal, Protein: 10},
		CapturedAt: at,
	}))
}

func newHistoryService(f *fixture) HistoryService {
	return NewHistoryService(f.users, f.store, f.quota, f.clock, daykey.New(time.UTC), nil, zerolog.Nop())
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", model.PlanFree)
	seed(t, f, "u1", "breakfast", start.Add(-2*time.Hour), 1500)
	seed(t, f, "u1", "lunch", start.Add(-time.Hour), 900)
	seed(t, f, "u1", "yesterday", start.Add(-24*time.Hour), 500)
	seed(t, f, "other", "theirs", start, 9999)

	d, err := newHistoryService(f).Dashboard(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "2030-06-14", d.DayKey)
	require.Len(t, d.Today.Entries, 2)
	assert.Equal(t, "lunch", d.Today.Entries[0].ID)
	assert.Equal(t, 2400.0, d.Today.Totals.Calories)
	assert.Equal(t, 2, d.Streak)
	require.Len(t, d.Chart, history.DefaultWindow)
	assert.Equal(t, 2400.0, d.Chart[6].Value)
	assert.Equal(t, 500.0, d.Chart[5].Value)
	assert.Equal(t, history.Exceeded, d.GoalStatus.Calories)
	assert.Equal(t, history.WithinGoal, d.GoalStatus.Protein)
	assert.Equal(t, model.DefaultGoals, d.Goals)
	assert.Equal(t, 3, d.Quota.Limit)
}

func TestDashboardEmptyDay(t *testing.T) {
	f := newFixture(t)
	d, err := newHistoryService(f).Dashboard(context.Background(), "new-user")
	require.NoError(t, err)
	assert.Equal(t, "2030-06-14", d.Today.DayKey)
	assert.Empty(t, d.Today.Entries)
	assert.Zero(t, d.Streak)
	for _, p := range d.Chart {
		assert.Zero(t, p.Value)
	}
}

func TestDashboardStaleSnapshotDiscarded(t *testing.T) {
	f := newFixture(t)
	svc := newHistoryService(f).(*historyService)
	ctx := context.Background()

	// An older refresh starts, then a newer one starts and finishes first.
	older := svc.gate.Begin("u1")
	newer, err := svc.Dashboard(ctx, "u1")
	require.NoError(t, err)

	stale := &Dashboard{DayKey: "stale"}
	got, accepted := svc.gate.Complete("u1", older, stale)
	assert.False(t, accepted)
	assert.Same(t, newer, got)
	assert.Zero(t, svc.gate.Len())
}

func TestDashboardStorageOffline(t *testing.T) {
	f := newFixture(t)
	f.store.SetOffline(true)
	svc := newHistoryService(f).(*historyService)
	_, err := svc.Dashboard(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Zero(t, svc.gate.Len())
}

func TestDashboardForgetsUsersAfterRefresh(t *testing.T) {
	f := newFixture(t)
	svc := newHistoryService(f).(*historyService)
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		_, err := svc.Dashboard(ctx, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
	}
	assert.Zero(t, svc.gate.Len())
}

func TestHistoryRequiresPaidPlan(t *testing.T) {
	f := newFixture(t)
	f.user(t, "free", model.PlanFree)
	f.user(t, "paid", model.PlanPaid)
	seed(t, f, "paid", "a", start.Add(-48*time.Hour), 100)
	seed(t, f, "paid", "b", start, 200)
	svc := newHistoryService(f)

	_, err := svc.History(context.Background(), "free")
	assert.ErrorIs(t, err, ErrUpgradeRequired)

	logs, err := svc.History(context.Background(), "paid")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "2030-06-14", logs[0].DayKey)
	assert.Equal(t, "2030-06-12", logs[1].DayKey)
}
