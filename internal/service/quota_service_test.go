package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"macrotrack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCheckAndConsumeSameDayCounts(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", model.PlanFree)
	ctx := context.Background()

	var counts []int
	for i := 0; i < 4; i++ {
		d, err := f.quota.CheckAndConsume(ctx, "u1")
		require.NoError(t, err)
		counts = append(counts, d.Count)
		assert.Equal(t, d.Count <= 3, d.Allowed)
		assert.Equal(t, 3, d.Limit)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, counts)
}

func TestCheckAndConsumeRollsOverOnNewDay(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", model.PlanFree)
	ctx := context.Background()

	// Yesterday's count was 99; the first call today resets to 1.
	require.NoError(t, f.store.SetQuota(ctx, "u1", model.QuotaState{Count: 99, LastResetDayKey: "2030-06-13"}))

	d, err := f.quota.CheckAndConsume(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Count)
	assert.True(t, d.Allowed)

	d, err = f.quota.CheckAndConsume(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Count)

	f.clock.Set(start.Add(24 * time.Hour))
	d, err = f.quota.CheckAndConsume(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Count)
}

func TestCheckAndConsumeExhaustedUntilNextDay(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", model.PlanFree)
	ctx := context.Background()
	require.NoError(t, f.store.SetQuota(ctx, "u1", model.QuotaState{Count: 3, LastResetDayKey: "2030-06-14"}))

	d, err := f.quota.CheckAndConsume(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// Late the same evening is still the same day.
	f.clock.Set(time.Date(2030, 6, 14, 23, 59, 0, 0, time.UTC))
	d, err = f.quota.CheckAndConsume(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	f.clock.Set(time.Date(2030, 6, 15, 0, 0, 1, 0, time.UTC))
	d, err = f.quota.CheckAndConsume(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestCheckAndConsumeConcurrentCallsGetDistinctCounts(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", model.PlanFree)

	const n = 32
	counts := make([]int, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			d, err := f.quota.CheckAndConsume(context.Background(), "u1")
			counts[i] = d.Count
			return err
		})
	}
	require.NoError(t, g.Wait())

	sort.Ints(counts)
	for i, c := range counts {
		assert.Equal(t, i+1, c)
	}
	allowed := 0
	for _, c := range counts {
		if c <= 3 {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
}

func TestCheckAndConsumePaidAlwaysAllowed(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", model.PlanPaid)

	for i := 0; i < 10; i++ {
		d, err := f.quota.CheckAndConsume(context.Background(), "u1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, model.PlanPaid, d.Plan)
	}
}

func TestCheckAndConsumeStorageOffline(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", model.PlanFree)
	ctx := context.Background()

	f.store.SetOffline(true)
	_, err := f.quota.CheckAndConsume(ctx, "u1")
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.True(t, IsRetryable(err))
	assert.NotErrorIs(t, err, ErrQuotaExceeded)

	f.store.SetOffline(false)
	d, err := f.quota.CheckAndConsume(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Count, "failed call must not consume a unit")
}

func TestCheckAndConsumeUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.quota.CheckAndConsume(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStatusFor(t *testing.T) {
	f := newFixture(t)

	free := &model.UserAccount{Plan: model.PlanFree, Quota: model.QuotaState{Count: 3, LastResetDayKey: "2030-06-14"}}
	assert.Equal(t, QuotaStatus{Used: 3, Limit: 3, Exceeded: true}, f.quota.StatusFor(free))

	stale := &model.UserAccount{Plan: model.PlanFree, Quota: model.QuotaState{Count: 3, LastResetDayKey: "2030-06-13"}}
	assert.Equal(t, QuotaStatus{Used: 0, Limit: 3}, f.quota.StatusFor(stale))

	paid := &model.UserAccount{Plan: model.PlanPaid, Quota: model.QuotaState{Count: 50, LastResetDayKey: "2030-06-14"}}
	assert.Equal(t, QuotaStatus{Used: 50, Limit: 3, Unlimited: true}, f.quota.StatusFor(paid))
}
