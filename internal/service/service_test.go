package service

import (
	"context"
	"testing"
	"time"

	"macrotrack/internal/daykey"
	"macrotrack/internal/model"
	"macrotrack/internal/repository"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// start is far enough ahead that the mock clock never has to move backwards.
var start = time.Date(2030, 6, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store *repository.MemoryStore
	clock *quartz.Mock
	users UserService
	quota QuotaService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := quartz.NewMock(t)
	clock.Set(start)
	users := NewUserService(store, zerolog.Nop())
	return &fixture{
		store: store,
		clock: clock,
		users: users,
		quota: NewQuotaService(store, clock, daykey.New(time.UTC), 3, nil, zerolog.Nop()),
	}
}

func (f *fixture) user(t *testing.T, id string, plan model.Plan) *model.UserAccount {
	t.Helper()
	ctx := context.Background()
	_, err := f.users.GetOrCreate(ctx, id)
	require.NoError(t, err)
	if plan != model.PlanFree {
		require.NoError(t, f.users.SetPlan(ctx, id, plan))
	}
	u, err := f.users.GetOrCreate(ctx, id)
	require.NoError(t, err)
	return u
}
