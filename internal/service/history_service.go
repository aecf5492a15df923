package service

import (
	"context"

	"macrotrack/internal/daykey"
	"macrotrack/internal/history"
	"macrotrack/internal/metrics"
	"macrotrack/internal/model"
	"macrotrack/internal/repository"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Dashboard is the home screen: today, streak, weekly chart and goal status.
type Dashboard struct {
	DayKey     string              `json:"day_key"`
	Today      model.DayLog        `json:"today"`
	Streak     int                 `json:"streak"`
	Chart      []model.SeriesPoint `json:"chart"`
	Goals      model.Macros        `json:"goals"`
	GoalStatus history.GoalStatus  `json:"goal_status"`
	Quota      QuotaStatus         `json:"quota"`
	Plan       model.Plan          `json:"plan"`
}

type HistoryService interface {
	// Dashboard builds a fresh snapshot. If a snapshot for the same user that
	// started later has already completed, that newer one is returned.
	Dashboard(ctx context.Context, userID string) (*Dashboard, error)
	// History returns every day with entries, newest first. Paid plan only.
	History(ctx context.Context, userID string) ([]model.DayLog, error)
}

type historyService struct {
	users   UserService
	entries repository.EntryRepository
	quota   QuotaService
	clock   quartz.Clock
	days    daykey.Convention
	gate    *history.Latest[*Dashboard]
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewHistoryService(users UserService, entries repository.EntryRepository, quota QuotaService, clock quartz.Clock, days daykey.Convention, m *metrics.Metrics, logger zerolog.Logger) HistoryService {
	return &historyService{
		users:   users,
		entries: entries,
		quota:   quota,
		clock:   clock,
		days:    days,
		gate:    history.NewLatest[*Dashboard](),
		metrics: m,
		logger:  logger.With().Str("service", "HistoryService").Logger(),
	}
}

// load fetches the user and their entries concurrently.
func (s *historyService) load(ctx context.Context, userID string) (*model.UserAccount, []model.FoodEntry, error) {
	var (
		user    *model.UserAccount
		entries []model.FoodEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.users.GetOrCreate(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.entries.ListEntries(gctx, userID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list entries")
			return storageErr(err, nil, "list entries")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return user, entries, nil
}

func (s *historyService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	seq := s.gate.Begin(userID)

	user, entries, err := s.load(ctx, userID)
	if err != nil {
		s.gate.Abandon(userID)
		return nil, err
	}

	now := s.clock.Now()
	logs := history.Aggregate(entries, now, s.days)
	today := history.Today(logs, now, s.days)
	snap := &Dashboard{
		DayKey:     today.DayKey,
		Today:      today,
		Streak:     history.Streak(logs, now, s.days),
		Chart:      history.Window(logs, now, history.DefaultWindow, s.days),
		Goals:      user.Goals,
		GoalStatus: history.Compare(today.Totals, user.Goals),
		Quota:      s.quota.StatusFor(user),
		Plan:       user.Plan,
	}

	current, accepted := s.gate.Complete(userID, seq, snap)
	if !accepted {
		s.metrics.DashboardDiscarded()
		s.logger.Debug().Str("user_id", userID).Uint64("seq", seq).Msg("Discarded stale dashboard snapshot")
	}
	return current, nil
}

func (s *historyService) History(ctx context.Context, userID string) ([]model.DayLog, error) {
	user, entries, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Plan != model.PlanPaid {
		return nil, ErrUpgradeRequired
	}
	return history.Aggregate(entries, s.clock.Now(), s.days), nil
}
