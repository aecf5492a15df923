package service

import (
	"context"

	"macrotrack/internal/daykey"
	"macrotrack/internal/metrics"
	"macrotrack/internal/model"
	"macrotrack/internal/repository"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

// QuotaDecision is the result of consuming one analysis unit.
type QuotaDecision struct {
	Allowed bool
	Count   int
	Limit   int
	Plan    model.Plan
}

// QuotaStatus is the read-only view of today's usage.
type QuotaStatus struct {
	Used     int  `json:"used"`
	Limit    int  `json:"limit"`
	Exceeded bool `json:"exceeded"`
	// Unlimited is true for paid plans; Limit is informational then.
	Unlimited bool `json:"unlimited"`
}

// QuotaService tracks the per-user daily analysis counter.
type QuotaService interface {
	// CheckAndConsume advances today's counter and reports whether this call
	// is within budget. The counter advances even when the answer is no.
	// On error nothing was consumed.
	CheckAndConsume(ctx context.Context, userID string) (QuotaDecision, error)
	// StatusFor derives today's usage from an account record.
	StatusFor(u *model.UserAccount) QuotaStatus
}

type quotaService struct {
	store   repository.UsageRepository
	clock   quartz.Clock
	days    daykey.Convention
	limit   int
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewQuotaService creates a QuotaService. clock must be the server's clock,
// never a value supplied by the client.
func NewQuotaService(store repository.UsageRepository, clock quartz.Clock, days daykey.Convention, freeLimit int, m *metrics.Metrics, logger zerolog.Logger) QuotaService {
	return &quotaService{
		store:   store,
		clock:   clock,
		days:    days,
		limit:   freeLimit,
		metrics: m,
		logger:  logger.With().Str("service", "QuotaService").Logger(),
	}
}

func (s *quotaService) CheckAndConsume(ctx context.Context, userID string) (QuotaDecision, error) {
	today := s.days.Key(s.clock.Now())

	res, err := s.store.AdvanceQuota(ctx, userID, today)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("day_key", today).Msg("Failed to advance quota")
		return QuotaDecision{}, storageErr(err, ErrUserNotFound, "advance quota")
	}

	d := QuotaDecision{
		Allowed: res.Plan == model.PlanPaid || res.Count <= s.limit,
		Count:   res.Count,
		Limit:   s.limit,
		Plan:    res.Plan,
	}
	outcome := "allowed"
	if !d.Allowed {
		outcome = "exceeded"
		s.logger.Info().Str("user_id", userID).Int("count", d.Count).Int("limit", d.Limit).Msg("Daily analysis quota exceeded")
	}
	s.metrics.QuotaDecision(string(res.Plan), outcome)
	return d, nil
}

func (s *quotaService) StatusFor(u *model.UserAccount) QuotaStatus {
	used := u.Quota.UsedOn(s.days.Key(s.clock.Now()))
	paid := u.Plan == model.PlanPaid
	return QuotaStatus{
		Used:      used,
		Limit:     s.limit,
		Exceeded:  !paid && used >= s.limit,
		Unlimited: paid,
	}
}
