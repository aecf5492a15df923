package service

import (
	"context"
	"fmt"
	"strings"

	"macrotrack/internal/metrics"
	"macrotrack/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AnalysisResult holds the proposals of one successful analysis and the
// quota state after it.
type AnalysisResult struct {
	Items []model.AnalysisItem
	Quota QuotaStatus
}

type AnalysisService interface {
	// Analyze runs the AI analyzer and consumes one quota unit only when it
	// succeeds. It returns ErrQuotaExceeded, with the current quota status
	// in the result, when the user is out of analyses.
	Analyze(ctx context.Context, userID string, req AnalysisRequest) (*AnalysisResult, error)
}

type analysisService struct {
	analyzer Analyzer
	users    UserService
	quota    QuotaService
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewAnalysisService(analyzer Analyzer, users UserService, quota QuotaService, m *metrics.Metrics, logger zerolog.Logger) AnalysisService {
	return &analysisService{
		analyzer: analyzer,
		users:    users,
		quota:    quota,
		metrics:  m,
		logger:   logger.With().Str("service", "AnalysisService").Logger(),
	}
}

func validateRequest(req AnalysisRequest) error {
	switch req.Mode {
	case ModePhoto:
		if len(req.Image) == 0 {
			return ErrNothingToAnalyze
		}
	case ModeText:
		if strings.TrimSpace(req.Text) == "" {
			return ErrNothingToAnalyze
		}
	default:
		return fmt.Errorf("unknown analysis mode %q", req.Mode)
	}
	return nil
}

func (s *analysisService) Analyze(ctx context.Context, userID string, req AnalysisRequest) (*AnalysisResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Refuse early so an exhausted user does not pay for an AI call.
	if status := s.quota.StatusFor(user); status.Exceeded {
		s.metrics.Analysis(req.Mode, "quota_exceeded")
		return &AnalysisResult{Quota: status}, ErrQuotaExceeded
	}

	items, err := s.analyzer.Analyze(ctx, req)
	if err == nil && len(items) == 0 {
		err = fmt.Errorf("no food items recognized")
	}
	if err != nil {
		s.metrics.Analysis(req.Mode, "failed")
		s.logger.Error().Err(err).Str("user_id", userID).Str("mode", req.Mode).Msg("Analysis failed")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	decision, err := s.quota.CheckAndConsume(ctx, userID)
	if err != nil {
		s.metrics.Analysis(req.Mode, "storage_error")
		return nil, err
	}
	status := QuotaStatus{
		Used:      decision.Count,
		Limit:     decision.Limit,
		Exceeded:  decision.Plan != model.PlanPaid && decision.Count >= decision.Limit,
		Unlimited: decision.Plan == model.PlanPaid,
	}
	if !decision.Allowed {
		// Another session used the last unit while the AI call was running.
		s.metrics.Analysis(req.Mode, "quota_exceeded")
		return &AnalysisResult{Quota: status}, ErrQuotaExceeded
	}

	s.metrics.Analysis(req.Mode, "ok")
	return &AnalysisResult{Items: withProposalIDs(items), Quota: status}, nil
}

// withProposalIDs gives each proposal the id its entry will get when the
// client confirms it.
func withProposalIDs(items []model.AnalysisItem) []model.AnalysisItem {
	out := make([]model.AnalysisItem, len(items))
	for i, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		out[i] = it
	}
	return out
}
