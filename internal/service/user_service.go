package service

import (
	"context"
	"errors"

	"macrotrack/internal/model"
	"macrotrack/internal/repository"

	"github.com/rs/zerolog"
)

type UserService interface {
	// GetOrCreate returns the user's record, creating it with default goals
	// on first access.
	GetOrCreate(ctx context.Context, userID string) (*model.UserAccount, error)
	UpdateGoals(ctx context.Context, userID string, goals model.Macros) (*model.UserAccount, error)
	UpdateWebhookURL(ctx context.Context, userID, url string) (*model.UserAccount, error)
	SetPlan(ctx context.Context, userID string, plan model.Plan) error
}

type userService struct {
	repo   repository.UserRepository
	logger zerolog.Logger
}

func NewUserService(repo repository.UserRepository, logger zerolog.Logger) UserService {
	return &userService{
		repo:   repo,
		logger: logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) GetOrCreate(ctx context.Context, userID string) (*model.UserAccount, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user")
		return nil, storageErr(err, nil, "get user")
	}

	u, err = s.repo.CreateUser(ctx, &model.UserAccount{
		UserID: userID,
		Goals:  model.DefaultGoals,
		Plan:   model.PlanFree,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create user")
		return nil, storageErr(err, nil, "create user")
	}
	s.logger.Info().Str("user_id", userID).Msg("Created user with default goals")
	return u, nil
}

func (s *userService) UpdateGoals(ctx context.Context, userID string, goals model.Macros) (*model.UserAccount, error) {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateGoals(ctx, userID, goals.Sanitize()); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update goals")
		return nil, storageErr(err, ErrUserNotFound, "update goals")
	}
	return s.GetOrCreate(ctx, userID)
}

func (s *userService) UpdateWebhookURL(ctx context.Context, userID, url string) (*model.UserAccount, error) {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateWebhookURL(ctx, userID, url); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update webhook url")
		return nil, storageErr(err, ErrUserNotFound, "update webhook url")
	}
	return s.GetOrCreate(ctx, userID)
}

// SetPlan is called by the billing integration.
func (s *userService) SetPlan(ctx context.Context, userID string, plan model.Plan) error {
	if !plan.Valid() {
		return ErrInvalidPlan
	}
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.SetPlan(ctx, userID, plan); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("plan", string(plan)).Msg("Failed to set plan")
		return storageErr(err, ErrUserNotFound, "set plan")
	}
	s.logger.Info().Str("user_id", userID).Str("plan", string(plan)).Msg("Plan updated")
	return nil
}
