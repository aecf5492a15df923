package repository

import (
	"context"
	"errors"
	"fmt"

	"macrotrack/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository reads and writes user account records.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*model.UserAccount, error)
	// CreateUser inserts u unless a record already exists and returns the stored record.
	CreateUser(ctx context.Context, u *model.UserAccount) (*model.UserAccount, error)
	UpdateGoals(ctx context.Context, userID string, goals model.Macros) error
	UpdateWebhookURL(ctx context.Context, userID, url string) error
	SetPlan(ctx context.Context, userID string, plan model.Plan) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a new UserRepository.
func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

const selectUserQ = `
	SELECT user_id, goal_calories, goal_protein, goal_carbs, goal_fat,
	       plan, quota_count, quota_day_key, webhook_url, created_at, updated_at
	FROM user_accounts
	WHERE user_id = $1
`

func scanUser(row pgx.Row) (*model.UserAccount, error) {
	var u model.UserAccount
	var plan string
	err := row.Scan(
		&u.UserID,
		&u.Goals.Calories,
		&u.Goals.Protein,
		&u.Goals.Carbs,
		&u.Goals.Fat,
		&plan,
		&u.Quota.Count,
		&u.Quota.LastResetDayKey,
		&u.WebhookURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Plan = model.Plan(plan)
	return &u, nil
}

func (r *userRepo) GetUser(ctx context.Context, userID string) (*model.UserAccount, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUserQ, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch user %s: %w", userID, err)
	}
	return u, nil
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.UserAccount) (*model.UserAccount, error) {
	const q = `
		INSERT INTO user_accounts (user_id, goal_calories, goal_protein, goal_carbs, goal_fat, plan, webhook_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, q, u.UserID, u.Goals.Calories, u.Goals.Protein, u.Goals.Carbs, u.Goals.Fat, string(u.Plan), u.WebhookURL); err != nil {
		return nil, fmt.Errorf("creating user %s: %w", u.UserID, err)
	}
	return r.GetUser(ctx, u.UserID)
}

func (r *userRepo) UpdateGoals(ctx context.Context, userID string, goals model.Macros) error {
	const q = `
		UPDATE user_accounts
		SET goal_calories = $2, goal_protein = $3, goal_carbs = $4, goal_fat = $5, updated_at = NOW()
		WHERE user_id = $1
	`
	return r.execOne(ctx, "update goals", userID, q, userID, goals.Calories, goals.Protein, goals.Carbs, goals.Fat)
}

func (r *userRepo) UpdateWebhookURL(ctx context.Context, userID, url string) error {
	const q = `UPDATE user_accounts SET webhook_url = $2, updated_at = NOW() WHERE user_id = $1`
	return r.execOne(ctx, "update webhook url", userID, q, userID, url)
}

func (r *userRepo) SetPlan(ctx context.Context, userID string, plan model.Plan) error {
	const q = `UPDATE user_accounts SET plan = $2, updated_at = NOW() WHERE user_id = $1`
	return r.execOne(ctx, "set plan", userID, q, userID, string(plan))
}

func (r *userRepo) execOne(ctx context.Context, op, userID, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s for user %s: %w", op, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
