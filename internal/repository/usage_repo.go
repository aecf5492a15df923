package repository

import (
	"context"
	"errors"
	"fmt"

	"macrotrack/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxQuotaTxAttempts bounds retries of a quota transaction that lost a
// serialization race.
const maxQuotaTxAttempts = 8

// UsageRepository owns the daily analysis counter.
type UsageRepository interface {
	// AdvanceQuota atomically resets the user's counter to 1 when its day key
	// differs from today and increments it otherwise. It returns the new count
	// and the user's plan as read inside the same transaction.
	AdvanceQuota(ctx context.Context, userID, today string) (model.QuotaUpdate, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) AdvanceQuota(ctx context.Context, userID, today string) (model.QuotaUpdate, error) {
	var lastErr error
	for attempt := 0; attempt < maxQuotaTxAttempts; attempt++ {
		res, err := r.advanceOnce(ctx, userID, today)
		if err == nil || !isSerializationFailure(err) {
			return res, err
		}
		lastErr = err
	}
	return model.QuotaUpdate{}, fmt.Errorf("advancing quota for user %s after %d attempts: %w", userID, maxQuotaTxAttempts, lastErr)
}

func (r *usageRepo) advanceOnce(ctx context.Context, userID, today string) (model.QuotaUpdate, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.QuotaUpdate{}, fmt.Errorf("starting transaction for quota update: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const selectQ = `
		SELECT plan, quota_count, quota_day_key
		FROM user_accounts
		WHERE user_id = $1
		FOR UPDATE
	`
	var plan string
	var cur model.QuotaState
	if err := tx.QueryRow(ctx, selectQ, userID).Scan(&plan, &cur.Count, &cur.LastResetDayKey); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.QuotaUpdate{}, ErrNotFound
		}
		return model.QuotaUpdate{}, fmt.Errorf("reading quota for user %s: %w", userID, err)
	}

	next := cur.Advance(today)
	const updateQ = `
		UPDATE user_accounts
		SET quota_count = $2, quota_day_key = $3, updated_at = NOW()
		WHERE user_id = $1
	`
	if _, err := tx.Exec(ctx, updateQ, userID, next.Count, next.LastResetDayKey); err != nil {
		return model.QuotaUpdate{}, fmt.Errorf("writing quota for user %s: %w", userID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.QuotaUpdate{}, fmt.Errorf("committing quota for user %s: %w", userID, err)
	}
	return model.QuotaUpdate{Count: next.Count, Plan: model.Plan(plan)}, nil
}
