package repository

import (
	"context"
	"errors"
	"fmt"

	"macrotrack/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EntryRepository stores food entries. Entries are always scoped to their owner.
type EntryRepository interface {
	// ListEntries returns every entry of the user in no particular order.
	ListEntries(ctx context.Context, userID string) ([]model.FoodEntry, error)
	GetEntry(ctx context.Context, userID, entryID string) (*model.FoodEntry, error)
	// PutEntry inserts or replaces the entry with e.ID.
	PutEntry(ctx context.Context, userID string, e model.FoodEntry) error
	// PutEntries upserts all entries or none of them.
	PutEntries(ctx context.Context, userID string, entries []model.FoodEntry) error
	DeleteEntry(ctx context.Context, userID, entryID string) error
}

type entryRepo struct {
	pool *pgxpool.Pool
}

// NewEntryRepo creates a new EntryRepository.
func NewEntryRepo(pool *pgxpool.Pool) EntryRepository {
	return &entryRepo{pool: pool}
}

const entryColumns = `id, user_id, name, notes, calories, protein, carbs, fat, captured_at, image_ref`

func scanEntry(row pgx.Row) (model.FoodEntry, error) {
	var e model.FoodEntry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Name,
		&e.Notes,
		&e.Macros.Calories,
		&e.Macros.Protein,
		&e.Macros.Carbs,
		&e.Macros.Fat,
		&e.CapturedAt,
		&e.ImageRef,
	)
	return e, err
}

func (r *entryRepo) ListEntries(ctx context.Context, userID string) ([]model.FoodEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM food_entries WHERE user_id = $1`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for user %s: %w", userID, err)
	}
	defer rows.Close()

	entries := []model.FoodEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

func (r *entryRepo) GetEntry(ctx context.Context, userID, entryID string) (*model.FoodEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM food_entries WHERE user_id = $1 AND id = $2`
	e, err := scanEntry(r.pool.QueryRow(ctx, q, userID, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch entry %s: %w", entryID, err)
	}
	return &e, nil
}

const upsertEntryQ = `
		INSERT INTO food_entries (id, user_id, name, notes, calories, protein, carbs, fat, captured_at, image_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, id) DO UPDATE
		SET name = EXCLUDED.name,
			notes = EXCLUDED.notes,
			calories = EXCLUDED.calories,
			protein = EXCLUDED.protein,
			carbs = EXCLUDED.carbs,
			fat = EXCLUDED.fat,
			image_ref = EXCLUDED.image_ref,
			updated_at = NOW()
	`

func upsertArgs(userID string, e model.FoodEntry) []any {
	return []any{
		e.ID, userID, e.Name, e.Notes,
		e.Macros.Calories, e.Macros.Protein, e.Macros.Carbs, e.Macros.Fat,
		e.CapturedAt, e.ImageRef,
	}
}

func (r *entryRepo) PutEntry(ctx context.Context, userID string, e model.FoodEntry) error {
	if _, err := r.pool.Exec(ctx, upsertEntryQ, upsertArgs(userID, e)...); err != nil {
		return fmt.Errorf("upserting entry %s for user %s: %w", e.ID, userID, err)
	}
	return nil
}

func (r *entryRepo) PutEntries(ctx context.Context, userID string, entries []model.FoodEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction for entries: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(upsertEntryQ, upsertArgs(userID, e)...)
	}
	results := tx.SendBatch(ctx, batch)
	for _, e := range entries {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("upserting entry %s for user %s: %w", e.ID, userID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing entry batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing %d entries for user %s: %w", len(entries), userID, err)
	}
	return nil
}

func (r *entryRepo) DeleteEntry(ctx context.Context, userID, entryID string) error {
	const q = `DELETE FROM food_entries WHERE user_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, q, userID, entryID)
	if err != nil {
		return fmt.Errorf("deleting entry %s for user %s: %w", entryID, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
