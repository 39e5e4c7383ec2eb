package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/platelens/platelens/internal/domain"
)

type EstimateStore struct {
	db *sql.DB
}

func NewEstimateStore(db *sql.DB) *EstimateStore {
	return &EstimateStore{db: db}
}

// Replace swaps a session's estimates for items in a single transaction so a
// failed write never leaves a half-replaced breakdown. Position preserves the
// model's item order for display.
func (s *EstimateStore) Replace(ctx context.Context, sessionID string, items []*domain.FoodItemEstimate) ([]*domain.FoodItemEstimate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM food_item_estimates WHERE session_id = ?
	`, sessionID); err != nil {
		return nil, fmt.Errorf("failed to delete old estimates: %w", err)
	}

	for i, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO food_item_estimates
				(session_id, name, portion, calories, protein_grams, carbs_grams, fat_grams, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, sessionID, item.Name, item.Portion, item.Calories, item.ProteinGrams, item.CarbsGrams, item.FatGrams, i); err != nil {
			return nil, fmt.Errorf("failed to insert estimate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit estimates: %w", err)
	}

	return s.ListBySessionID(ctx, sessionID)
}

func (s *EstimateStore) ListBySessionID(ctx context.Context, sessionID string) ([]*domain.FoodItemEstimate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, name, portion, calories, protein_grams, carbs_grams, fat_grams
		FROM food_item_estimates
		WHERE session_id = ? ORDER BY position ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list estimates: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var items []*domain.FoodItemEstimate
	for rows.Next() {
		item := &domain.FoodItemEstimate{}
		if err := rows.Scan(&item.ID, &item.SessionID, &item.Name, &item.Portion,
			&item.Calories, &item.ProteinGrams, &item.CarbsGrams, &item.FatGrams); err != nil {
			return nil, fmt.Errorf("failed to scan estimate: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating estimates: %w", err)
	}

	return items, nil
}
