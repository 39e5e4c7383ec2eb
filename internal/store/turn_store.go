package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/platelens/platelens/internal/domain"
)

type TurnStore struct {
	db *sql.DB
}

func NewTurnStore(db *sql.DB) *TurnStore {
	return &TurnStore{db: db}
}

func (s *TurnStore) Create(ctx context.Context, sessionID string, round int, prompt, response string) (*domain.ConversationTurn, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_turns (session_id, round, prompt, response) VALUES (?, ?, ?, ?)
	`, sessionID, round, prompt, response)
	if err != nil {
		return nil, fmt.Errorf("failed to create turn: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *TurnStore) GetByID(ctx context.Context, id int64) (*domain.ConversationTurn, error) {
	turn := &domain.ConversationTurn{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, round, prompt, response, created_at FROM conversation_turns WHERE id = ?
	`, id).Scan(&turn.ID, &turn.SessionID, &turn.Round, &turn.Prompt, &turn.Response, &turn.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get turn: %w", err)
	}

	return turn, nil
}

// ListBySessionID returns a session's turns oldest first, the order they were
// exchanged with the model.
func (s *TurnStore) ListBySessionID(ctx context.Context, sessionID string) ([]*domain.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, round, prompt, response, created_at FROM conversation_turns
		WHERE session_id = ? ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var turns []*domain.ConversationTurn
	for rows.Next() {
		turn := &domain.ConversationTurn{}
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Round, &turn.Prompt, &turn.Response, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}

	return turns, nil
}
