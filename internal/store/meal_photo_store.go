package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platelens/platelens/internal/domain"
)

type MealPhotoStore struct {
	db *sql.DB
}

func NewMealPhotoStore(db *sql.DB) *MealPhotoStore {
	return &MealPhotoStore{db: db}
}

func (s *MealPhotoStore) Create(ctx context.Context, sessionID, storageKey, mimeType string) (*domain.MealPhoto, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO meal_photos (session_id, storage_key, mime_type) VALUES (?, ?, ?)
	`, sessionID, storageKey, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *MealPhotoStore) GetByID(ctx context.Context, id int64) (*domain.MealPhoto, error) {
	photo := &domain.MealPhoto{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, storage_key, mime_type, uploaded_at FROM meal_photos WHERE id = ?
	`, id).Scan(&photo.ID, &photo.SessionID, &photo.StorageKey, &photo.MimeType, &photo.UploadedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}

	return photo, nil
}

func (s *MealPhotoStore) GetBySessionID(ctx context.Context, sessionID string) (*domain.MealPhoto, error) {
	photo := &domain.MealPhoto{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, storage_key, mime_type, uploaded_at FROM meal_photos
		WHERE session_id = ? ORDER BY uploaded_at DESC LIMIT 1
	`, sessionID).Scan(&photo.ID, &photo.SessionID, &photo.StorageKey, &photo.MimeType, &photo.UploadedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}

	return photo, nil
}

func (s *MealPhotoStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM meal_photos WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("photo not found")
	}

	return nil
}
