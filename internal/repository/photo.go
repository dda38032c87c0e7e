package repository

import (
	"context"
	"fmt"

	"github.com/QwerTayu/anniversary-calendar/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PhotoRepository handles database operations for memory photos
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create creates a new photo record
func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (id, memory_id, owner_id, s3_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		photo.ID, photo.MemoryID, photo.OwnerID, photo.S3URL, photo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	return nil
}

// ListByMemory retrieves a memory's photos, newest first.
func (r *PhotoRepository) ListByMemory(ctx context.Context, memoryID string) ([]*models.Photo, error) {
	query := `
		SELECT id, memory_id, owner_id, s3_url, created_at
		FROM photos
		WHERE memory_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, memoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		var photo models.Photo
		err := rows.Scan(&photo.ID, &photo.MemoryID, &photo.OwnerID, &photo.S3URL, &photo.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, &photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}
	return photos, nil
}
