package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/QwerTayu/anniversary-calendar/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const memoryColumns = "id, owner_id, title, detail, event_date, recurrence_key, is_shared, created_at, updated_at"

// MemoryRepository handles database operations for memories
type MemoryRepository struct {
	db *pgxpool.Pool
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(db *pgxpool.Pool) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// Create creates a new memory
func (r *MemoryRepository) Create(ctx context.Context, m *models.Memory) error {
	query := `
		INSERT INTO memories (` + memoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.OwnerID, m.Title, m.Detail, m.EventDate,
		m.RecurrenceKey, m.IsShared, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create memory: %w", err)
	}
	return nil
}

// GetByID retrieves a memory by ID
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE id = $1`
	m, err := scanMemory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("memory %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	return m, nil
}

// Update rewrites a memory's mutable fields, recurrence key included.
func (r *MemoryRepository) Update(ctx context.Context, m *models.Memory) error {
	query := `
		UPDATE memories
		SET title = $1, detail = $2, event_date = $3, recurrence_key = $4, is_shared = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := r.db.Exec(ctx, query,
		m.Title, m.Detail, m.EventDate, m.RecurrenceKey, m.IsShared, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update memory: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("memory %s: %w", m.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a memory together with its photos, and clears the owner's
// pin when it pointed at this memory. One transaction, no dangling pin.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM photos WHERE memory_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete memory photos: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET pinned_memory_id = NULL, updated_at = now() WHERE pinned_memory_id = $1`, id,
	); err != nil {
		return fmt.Errorf("failed to clear pinned memory: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit memory deletion: %w", err)
	}
	return nil
}

// ListForMonth retrieves one owner's memories whose key falls in a month.
// The MM00-MM99 key range covers every day of the month in one index scan.
func (r *MemoryRepository) ListForMonth(ctx context.Context, ownerID string, month int, sharedOnly bool) ([]*models.Memory, error) {
	query := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE owner_id = $1
		  AND recurrence_key BETWEEN $2 AND $3
		  AND ($4 = false OR is_shared = true)
		ORDER BY recurrence_key, event_date
	`
	start := fmt.Sprintf("%02d00", month)
	end := fmt.Sprintf("%02d99", month)
	rows, err := r.db.Query(ctx, query, ownerID, start, end, sharedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories for month: %w", err)
	}
	return collectMemories(rows)
}

// ListByKeys retrieves one owner's memories matching any of the given keys.
func (r *MemoryRepository) ListByKeys(ctx context.Context, ownerID string, keys []string, sharedOnly bool) ([]*models.Memory, error) {
	query := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE owner_id = $1
		  AND recurrence_key = ANY($2)
		  AND ($3 = false OR is_shared = true)
		ORDER BY recurrence_key, event_date
	`
	rows, err := r.db.Query(ctx, query, ownerID, keys, sharedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories by keys: %w", err)
	}
	return collectMemories(rows)
}

// ListAll retrieves all of one owner's memories.
func (r *MemoryRepository) ListAll(ctx context.Context, ownerID string, sharedOnly bool) ([]*models.Memory, error) {
	query := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE owner_id = $1
		  AND ($2 = false OR is_shared = true)
		ORDER BY recurrence_key, event_date
	`
	rows, err := r.db.Query(ctx, query, ownerID, sharedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	return collectMemories(rows)
}

// ListAllByKeys retrieves every user's memories matching the given keys.
// Used by the notification dispatcher.
func (r *MemoryRepository) ListAllByKeys(ctx context.Context, keys []string) ([]*models.Memory, error) {
	query := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE recurrence_key = ANY($1)
		ORDER BY owner_id, recurrence_key, event_date
	`
	rows, err := r.db.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories by keys: %w", err)
	}
	return collectMemories(rows)
}

func scanMemory(row pgx.Row) (*models.Memory, error) {
	var m models.Memory
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Title, &m.Detail, &m.EventDate,
		&m.RecurrenceKey, &m.IsShared, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMemories(rows pgx.Rows) ([]*models.Memory, error) {
	defer rows.Close()

	var memories []*models.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memories: %w", err)
	}
	return memories, nil
}
