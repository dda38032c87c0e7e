package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/models"
	"github.com/QwerTayu/anniversary-calendar/internal/pairing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PairRepository handles invitations and the two transactional pairing
// operations. Accept and Disconnect are the only places in the system that
// need read-check-write isolation; both lock the involved rows so a
// concurrent acceptance of the same code sees the first one's writes.
type PairRepository struct {
	db *pgxpool.Pool
}

// NewPairRepository creates a new pair repository
func NewPairRepository(db *pgxpool.Pool) *PairRepository {
	return &PairRepository{db: db}
}

// CreateInvitation persists a new invitation keyed by its code.
func (r *PairRepository) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (code, issuer_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, inv.Code, inv.IssuerID, inv.ExpiresAt, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// PurgeInvitations deletes all invitations issued by a user. Reissuing a code
// purges the old one; expired codes are otherwise left in place and rejected
// at acceptance time.
func (r *PairRepository) PurgeInvitations(ctx context.Context, issuerID string) error {
	query := `DELETE FROM invitations WHERE issuer_id = $1`
	if _, err := r.db.Exec(ctx, query, issuerID); err != nil {
		return fmt.Errorf("failed to purge invitations: %w", err)
	}
	return nil
}

// InvitationCodeExists checks if an invitation code is already taken
func (r *PairRepository) InvitationCodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM invitations WHERE code = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check invitation code: %w", err)
	}
	return exists, nil
}

// Accept consumes an invitation and links both users in one transaction.
// Returns the issuer's ID on success. Failures surface the pairing package's
// sentinel errors.
func (r *PairRepository) Accept(ctx context.Context, code, accepterID string, now time.Time) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var inv models.Invitation
	err = tx.QueryRow(ctx,
		`SELECT code, issuer_id, expires_at, created_at FROM invitations WHERE code = $1 FOR UPDATE`,
		code,
	).Scan(&inv.Code, &inv.IssuerID, &inv.ExpiresAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", pairing.ErrInvalidCode
		}
		return "", fmt.Errorf("failed to load invitation: %w", err)
	}

	// Lock both user rows in a fixed order so two concurrent acceptances
	// cannot deadlock, and the second one observes the first one's link.
	ids := []string{inv.IssuerID, accepterID}
	sort.Strings(ids)
	rows, err := tx.Query(ctx,
		`SELECT id, partner_id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		ids,
	)
	if err != nil {
		return "", fmt.Errorf("failed to lock users: %w", err)
	}
	locked := make(map[string]*models.User, 2)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.PartnerID); err != nil {
			rows.Close()
			return "", fmt.Errorf("failed to scan user: %w", err)
		}
		locked[u.ID] = &u
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating users: %w", err)
	}

	issuer := locked[inv.IssuerID]
	accepter := locked[accepterID]
	if accepter == nil {
		return "", fmt.Errorf("accepter %s: %w", accepterID, ErrNotFound)
	}
	if err := pairing.ValidateAcceptance(&inv, issuer, accepter, now); err != nil {
		return "", err
	}

	link := `UPDATE users SET partner_id = $1, updated_at = now() WHERE id = $2`
	if _, err := tx.Exec(ctx, link, accepterID, inv.IssuerID); err != nil {
		return "", fmt.Errorf("failed to link issuer: %w", err)
	}
	if _, err := tx.Exec(ctx, link, inv.IssuerID, accepterID); err != nil {
		return "", fmt.Errorf("failed to link accepter: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM invitations WHERE code = $1`, code); err != nil {
		return "", fmt.Errorf("failed to consume invitation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit acceptance: %w", err)
	}
	return inv.IssuerID, nil
}

// Disconnect clears the user's partner link on both sides in one
// transaction. Returns the former partner's ID, or nil when the user had no
// partner (a no-op success, not an error).
func (r *PairRepository) Disconnect(ctx context.Context, userID string) (*string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Peek at the partner without locking, then lock both rows in sorted
	// order so two mutual disconnects cannot deadlock. The partner link is
	// re-read under the lock; the peek only names the rows to lock.
	var peeked *string
	err = tx.QueryRow(ctx,
		`SELECT partner_id FROM users WHERE id = $1`, userID,
	).Scan(&peeked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ids := []string{userID}
	if peeked != nil {
		ids = append(ids, *peeked)
	}
	sort.Strings(ids)
	var partnerID *string
	rows, err := tx.Query(ctx,
		`SELECT id, partner_id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock users: %w", err)
	}
	for rows.Next() {
		var id string
		var link *string
		if err := rows.Scan(&id, &link); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if id == userID {
			partnerID = link
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	unlink := `UPDATE users SET partner_id = NULL, updated_at = now() WHERE id = $1`
	if _, err := tx.Exec(ctx, unlink, userID); err != nil {
		return nil, fmt.Errorf("failed to clear partner: %w", err)
	}
	if partnerID != nil {
		if _, err := tx.Exec(ctx, unlink, *partnerID); err != nil {
			return nil, fmt.Errorf("failed to clear partner's link: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit disconnect: %w", err)
	}
	return partnerID, nil
}
