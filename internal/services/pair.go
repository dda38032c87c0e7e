package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/models"
	"github.com/QwerTayu/anniversary-calendar/internal/pairing"
)

// PairService drives the pairing state machine: invitation issuance,
// acceptance and disconnection. The atomic parts live in the store; this
// layer owns code generation and retry.
type PairService struct {
	pairs PairStore
	feed  Feed
	now   func() time.Time
}

// NewPairService creates a new pair service
func NewPairService(pairs PairStore, feed Feed) *PairService {
	return &PairService{
		pairs: pairs,
		feed:  feed,
		now:   time.Now,
	}
}

// IssueInvite purges the issuer's previous invitations and creates a fresh
// one. Code generation retries a bounded number of times on collision.
func (s *PairService) IssueInvite(ctx context.Context, issuerID string) (*models.Invitation, error) {
	if err := s.pairs.PurgeInvitations(ctx, issuerID); err != nil {
		return nil, fmt.Errorf("failed to purge old invitations: %w", err)
	}

	for attempt := 0; attempt < pairing.MaxGenerateAttempts; attempt++ {
		code := pairing.GenerateCode()
		exists, err := s.pairs.InvitationCodeExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check code existence: %w", err)
		}
		if exists {
			continue
		}

		now := s.now()
		inv := &models.Invitation{
			Code:      code,
			IssuerID:  issuerID,
			ExpiresAt: now.Add(pairing.TTL),
			CreatedAt: now,
		}
		if err := s.pairs.CreateInvitation(ctx, inv); err != nil {
			return nil, fmt.Errorf("failed to create invitation: %w", err)
		}
		return inv, nil
	}
	return nil, pairing.ErrCodeGenerationExhausted
}

// Accept consumes an invitation code on behalf of accepterID.
func (s *PairService) Accept(ctx context.Context, accepterID, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != pairing.CodeLength {
		return pairing.ErrInvalidCode
	}

	issuerID, err := s.pairs.Accept(ctx, code, accepterID, s.now())
	if err != nil {
		return err
	}

	s.feed.PairingChanged(ctx, issuerID, accepterID)
	return nil
}

// Disconnect unlinks the user from their partner. Without a partner it is a
// no-op success.
func (s *PairService) Disconnect(ctx context.Context, userID string) error {
	partnerID, err := s.pairs.Disconnect(ctx, userID)
	if err != nil {
		return err
	}

	if partnerID != nil {
		s.feed.PairingChanged(ctx, userID, *partnerID)
	} else {
		s.feed.PairingChanged(ctx, userID)
	}
	return nil
}
