// Package pairing holds the pairing state machine's domain rules: invitation
// code generation and the acceptance checks. The transactional application of
// these rules lives in the repository layer.
package pairing

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/models"
)

const (
	// CodeLength is the invitation code length.
	CodeLength = 6
	codeChars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// TTL is how long an invitation stays acceptable after issuance.
	TTL = 5 * time.Minute

	// MaxGenerateAttempts bounds the collision retry loop when issuing a code.
	MaxGenerateAttempts = 8
)

var (
	ErrInvalidCode             = errors.New("invalid code")
	ErrCodeExpired             = errors.New("code expired")
	ErrInvalidIssuer           = errors.New("invalid issuer")
	ErrAlreadyPaired           = errors.New("already paired")
	ErrCodeGenerationExhausted = errors.New("failed to generate unique code")
)

// GenerateCode returns a random invitation code from [0-9A-Z].
func GenerateCode() string {
	code := make([]byte, CodeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}

// ValidateAcceptance decides whether accepter may consume inv to pair with
// its issuer. It must be evaluated inside the same transaction that applies
// the link, or two concurrent acceptances could both pass.
func ValidateAcceptance(inv *models.Invitation, issuer, accepter *models.User, now time.Time) error {
	if inv == nil {
		return ErrInvalidCode
	}
	if now.After(inv.ExpiresAt) {
		return ErrCodeExpired
	}
	if issuer == nil || accepter == nil || issuer.ID == accepter.ID {
		return ErrInvalidIssuer
	}
	if issuer.PartnerID != nil || accepter.PartnerID != nil {
		return ErrAlreadyPaired
	}
	return nil
}
