package services

import (
	"context"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/models"
)

// Store interfaces consumed by the services. The repository types satisfy
// them; tests substitute in-memory fakes.

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
	SetPinnedMemory(ctx context.Context, userID string, memoryID *string) error
}

// MemoryStore persists memories.
type MemoryStore interface {
	Create(ctx context.Context, m *models.Memory) error
	GetByID(ctx context.Context, id string) (*models.Memory, error)
	Update(ctx context.Context, m *models.Memory) error
	Delete(ctx context.Context, id string) error
	ListForMonth(ctx context.Context, ownerID string, month int, sharedOnly bool) ([]*models.Memory, error)
	ListByKeys(ctx context.Context, ownerID string, keys []string, sharedOnly bool) ([]*models.Memory, error)
	ListAll(ctx context.Context, ownerID string, sharedOnly bool) ([]*models.Memory, error)
	ListAllByKeys(ctx context.Context, keys []string) ([]*models.Memory, error)
}

// PairStore persists invitations and applies the transactional pairing
// operations.
type PairStore interface {
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	PurgeInvitations(ctx context.Context, issuerID string) error
	InvitationCodeExists(ctx context.Context, code string) (bool, error)
	Accept(ctx context.Context, code, accepterID string, now time.Time) (string, error)
	Disconnect(ctx context.Context, userID string) (*string, error)
}

// PhotoStore persists photo records.
type PhotoStore interface {
	Create(ctx context.Context, photo *models.Photo) error
	ListByMemory(ctx context.Context, memoryID string) ([]*models.Photo, error)
}

// Pusher delivers one push notification.
type Pusher interface {
	Push(ctx context.Context, token, title, body string) error
}

// Feed receives change events and fans snapshots out to connected clients.
type Feed interface {
	MemoriesChanged(ctx context.Context, ownerID string)
	PairingChanged(ctx context.Context, userIDs ...string)
}

// NopFeed ignores all events.
type NopFeed struct{}

func (NopFeed) MemoriesChanged(context.Context, string) {}
func (NopFeed) PairingChanged(context.Context, ...string) {}
