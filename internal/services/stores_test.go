package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/models"
	"github.com/QwerTayu/anniversary-calendar/internal/pairing"
	"github.com/QwerTayu/anniversary-calendar/internal/repository"
)

// fakeDB is an in-memory backing store shared by the fake store views below.
// The mutex gives the transactional operations the same serialized
// read-check-write behavior the SQL layer gets from row locks, so the pairing
// races are observable in tests.
type fakeDB struct {
	mu          sync.Mutex
	users       map[string]*models.User
	memories    map[string]*models.Memory
	invitations map[string]*models.Invitation
	photos      map[string][]*models.Photo
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:       make(map[string]*models.User),
		memories:    make(map[string]*models.Memory),
		invitations: make(map[string]*models.Invitation),
		photos:      make(map[string][]*models.Photo),
	}
}

func (f *fakeDB) addUser(id string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: id, Email: id + "@example.com", DisplayName: id}
	f.users[id] = u
	return u
}

func (f *fakeDB) pair(a, b string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	aID, bID := a, b
	f.users[a].PartnerID = &bID
	f.users[b].PartnerID = &aID
}

func (f *fakeDB) userStore() UserStore { return fakeUsers{f} }

func (f *fakeDB) memoryStore() MemoryStore { return fakeMemories{f} }

func (f *fakeDB) pairStore() PairStore { return fakePairs{f} }

func (f *fakeDB) photoStore() PhotoStore { return fakePhotos{f} }

type fakeUsers struct{ db *fakeDB }

func (f fakeUsers) Create(ctx context.Context, user *models.User) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.users[user.ID] = user
	return nil
}

func (f fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) List(ctx context.Context) ([]*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	ids := make([]string, 0, len(f.db.users))
	for id := range f.db.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		cp := *f.db.users[id]
		users = append(users, &cp)
	}
	return users, nil
}

func (f fakeUsers) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}
	u.PushToken = pushToken
	return nil
}

func (f fakeUsers) SetPinnedMemory(ctx context.Context, userID string, memoryID *string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}
	u.PinnedMemoryID = memoryID
	return nil
}

type fakeMemories struct{ db *fakeDB }

func (f fakeMemories) Create(ctx context.Context, m *models.Memory) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.memories[m.ID] = m
	return nil
}

func (f fakeMemories) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.memories[id]
	if !ok {
		return nil, fmt.Errorf("memory %s: %w", id, repository.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (f fakeMemories) Update(ctx context.Context, m *models.Memory) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.memories[m.ID]; !ok {
		return fmt.Errorf("memory %s: %w", m.ID, repository.ErrNotFound)
	}
	f.db.memories[m.ID] = m
	return nil
}

func (f fakeMemories) Delete(ctx context.Context, id string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.memories[id]; !ok {
		return fmt.Errorf("memory %s: %w", id, repository.ErrNotFound)
	}
	delete(f.db.memories, id)
	delete(f.db.photos, id)
	for _, u := range f.db.users {
		if u.PinnedMemoryID != nil && *u.PinnedMemoryID == id {
			u.PinnedMemoryID = nil
		}
	}
	return nil
}

func (f fakeMemories) list(filter func(*models.Memory) bool) []*models.Memory {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*models.Memory
	for _, m := range f.db.memories {
		if filter(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RecurrenceKey != out[j].RecurrenceKey {
			return out[i].RecurrenceKey < out[j].RecurrenceKey
		}
		return out[i].EventDate.Before(out[j].EventDate)
	})
	return out
}

func (f fakeMemories) ListForMonth(ctx context.Context, ownerID string, month int, sharedOnly bool) ([]*models.Memory, error) {
	prefix := fmt.Sprintf("%02d", month)
	return f.list(func(m *models.Memory) bool {
		return m.OwnerID == ownerID &&
			len(m.RecurrenceKey) == 4 && m.RecurrenceKey[:2] == prefix &&
			(!sharedOnly || m.IsShared)
	}), nil
}

func (f fakeMemories) ListByKeys(ctx context.Context, ownerID string, keys []string, sharedOnly bool) ([]*models.Memory, error) {
	return f.list(func(m *models.Memory) bool {
		if m.OwnerID != ownerID || (sharedOnly && !m.IsShared) {
			return false
		}
		return containsKey(keys, m.RecurrenceKey)
	}), nil
}

func (f fakeMemories) ListAll(ctx context.Context, ownerID string, sharedOnly bool) ([]*models.Memory, error) {
	return f.list(func(m *models.Memory) bool {
		return m.OwnerID == ownerID && (!sharedOnly || m.IsShared)
	}), nil
}

func (f fakeMemories) ListAllByKeys(ctx context.Context, keys []string) ([]*models.Memory, error) {
	return f.list(func(m *models.Memory) bool {
		return containsKey(keys, m.RecurrenceKey)
	}), nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

type fakePairs struct{ db *fakeDB }

func (f fakePairs) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.invitations[inv.Code] = inv
	return nil
}

func (f fakePairs) PurgeInvitations(ctx context.Context, issuerID string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for code, inv := range f.db.invitations {
		if inv.IssuerID == issuerID {
			delete(f.db.invitations, code)
		}
	}
	return nil
}

func (f fakePairs) InvitationCodeExists(ctx context.Context, code string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	_, ok := f.db.invitations[code]
	return ok, nil
}

func (f fakePairs) Accept(ctx context.Context, code, accepterID string, now time.Time) (string, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	inv := f.db.invitations[code]
	var issuer *models.User
	if inv != nil {
		issuer = f.db.users[inv.IssuerID]
	}
	accepter := f.db.users[accepterID]
	if accepter == nil {
		return "", fmt.Errorf("accepter %s: %w", accepterID, repository.ErrNotFound)
	}
	if err := pairing.ValidateAcceptance(inv, issuer, accepter, now); err != nil {
		return "", err
	}

	issuerID, accID := inv.IssuerID, accepterID
	issuer.PartnerID = &accID
	accepter.PartnerID = &issuerID
	delete(f.db.invitations, code)
	return issuerID, nil
}

func (f fakePairs) Disconnect(ctx context.Context, userID string) (*string, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	u, ok := f.db.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}
	partnerID := u.PartnerID
	u.PartnerID = nil
	if partnerID != nil {
		if p, ok := f.db.users[*partnerID]; ok {
			p.PartnerID = nil
		}
	}
	return partnerID, nil
}

type fakePhotos struct{ db *fakeDB }

func (f fakePhotos) Create(ctx context.Context, photo *models.Photo) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.photos[photo.MemoryID] = append(f.db.photos[photo.MemoryID], photo)
	return nil
}

func (f fakePhotos) ListByMemory(ctx context.Context, memoryID string) ([]*models.Photo, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return append([]*models.Photo(nil), f.db.photos[memoryID]...), nil
}
