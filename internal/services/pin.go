package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/recurrence"
)

var (
	// ErrPinConflict is returned when another memory is already pinned and
	// the caller has not confirmed the overwrite. The pin is never replaced
	// silently; the confirmation comes from the client as a request flag.
	ErrPinConflict = errors.New("another memory is already pinned")

	// ErrFutureDate is returned when pinning a memory whose event date is
	// after today. The home screen shows days elapsed since the pinned
	// event, which assumes a non-negative count.
	ErrFutureDate = errors.New("future dates cannot be pinned")
)

// PinService enforces the at-most-one-pinned-memory rule.
type PinService struct {
	users    UserStore
	memories MemoryStore
	feed     Feed
	now      func() time.Time
}

// NewPinService creates a new pin service
func NewPinService(users UserStore, memories MemoryStore, feed Feed) *PinService {
	return &PinService{
		users:    users,
		memories: memories,
		feed:     feed,
		now:      func() time.Time { return time.Now().In(recurrence.Zone) },
	}
}

// TogglePin pins memoryID for the user, or unpins it when it is the current
// pin. Returns whether the memory ends up pinned.
func (s *PinService) TogglePin(ctx context.Context, userID, memoryID string, confirm bool) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}

	if user.PinnedMemoryID != nil && *user.PinnedMemoryID == memoryID {
		if err := s.users.SetPinnedMemory(ctx, userID, nil); err != nil {
			return false, fmt.Errorf("failed to clear pin: %w", err)
		}
		s.feed.MemoriesChanged(ctx, userID)
		return false, nil
	}

	m, err := s.memories.GetByID(ctx, memoryID)
	if err != nil {
		return false, err
	}
	if m.OwnerID != userID {
		return false, ErrForbidden
	}

	today := recurrence.StartOfDay(s.now())
	if recurrence.StartOfDay(m.EventDate).After(today) {
		return false, ErrFutureDate
	}

	if user.PinnedMemoryID != nil && !confirm {
		return false, ErrPinConflict
	}

	if err := s.users.SetPinnedMemory(ctx, userID, &memoryID); err != nil {
		return false, fmt.Errorf("failed to set pin: %w", err)
	}
	s.feed.MemoriesChanged(ctx, userID)
	return true, nil
}
