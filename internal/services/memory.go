package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/models"
	"github.com/QwerTayu/anniversary-calendar/internal/recurrence"
	"github.com/QwerTayu/anniversary-calendar/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrTitleRequired is returned when a memory is written without a title.
	ErrTitleRequired = errors.New("title is required")
	// ErrInvalidMonth is returned for month values outside 1-12.
	ErrInvalidMonth = errors.New("month must be between 1 and 12")
	// ErrForbidden is returned when a user touches a record they do not own.
	ErrForbidden = errors.New("forbidden")
)

// MemoryService owns memory writes and the merged read views. Every write
// recomputes the recurrence key from the event date; nothing else in the
// system assigns it.
type MemoryService struct {
	memories MemoryStore
	users    UserStore
	feed     Feed
	now      func() time.Time
}

// NewMemoryService creates a new memory service
func NewMemoryService(memories MemoryStore, users UserStore, feed Feed) *MemoryService {
	return &MemoryService{
		memories: memories,
		users:    users,
		feed:     feed,
		now:      func() time.Time { return time.Now().In(recurrence.Zone) },
	}
}

// HomeView is the home screen payload: today's events, the nearest upcoming
// ones, and the pinned memory with its elapsed-days counter.
type HomeView struct {
	Today    []*models.Memory      `json:"today"`
	Upcoming []recurrence.Upcoming `json:"upcoming"`
	Pinned   *PinnedView           `json:"pinned,omitempty"`
}

// PinnedView is the pinned memory plus days elapsed since its event date.
type PinnedView struct {
	Memory    *models.Memory `json:"memory"`
	DaysSince int            `json:"days_since"`
}

// Create creates a memory owned by ownerID.
func (s *MemoryService) Create(ctx context.Context, ownerID, title, detail string, eventDate time.Time, isShared bool) (*models.Memory, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}

	now := s.now()
	m := &models.Memory{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Title:         title,
		Detail:        detail,
		EventDate:     eventDate,
		RecurrenceKey: recurrence.DateKey(eventDate),
		IsShared:      isShared,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.memories.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create memory: %w", err)
	}

	s.feed.MemoriesChanged(ctx, ownerID)
	return m, nil
}

// Update rewrites a memory. Only the owner may update; the partner's access
// is read-only even for shared records.
func (s *MemoryService) Update(ctx context.Context, userID, id, title, detail string, eventDate time.Time, isShared bool) (*models.Memory, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}

	m, err := s.memories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OwnerID != userID {
		return nil, ErrForbidden
	}

	m.Title = title
	m.Detail = detail
	m.EventDate = eventDate
	m.RecurrenceKey = recurrence.DateKey(eventDate)
	m.IsShared = isShared
	m.UpdatedAt = s.now()

	if err := s.memories.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update memory: %w", err)
	}

	s.feed.MemoriesChanged(ctx, userID)
	return m, nil
}

// Delete removes a memory. The store clears the owner's pin when it pointed
// at the deleted record.
func (s *MemoryService) Delete(ctx context.Context, userID, id string) error {
	m, err := s.memories.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.OwnerID != userID {
		return ErrForbidden
	}

	if err := s.memories.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}

	s.feed.MemoriesChanged(ctx, userID)
	return nil
}

// ListForMonth returns the user's memories for a month merged with the
// partner's shared ones.
func (s *MemoryService) ListForMonth(ctx context.Context, userID string, month int) ([]*models.Memory, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	mine, err := s.memories.ListForMonth(ctx, userID, month, false)
	if err != nil {
		return nil, err
	}
	if user.PartnerID == nil {
		return mergeMemories(mine, nil), nil
	}
	shared, err := s.memories.ListForMonth(ctx, *user.PartnerID, month, true)
	if err != nil {
		return nil, err
	}
	return mergeMemories(mine, shared), nil
}

// ListForToday returns today's memories, partner's shared ones included.
func (s *MemoryService) ListForToday(ctx context.Context, userID string) ([]*models.Memory, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	keys := recurrence.TodayKeys(s.now())
	mine, err := s.memories.ListByKeys(ctx, userID, keys, false)
	if err != nil {
		return nil, err
	}
	if user.PartnerID == nil {
		return mergeMemories(mine, nil), nil
	}
	shared, err := s.memories.ListByKeys(ctx, *user.PartnerID, keys, true)
	if err != nil {
		return nil, err
	}
	return mergeMemories(mine, shared), nil
}

// Home builds the home screen view.
func (s *MemoryService) Home(ctx context.Context, userID string) (*HomeView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	mine, err := s.memories.ListAll(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	var shared []*models.Memory
	if user.PartnerID != nil {
		shared, err = s.memories.ListAll(ctx, *user.PartnerID, true)
		if err != nil {
			return nil, err
		}
	}
	all := mergeMemories(mine, shared)

	now := s.now()
	todayKeys := recurrence.TodayKeys(now)
	today := make([]*models.Memory, 0)
	for _, m := range all {
		for _, key := range todayKeys {
			if m.RecurrenceKey == key {
				today = append(today, m)
				break
			}
		}
	}

	view := &HomeView{
		Today:    today,
		Upcoming: recurrence.UpcomingList(all, now, 5),
	}

	if user.PinnedMemoryID != nil {
		pinned, err := s.memories.GetByID(ctx, *user.PinnedMemoryID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// Deletion clears pins in the same transaction, so this
			// only happens on a stale snapshot. Leave the view empty.
		case err != nil:
			return nil, err
		case pinned.OwnerID == userID:
			view.Pinned = &PinnedView{
				Memory:    pinned,
				DaysSince: recurrence.DaysSince(pinned.EventDate, now),
			}
		}
	}
	return view, nil
}

// mergeMemories merges two per-owner result sets into one list ordered by
// recurrence key, then event date. The inputs arrive sorted, so the stable
// sort only interleaves them.
func mergeMemories(mine, partner []*models.Memory) []*models.Memory {
	merged := make([]*models.Memory, 0, len(mine)+len(partner))
	merged = append(merged, mine...)
	merged = append(merged, partner...)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].RecurrenceKey != merged[j].RecurrenceKey {
			return merged[i].RecurrenceKey < merged[j].RecurrenceKey
		}
		return merged[i].EventDate.Before(merged[j].EventDate)
	})
	return merged
}
