package services

import (
	"context"
	"testing"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPinHarness(t *testing.T) (*fakeDB, *PinService) {
	t.Helper()
	db := newFakeDB()
	svc := NewPinService(db.userStore(), db.memoryStore(), NopFeed{})
	svc.now = func() time.Time { return day(2025, time.July, 7) }
	return db, svc
}

func (f *fakeDB) addMemory(id, ownerID string, eventDate time.Time) *models.Memory {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &models.Memory{
		ID:            id,
		OwnerID:       ownerID,
		Title:         id,
		EventDate:     eventDate,
		RecurrenceKey: eventDate.Format("0102"),
	}
	f.memories[id] = m
	return m
}

func TestTogglePin(t *testing.T) {
	db, svc := newPinHarness(t)
	db.addUser("alice")
	db.addMemory("m1", "alice", day(2023, time.July, 7))

	pinned, err := svc.TogglePin(context.Background(), "alice", "m1", false)
	require.NoError(t, err)
	assert.True(t, pinned)
	require.NotNil(t, db.users["alice"].PinnedMemoryID)
	assert.Equal(t, "m1", *db.users["alice"].PinnedMemoryID)

	// Toggling the current pin unpins it.
	pinned, err = svc.TogglePin(context.Background(), "alice", "m1", false)
	require.NoError(t, err)
	assert.False(t, pinned)
	assert.Nil(t, db.users["alice"].PinnedMemoryID)
}

func TestTogglePinConflict(t *testing.T) {
	db, svc := newPinHarness(t)
	db.addUser("alice")
	db.addMemory("m1", "alice", day(2023, time.July, 7))
	db.addMemory("m2", "alice", day(2024, time.January, 1))

	_, err := svc.TogglePin(context.Background(), "alice", "m1", false)
	require.NoError(t, err)

	// A different memory needs an explicit confirmation to replace the pin.
	_, err = svc.TogglePin(context.Background(), "alice", "m2", false)
	assert.ErrorIs(t, err, ErrPinConflict)
	assert.Equal(t, "m1", *db.users["alice"].PinnedMemoryID)

	pinned, err := svc.TogglePin(context.Background(), "alice", "m2", true)
	require.NoError(t, err)
	assert.True(t, pinned)
	assert.Equal(t, "m2", *db.users["alice"].PinnedMemoryID)
}

func TestTogglePinRejectsFutureDate(t *testing.T) {
	db, svc := newPinHarness(t)
	db.addUser("alice")
	db.addMemory("future", "alice", day(2025, time.July, 8))
	db.addMemory("today", "alice", day(2025, time.July, 7))

	_, err := svc.TogglePin(context.Background(), "alice", "future", false)
	assert.ErrorIs(t, err, ErrFutureDate)

	// The event day itself is pinnable.
	pinned, err := svc.TogglePin(context.Background(), "alice", "today", false)
	require.NoError(t, err)
	assert.True(t, pinned)
}

func TestTogglePinOwnerOnly(t *testing.T) {
	db, svc := newPinHarness(t)
	db.addUser("alice")
	db.addUser("bob")
	db.pair("alice", "bob")
	db.addMemory("m1", "bob", day(2023, time.July, 7))

	_, err := svc.TogglePin(context.Background(), "alice", "m1", false)
	assert.ErrorIs(t, err, ErrForbidden)
}
