package services

import (
	"context"
	"testing"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/recurrence"
	"github.com/QwerTayu/anniversary-calendar/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, recurrence.Zone)
}

func newMemoryHarness(t *testing.T) (*fakeDB, *MemoryService) {
	t.Helper()
	db := newFakeDB()
	svc := NewMemoryService(db.memoryStore(), db.userStore(), NopFeed{})
	return db, svc
}

func TestCreateMemoryDerivesRecurrenceKey(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")

	m, err := svc.Create(context.Background(), "alice", "First date", "", day(2024, time.February, 29), true)
	require.NoError(t, err)
	assert.Equal(t, "0229", m.RecurrenceKey)
	assert.NotEmpty(t, m.ID)

	m, err = svc.Create(context.Background(), "alice", "Anniversary", "", day(2023, time.July, 7), false)
	require.NoError(t, err)
	assert.Equal(t, "0707", m.RecurrenceKey)
}

func TestCreateMemoryRequiresTitle(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")

	_, err := svc.Create(context.Background(), "alice", "   ", "", day(2023, time.July, 7), false)
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestUpdateMemoryRecomputesKey(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")

	m, err := svc.Create(context.Background(), "alice", "Trip", "", day(2023, time.July, 7), false)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), "alice", m.ID, "Trip", "moved", day(2023, time.December, 24), true)
	require.NoError(t, err)
	assert.Equal(t, "1224", updated.RecurrenceKey)
	assert.True(t, updated.IsShared)
}

func TestUpdateMemoryOwnerOnly(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")
	db.addUser("bob")
	db.pair("alice", "bob")

	m, err := svc.Create(context.Background(), "alice", "Trip", "", day(2023, time.July, 7), true)
	require.NoError(t, err)

	// Shared records stay read-only for the partner.
	_, err = svc.Update(context.Background(), "bob", m.ID, "Hijack", "", day(2023, time.July, 8), true)
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Delete(context.Background(), "bob", m.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteMemoryClearsPin(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")

	m, err := svc.Create(context.Background(), "alice", "Trip", "", day(2023, time.July, 7), false)
	require.NoError(t, err)
	require.NoError(t, db.userStore().SetPinnedMemory(context.Background(), "alice", &m.ID))

	require.NoError(t, svc.Delete(context.Background(), "alice", m.ID))

	assert.Nil(t, db.users["alice"].PinnedMemoryID)
	_, err = svc.memories.GetByID(context.Background(), m.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListForMonthMergesPartnerShared(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")
	db.addUser("bob")
	db.pair("alice", "bob")

	ctx := context.Background()
	_, err := svc.Create(ctx, "alice", "Mine late", "", day(2023, time.July, 20), false)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", "Mine early", "", day(2023, time.July, 2), false)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", "Shared", "", day(2023, time.July, 10), true)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", "Private", "", day(2023, time.July, 11), false)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", "Other month", "", day(2023, time.August, 1), true)
	require.NoError(t, err)

	got, err := svc.ListForMonth(ctx, "alice", 7)
	require.NoError(t, err)
	titles := make([]string, 0, len(got))
	for _, m := range got {
		titles = append(titles, m.Title)
	}
	assert.Equal(t, []string{"Mine early", "Shared", "Mine late"}, titles)
}

func TestListForMonthUnpairedSkipsPartnerQuery(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")
	db.addUser("bob")

	ctx := context.Background()
	_, err := svc.Create(ctx, "bob", "Shared but unpaired", "", day(2023, time.July, 10), true)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", "Mine", "", day(2023, time.July, 2), false)
	require.NoError(t, err)

	got, err := svc.ListForMonth(ctx, "alice", 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mine", got[0].Title)
}

func TestListForMonthValidatesMonth(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")

	_, err := svc.ListForMonth(context.Background(), "alice", 0)
	assert.ErrorIs(t, err, ErrInvalidMonth)
	_, err = svc.ListForMonth(context.Background(), "alice", 13)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestListForToday(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")
	db.addUser("bob")
	db.pair("alice", "bob")
	svc.now = func() time.Time { return day(2025, time.July, 7) }

	ctx := context.Background()
	_, err := svc.Create(ctx, "alice", "Today", "", day(2023, time.July, 7), false)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", "Partner today", "", day(2021, time.July, 7), true)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", "Tomorrow", "", day(2023, time.July, 8), false)
	require.NoError(t, err)

	got, err := svc.ListForToday(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Partner today", got[0].Title)
	assert.Equal(t, "Today", got[1].Title)
}

func TestListForTodayLeapDayCollapse(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")
	// Feb 28 of a non-leap year also surfaces leap-day records.
	svc.now = func() time.Time { return day(2025, time.February, 28) }

	ctx := context.Background()
	_, err := svc.Create(ctx, "alice", "Leap day", "", day(2024, time.February, 29), false)
	require.NoError(t, err)

	got, err := svc.ListForToday(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Leap day", got[0].Title)
}

func TestHome(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")
	db.addUser("bob")
	db.pair("alice", "bob")
	svc.now = func() time.Time { return day(2025, time.July, 7) }

	ctx := context.Background()
	today, err := svc.Create(ctx, "alice", "Today", "", day(2023, time.July, 7), false)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", "Soon", "", day(2023, time.July, 10), false)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", "Partner soon", "", day(2022, time.July, 9), true)
	require.NoError(t, err)

	require.NoError(t, db.userStore().SetPinnedMemory(ctx, "alice", &today.ID))

	view, err := svc.Home(ctx, "alice")
	require.NoError(t, err)

	require.Len(t, view.Today, 1)
	assert.Equal(t, "Today", view.Today[0].Title)

	// Today's event is not duplicated into the upcoming list.
	require.Len(t, view.Upcoming, 2)
	assert.Equal(t, "Partner soon", view.Upcoming[0].Memory.Title)
	assert.Equal(t, 2, view.Upcoming[0].DaysLeft)
	assert.Equal(t, "Soon", view.Upcoming[1].Memory.Title)
	assert.Equal(t, 3, view.Upcoming[1].DaysLeft)

	require.NotNil(t, view.Pinned)
	assert.Equal(t, today.ID, view.Pinned.Memory.ID)
	assert.Equal(t, 731, view.Pinned.DaysSince)
}

func TestHomeStalePinIgnored(t *testing.T) {
	db, svc := newMemoryHarness(t)
	db.addUser("alice")
	stale := "gone"
	db.users["alice"].PinnedMemoryID = &stale

	view, err := svc.Home(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, view.Pinned)
}
