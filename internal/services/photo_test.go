package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPhotoHarness(t *testing.T) (*fakeDB, *PhotoService) {
	t.Helper()
	db := newFakeDB()
	// Static credentials keep pre-signing a local computation.
	svc, err := NewPhotoService(
		db.photoStore(), db.memoryStore(), db.userStore(),
		"ap-northeast-1", "memories-test", "AKIDEXAMPLE", "secret", "",
	)
	require.NoError(t, err)
	return db, svc
}

func TestAttachPhoto(t *testing.T) {
	db, svc := newPhotoHarness(t)
	db.addUser("alice")
	db.addMemory("m1", "alice", day(2023, time.July, 7))

	resp, err := svc.AttachPhoto(context.Background(), "alice", "m1", "image/jpeg")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.UploadURL)
	assert.NotEmpty(t, resp.PhotoID)
	assert.Equal(t, int(presignTTL.Seconds()), resp.ExpiresIn)

	photos, err := db.photoStore().ListByMemory(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, resp.PhotoID, photos[0].ID)
	assert.Equal(t, "alice", photos[0].OwnerID)
	assert.Contains(t, photos[0].S3URL, "memories-test")
}

func TestAttachPhotoOwnerOnly(t *testing.T) {
	db, svc := newPhotoHarness(t)
	db.addUser("alice")
	db.addUser("bob")
	db.pair("alice", "bob")
	shared := db.addMemory("m1", "alice", day(2023, time.July, 7))
	shared.IsShared = true

	// Sharing grants the partner read access, never writes.
	_, err := svc.AttachPhoto(context.Background(), "bob", "m1", "image/jpeg")
	assert.ErrorIs(t, err, ErrForbidden)

	photos, err := db.photoStore().ListByMemory(context.Background(), "m1")
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestListPhotos(t *testing.T) {
	db, svc := newPhotoHarness(t)
	db.addUser("alice")
	db.addUser("bob")
	db.addUser("carol")
	db.pair("alice", "bob")
	shared := db.addMemory("shared", "alice", day(2023, time.July, 7))
	shared.IsShared = true
	db.addMemory("private", "alice", day(2023, time.July, 8))

	ctx := context.Background()
	_, err := svc.AttachPhoto(ctx, "alice", "shared", "image/jpeg")
	require.NoError(t, err)
	_, err = svc.AttachPhoto(ctx, "alice", "private", "image/jpeg")
	require.NoError(t, err)

	// Owner sees everything.
	photos, err := svc.ListPhotos(ctx, "alice", "private")
	require.NoError(t, err)
	assert.Len(t, photos, 1)

	// Partner sees shared memories only.
	photos, err = svc.ListPhotos(ctx, "bob", "shared")
	require.NoError(t, err)
	assert.Len(t, photos, 1)

	_, err = svc.ListPhotos(ctx, "bob", "private")
	assert.ErrorIs(t, err, ErrForbidden)

	// A third user sees nothing, shared or not.
	_, err = svc.ListPhotos(ctx, "carol", "shared")
	assert.ErrorIs(t, err, ErrForbidden)
}
