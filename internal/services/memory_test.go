package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"closer-backend/internal/models"
	"closer-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	coupleID    string
	contentType string
}

func (f *fakeUploader) PresignUpload(_ context.Context, coupleID, contentType string) (*storage.Upload, error) {
	if _, ok := storage.ExtensionFor(contentType); !ok {
		return nil, storage.ErrUnsupportedContentType
	}
	f.coupleID = coupleID
	f.contentType = contentType
	return &storage.Upload{
		UploadURL: "https://bucket.test/" + coupleID + "/photo.jpg?signed",
		PhotoURL:  "https://bucket.test/" + coupleID + "/photo.jpg",
		ExpiresIn: int(storage.UploadTTL.Seconds()),
	}, nil
}

func strPtr(s string) *string { return &s }

func TestPostMemory_SnapshotsMoodColor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, _ := env.couple(t, "a@x.com", "b@x.com")

	_, err := env.daily.SetMood(ctx, a.ID, "#FF0000")
	require.NoError(t, err)

	memory, err := env.memories.PostMemory(ctx, a.ID, "first date", nil)
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", memory.Color)
	assert.Equal(t, "a@x.com", memory.AuthorEmail)
	assert.Equal(t, *a.CoupleID, memory.CoupleID)

	_, err = env.daily.SetMood(ctx, a.ID, "#0000FF")
	require.NoError(t, err)

	page, err := env.memories.ListMemories(ctx, a.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Memories, 1)
	assert.Equal(t, "#FF0000", page.Memories[0].Color)
}

func TestPostMemory_DefaultsToWhite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, _ := env.couple(t, "a@x.com", "b@x.com")

	_, err := env.daily.SetMood(ctx, a.ID, "#FF0000")
	require.NoError(t, err)
	env.clock = env.clock.AddDate(0, 0, 1)

	memory, err := env.memories.PostMemory(ctx, a.ID, "next day", nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMemoryColor, memory.Color)
}

func TestPostMemory_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, _ := env.couple(t, "a@x.com", "b@x.com")
	single := env.verifiedUser(t, "single@x.com")

	_, err := env.memories.PostMemory(ctx, single.ID, "alone", nil)
	assert.ErrorIs(t, err, models.ErrNotPaired)

	tests := []struct {
		name  string
		text  string
		photo *string
	}{
		{"empty text", "  ", nil},
		{"markup only", "<script></script>", nil},
		{"text that parses as a tag", "x<y and z>w", nil},
		{"too long", strings.Repeat("a", maxMemoryLength+1), nil},
		{"relative photo url", "hi", strPtr("/photo.jpg")},
		{"ftp photo url", "hi", strPtr("ftp://host/photo.jpg")},
		{"long photo url", "hi", strPtr("https://host/" + strings.Repeat("p", maxPhotoURLLength))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.memories.PostMemory(ctx, a.ID, tt.text, tt.photo)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}

	memory, err := env.memories.PostMemory(ctx, a.ID, "beach", strPtr(" https://cdn.test/p.jpg "))
	require.NoError(t, err)
	require.NotNil(t, memory.PhotoURL)
	assert.Equal(t, "https://cdn.test/p.jpg", *memory.PhotoURL)

	memory, err = env.memories.PostMemory(ctx, a.ID, "no photo", strPtr(""))
	require.NoError(t, err)
	assert.Nil(t, memory.PhotoURL)

	memory, err = env.memories.PostMemory(ctx, a.ID, "you <3 me & x < y", nil)
	require.NoError(t, err)
	assert.Equal(t, "you <3 me & x < y", memory.Text)
}

func TestListMemories_Pagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.couple(t, "a@x.com", "b@x.com")

	for i := 0; i < 12; i++ {
		author := a
		if i%2 == 1 {
			author = b
		}
		_, err := env.memories.PostMemory(ctx, author.ID, fmt.Sprintf("memory %d", i), nil)
		require.NoError(t, err)
		env.clock = env.clock.Add(time.Minute)
	}

	first, err := env.memories.ListMemories(ctx, b.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 10, Total: 12, HasMore: true}, first.Pagination)
	require.Len(t, first.Memories, 10)
	assert.Equal(t, "memory 11", first.Memories[0].Text)
	assert.Equal(t, "b@x.com", first.Memories[0].AuthorEmail)

	second, err := env.memories.ListMemories(ctx, a.ID, 2, 10)
	require.NoError(t, err)
	assert.False(t, second.Pagination.HasMore)
	require.Len(t, second.Memories, 2)
	assert.Equal(t, "memory 0", second.Memories[1].Text)

	beyond, err := env.memories.ListMemories(ctx, a.ID, 5, 10)
	require.NoError(t, err)
	assert.NotNil(t, beyond.Memories)
	assert.Empty(t, beyond.Memories)

	huge, err := env.memories.ListMemories(ctx, a.ID, math.MaxInt64, 10)
	require.NoError(t, err)
	assert.Empty(t, huge.Memories)
	assert.Equal(t, 12, huge.Pagination.Total)
	assert.False(t, huge.Pagination.HasMore)
}

func TestListMemories_CouplesAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, _ := env.couple(t, "a@x.com", "b@x.com")
	c, _ := env.couple(t, "c@x.com", "d@x.com")

	_, err := env.memories.PostMemory(ctx, a.ID, "ours", nil)
	require.NoError(t, err)

	page, err := env.memories.ListMemories(ctx, c.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Memories)
	assert.Equal(t, 0, page.Pagination.Total)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 10},
		{-3, -1, 1, 10},
		{2, 50, 2, 50},
		{1, 500, 1, 100},
		{math.MaxInt64, 100, maxPage, 100},
	}
	for _, tt := range tests {
		page, limit := NormalizePage(tt.page, tt.limit)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantLimit, limit)
	}
}

func TestDeleteMemory_OnlyAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.couple(t, "a@x.com", "b@x.com")

	memory, err := env.memories.PostMemory(ctx, a.ID, "mine", nil)
	require.NoError(t, err)

	notMine := env.memories.DeleteMemory(ctx, memory.ID, b.ID)
	missing := env.memories.DeleteMemory(ctx, "does-not-exist", a.ID)
	assert.ErrorIs(t, notMine, models.ErrMemoryNotFound)
	assert.ErrorIs(t, missing, models.ErrMemoryNotFound)
	assert.Equal(t, missing.Error(), notMine.Error())

	require.NoError(t, env.memories.DeleteMemory(ctx, memory.ID, a.ID))
	page, err := env.memories.ListMemories(ctx, b.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Memories)
}

func TestPresignPhotoUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, _ := env.couple(t, "a@x.com", "b@x.com")
	single := env.verifiedUser(t, "single@x.com")

	_, err := env.memories.PresignPhotoUpload(ctx, a.ID, "image/jpeg")
	assert.ErrorIs(t, err, models.ErrPhotoUploadsDisabled)

	uploader := &fakeUploader{}
	svc := NewMemoryService(env.store, uploader, nil)

	upload, err := svc.PresignPhotoUpload(ctx, a.ID, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, *a.CoupleID, uploader.coupleID)
	assert.Equal(t, 300, upload.ExpiresIn)
	assert.Contains(t, upload.PhotoURL, *a.CoupleID)

	_, err = svc.PresignPhotoUpload(ctx, a.ID, "application/pdf")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.PresignPhotoUpload(ctx, single.ID, "image/png")
	assert.ErrorIs(t, err, models.ErrNotPaired)
}
