package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

type memoryCache struct {
	fakeCacheRepo
	data map[string][]byte
	gets int
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestSectionInitializeIsIdempotent(t *testing.T) {
	repo := newFakeSectionRepo(models.Section{ID: "g", SectionType: models.SectionGeneral, Status: models.SectionInactive})
	svc := NewSectionService(repo, nil, 0, nil)

	created, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	assert.Len(t, created, len(models.SectionTypes)-1)
	assert.NotContains(t, created, models.SectionGeneral)
	assert.Equal(t, models.SectionInactive, repo.sections["g"].Status)

	created, err = svc.Initialize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Len(t, repo.sections, len(models.SectionTypes))
}

func TestSectionResolveForPosting(t *testing.T) {
	repo := newFakeSectionRepo(
		models.Section{ID: "g", SectionType: models.SectionGeneral, Status: models.SectionActive},
		models.Section{ID: "a", SectionType: models.SectionArts, Status: models.SectionInactive},
	)
	svc := NewSectionService(repo, nil, 0, nil)
	ctx := context.Background()

	section, err := svc.ResolveForPosting(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "g", section.ID)

	_, err = svc.ResolveForPosting(ctx, "arts")
	assert.ErrorIs(t, err, appErrors.ErrIllegalState)

	_, err = svc.ResolveForPosting(ctx, "gaming")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.ResolveForPosting(ctx, "cooking")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSectionUpdateStatusInvalidatesCache(t *testing.T) {
	repo := newFakeSectionRepo(models.Section{ID: "g", SectionType: models.SectionGeneral, Status: models.SectionActive})
	backend := &memoryCache{data: map[string][]byte{}}
	cache := NewCacheService(backend, nil, time.Minute, nil, true)
	svc := NewSectionService(repo, cache, time.Minute, nil)
	ctx := context.Background()

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Contains(t, backend.data, activeSectionsCacheKey)

	_, err = svc.UpdateStatus(ctx, nil, "g", models.SectionInactive)
	assert.ErrorIs(t, err, appErrors.ErrAuthenticationRequired)

	section, err := svc.UpdateStatus(ctx, moderatorActor, "g", models.SectionInactive)
	require.NoError(t, err)
	assert.Equal(t, models.SectionInactive, section.Status)
	assert.NotContains(t, backend.data, activeSectionsCacheKey)

	active, err = svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSectionDecrementNeverNegative(t *testing.T) {
	repo := newFakeSectionRepo(models.Section{ID: "g", SectionType: models.SectionGeneral, Status: models.SectionActive})
	svc := NewSectionService(repo, nil, 0, nil)

	require.NoError(t, svc.DecrementPostCount(context.Background(), "g"))
	assert.Zero(t, repo.sections["g"].PostCount)
	assert.ErrorIs(t, svc.IncrementPostCount(context.Background(), "missing"), appErrors.ErrNotFound)
}
