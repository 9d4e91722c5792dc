package utils

import (
	"context"
	"testing"
	"time"

	"medibook/models"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityCache_RoundTripAndInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewAvailabilityCache(client, time.Minute)
	ctx := context.Background()

	got, err := cache.Get(ctx, "doc-1", "2024-06-10")
	require.NoError(t, err)
	assert.Nil(t, got, "empty cache is a miss")

	w := models.AvailabilityWindow{
		DoctorID:       "doc-1",
		Date:           "2024-06-10",
		StartTime:      models.NewTimePoint(9, 0),
		EndTime:        models.NewTimePoint(10, 0),
		AvailableSlots: []models.TimePoint{models.NewTimePoint(9, 0), models.NewTimePoint(9, 45)},
		Version:        3,
	}
	stored, err := cache.Set(ctx, w)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.True(t, mr.Exists(AvailabilityCachePrefix+"doc-1:2024-06-10"))

	got, err = cache.Get(ctx, "doc-1", "2024-06-10")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, w, *got)

	mr.FastForward(2 * time.Minute)
	got, err = cache.Get(ctx, "doc-1", "2024-06-10")
	require.NoError(t, err)
	assert.Nil(t, got, "entry expires after the TTL")

	_, err = cache.Set(ctx, w)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "doc-1", "2024-06-10", "2024-06-11"))
	got, err = cache.Get(ctx, "doc-1", "2024-06-10")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAvailabilityCache_OlderVersionDoesNotOverwrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewAvailabilityCache(client, time.Minute)
	ctx := context.Background()

	stale := models.AvailabilityWindow{
		DoctorID:       "doc-1",
		Date:           "2024-06-10",
		StartTime:      models.NewTimePoint(9, 0),
		EndTime:        models.NewTimePoint(10, 0),
		AvailableSlots: []models.TimePoint{models.NewTimePoint(9, 0), models.NewTimePoint(9, 15)},
		Version:        3,
	}
	fresh := stale
	fresh.AvailableSlots = []models.TimePoint{models.NewTimePoint(9, 15)}
	fresh.Version = 4

	stored, err := cache.Set(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, stored)

	// A reader that loaded version 3 before the commit finishes after the refresh.
	stored, err = cache.Set(ctx, stale)
	require.NoError(t, err)
	assert.False(t, stored)

	got, err := cache.Get(ctx, "doc-1", "2024-06-10")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fresh, *got)

	// The same version may be written again, and the TTL is renewed.
	mr.FastForward(30 * time.Second)
	stored, err = cache.Set(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, stored)
	mr.FastForward(45 * time.Second)
	assert.True(t, mr.Exists(AvailabilityCachePrefix+"doc-1:2024-06-10"))
}

func TestAvailabilityCache_NilIsNoop(t *testing.T) {
	var cache *AvailabilityCache
	ctx := context.Background()
	got, err := cache.Get(ctx, "doc", "2024-06-10")
	assert.NoError(t, err)
	assert.Nil(t, got)
	stored, err := cache.Set(ctx, models.AvailabilityWindow{})
	assert.NoError(t, err)
	assert.False(t, stored)
	assert.NoError(t, cache.Invalidate(ctx, "doc", "2024-06-10"))
	assert.Nil(t, NewAvailabilityCache(nil, time.Second))
}
