package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/internal/testhelpers"
	sageredis "github.com/Ramsey-B/sage/pkg/redis"
)

func TestLock(t *testing.T) {
	client := testhelpers.GetTestRedis(t)
	ctx := context.Background()
	name := "test-" + uuid.NewString()

	lock, err := client.AcquireLock(ctx, name, time.Minute)
	require.NoError(t, err)

	_, err = client.AcquireLock(ctx, name, time.Minute)
	assert.ErrorIs(t, err, sageredis.ErrLockNotAcquired)

	require.NoError(t, lock.Extend(ctx))
	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), sageredis.ErrLockNotHeld)
	assert.ErrorIs(t, lock.Extend(ctx), sageredis.ErrLockNotHeld)

	again, err := client.AcquireLock(ctx, name, time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLock_HoldCancelsWhenLost(t *testing.T) {
	client := testhelpers.GetTestRedis(t)
	ctx := context.Background()

	lock, err := client.AcquireLock(ctx, "test-"+uuid.NewString(), 300*time.Millisecond)
	require.NoError(t, err)

	held, cancel := lock.Hold(ctx)
	defer cancel()

	// releasing out from under the keepalive makes the next extension fail
	require.NoError(t, lock.Release(ctx))

	select {
	case <-held.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("held context was not cancelled after the lock was lost")
	}
}
