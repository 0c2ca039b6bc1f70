package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Locker{Client: client, RetryBackoff: 5 * time.Millisecond}, mr
}

func TestWithLockRunsCallbackAndReleases(t *testing.T) {
	locker, mr := newLocker(t)

	ran := false
	err := locker.WithLock(context.Background(), "cart:mutex:s1", time.Second, func(context.Context) error {
		ran = true
		require.True(t, mr.Exists("cart:mutex:s1"))
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
	require.False(t, mr.Exists("cart:mutex:s1"))
}

func TestWithLockReleasesOnCallbackError(t *testing.T) {
	locker, mr := newLocker(t)

	wantErr := context.DeadlineExceeded
	err := locker.WithLock(context.Background(), "k", time.Second, func(context.Context) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.False(t, mr.Exists("k"))
}

func TestWithLockWaitsForHolder(t *testing.T) {
	locker, mr := newLocker(t)

	require.NoError(t, mr.Set("k", "someone-else"))
	mr.SetTTL("k", 20*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- locker.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return nil })
	}()

	// Retry loop should acquire once the holder's TTL lapses.
	mr.FastForward(25 * time.Millisecond)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("lock acquisition did not complete")
	}
}

func TestWithLockHonoursContextCancellation(t *testing.T) {
	locker, mr := newLocker(t)
	require.NoError(t, mr.Set("k", "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := locker.WithLock(ctx, "k", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
