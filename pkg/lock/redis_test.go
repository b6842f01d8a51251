package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client, "test:lock:", ttl), mr
}

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	l, mr := newTestRedisLocker(t, time.Second)
	unlock, err := l.Lock(context.Background(), "lot:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "lot:1"); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired while held, got %v", err)
	}

	unlock()
	unlock()
	if mr.Exists("test:lock:lot:1") {
		t.Fatalf("expected key removed after unlock")
	}
	again, err := l.Lock(context.Background(), "lot:1")
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	again()
}

func TestRedisLockerRenewsLeaseWhileHeld(t *testing.T) {
	ttl := 300 * time.Millisecond
	l, mr := newTestRedisLocker(t, ttl)
	unlock, err := l.Lock(context.Background(), "lot:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	// miniredis only ages keys on FastForward; leave 50ms of the lease
	mr.FastForward(250 * time.Millisecond)
	deadline := time.Now().Add(time.Second)
	for mr.TTL("test:lock:lot:1") <= 50*time.Millisecond {
		if time.Now().After(deadline) {
			t.Fatalf("lease was not renewed, ttl=%v", mr.TTL("test:lock:lot:1"))
		}
		time.Sleep(10 * time.Millisecond)
	}

	mr.FastForward(250 * time.Millisecond)
	if !mr.Exists("test:lock:lot:1") {
		t.Fatalf("renewed lease expired while the lock was held")
	}
}

func TestRedisLockerDoesNotRenewAfterRelease(t *testing.T) {
	l, mr := newTestRedisLocker(t, 90*time.Millisecond)
	unlock, err := l.Lock(context.Background(), "lot:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	unlock()

	time.Sleep(100 * time.Millisecond)
	if mr.Exists("test:lock:lot:1") {
		t.Fatalf("released lock must not be recreated by renewal")
	}
}
