package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "marathon:1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("max holders = %d, want 1", maxSeen)
	}
	if len(l.locks) != 0 {
		t.Fatalf("entries left = %d, want 0", len(l.locks))
	}
}

func TestLocalDistinctKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	unlockA, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("lock b: %v", err)
	}
	unlockB()
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal()
	unlock, _ := l.Lock(context.Background(), "k")
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("err = %v, want %v", err, ErrNotAcquired)
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	l := NewLocal()
	unlock, _ := l.Lock(context.Background(), "k")
	unlock()
	unlock()
	again, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}

func TestChainSkipsNilAndReleases(t *testing.T) {
	l := NewLocal()
	c := Chain{l, nil, NewRedis(nil, time.Second)}
	unlock, err := c.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("chain lock: %v", err)
	}
	unlock()
	if len(l.locks) != 0 {
		t.Fatalf("entries left = %d, want 0", len(l.locks))
	}
}

func TestNewRedisNilClient(t *testing.T) {
	if NewRedis(nil, time.Second) != nil {
		t.Fatal("expected nil locker for nil client")
	}
}
