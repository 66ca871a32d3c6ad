package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolConcurrencyLimit(t *testing.T) {
	pool := New(2, nil)
	defer func() {
		_ = pool.Shutdown(context.Background())
	}()

	var current int32
	var max int32

	work := func() {
		val := atomic.AddInt32(&current, 1)
		for {
			prev := atomic.LoadInt32(&max)
			if val <= prev {
				break
			}
			if atomic.CompareAndSwapInt32(&max, prev, val) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&current, -1)
	}

	for i := 0; i < 4; i++ {
		if err := pool.Submit(work); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	_ = pool.Shutdown(context.Background())
	if max > 2 {
		t.Fatalf("expected max concurrency <= 2, got %d", max)
	}
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	pool := New(1, nil)
	_ = pool.Shutdown(context.Background())
	if err := pool.Submit(func() {}); err == nil {
		t.Fatal("expected error after shutdown")
	}
}

func TestPoolSubmitWaitContextTimeout(t *testing.T) {
	pool := New(1, nil)
	defer func() {
		_ = pool.Shutdown(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.SubmitWaitContext(ctx, func() error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline exceeded, got %v", err)
	}
}

func TestPoolSubmitWaitReturnsTaskError(t *testing.T) {
	pool := New(1, nil)
	defer func() {
		_ = pool.Shutdown(context.Background())
	}()

	want := errors.New("boom")
	if err := pool.SubmitWait(func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected task error, got %v", err)
	}
}

func TestPoolSurvivesPanics(t *testing.T) {
	pool := New(1, nil)
	defer func() {
		_ = pool.Shutdown(context.Background())
	}()

	if err := pool.Submit(func() { panic("bad update") }); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	err := pool.SubmitWait(func() error { panic("again") })
	if err == nil {
		t.Fatal("expected panic to surface as error")
	}
	if err := pool.SubmitWait(func() error { return nil }); err != nil {
		t.Fatalf("worker should still run tasks, got %v", err)
	}
}

func TestPoolShutdownRunsQueuedTasks(t *testing.T) {
	pool := New(1, nil)
	var ran int32
	for i := 0; i < 5; i++ {
		if err := pool.Submit(func() { atomic.AddInt32(&ran, 1) }); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	if err := pool.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := atomic.LoadInt32(&ran); got != 5 {
		t.Fatalf("expected 5 tasks to run, got %d", got)
	}
}

func TestPoolStopNowRejectsSubmit(t *testing.T) {
	pool := New(2, nil)
	pool.StopNow()
	pool.StopNow()
	if err := pool.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
	if pool.Size() != 2 {
		t.Fatalf("expected size 2, got %d", pool.Size())
	}
}

func TestPoolShutdownNeverDropsAcceptedTasks(t *testing.T) {
	for round := 0; round < 50; round++ {
		pool := New(2, nil)

		var accepted, ran int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					if err := pool.Submit(func() { atomic.AddInt32(&ran, 1) }); err != nil {
						return
					}
					atomic.AddInt32(&accepted, 1)
				}
			}()
		}

		if err := pool.Shutdown(context.Background()); err != nil {
			t.Fatalf("round %d: shutdown: %v", round, err)
		}
		wg.Wait()

		if a, r := atomic.LoadInt32(&accepted), atomic.LoadInt32(&ran); a != r {
			t.Fatalf("round %d: accepted %d tasks but ran %d", round, a, r)
		}
	}
}
