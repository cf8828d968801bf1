package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLocalLocker_Exclusive(t *testing.T) {
	t.Parallel()

	l := NewLocalLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "PE11403")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max holders = %d, want 1", maxSeen)
	}
	if len(l.locks) != 0 {
		t.Errorf("%d idle keys retained", len(l.locks))
	}
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	t.Parallel()

	l := NewLocalLocker()
	unlockA, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("lock on other key blocked: %v", err)
	}
	unlockB()
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	t.Parallel()

	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "spec")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "spec"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lock error = %v, want deadline exceeded", err)
	}

	unlock()
	unlock() // second call is a no-op

	again, err := l.Lock(context.Background(), "spec")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}
