package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchSuccess(t *testing.T) {
	client := New[[]string]()
	observer := client.Observe("posts", func(ctx context.Context) ([]string, error) {
		return []string{"hello"}, nil
	}, ObserveOptions{})

	before := observer.Snapshot()
	if before.Status != StatusIdle {
		t.Errorf("Expected initial status idle, got %s", before.Status)
	}
	if before.IsFetching {
		t.Error("Expected IsFetching false before any fetch")
	}
	if !before.LastUpdated.IsZero() {
		t.Error("Expected zero LastUpdated before any fetch")
	}

	if err := observer.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() returned error: %v", err)
	}

	after := observer.Snapshot()
	if after.Status != StatusSuccess {
		t.Errorf("Expected status success, got %s", after.Status)
	}
	if after.IsFetching {
		t.Error("Expected IsFetching false after fetch completed")
	}
	if after.LastUpdated.IsZero() {
		t.Error("Expected LastUpdated to be set after success")
	}
	if len(after.Data) != 1 || after.Data[0] != "hello" {
		t.Errorf("Expected data [hello], got %v", after.Data)
	}
}

func TestFetchErrorKeepsLastUpdated(t *testing.T) {
	client := New[string]()
	observer := client.Observe("post/42", func(ctx context.Context) (string, error) {
		return "", errors.New("network error")
	}, ObserveOptions{})

	err := observer.Refetch(context.Background())
	if err == nil {
		t.Fatal("Expected error from failing fetch")
	}
	if !IsFetchError(err) {
		t.Errorf("Expected a fetch error, got %v", err)
	}

	state := observer.Snapshot()
	if state.Status != StatusError {
		t.Errorf("Expected status error, got %s", state.Status)
	}
	if state.Error != "network error" {
		t.Errorf("Expected error message 'network error', got %q", state.Error)
	}
	if state.IsFetching {
		t.Error("Expected IsFetching false after failed fetch")
	}
	if !state.LastUpdated.IsZero() {
		t.Error("Expected LastUpdated to stay zero after failure")
	}
}

func TestFetchingNotificationBeforeTerminal(t *testing.T) {
	client := New[string]()
	observer := client.Observe("posts", func(ctx context.Context) (string, error) {
		return "data", nil
	}, ObserveOptions{})

	var snapshots []State[string]
	sub := observer.query.subscribe(observer, func() {
		snapshots = append(snapshots, observer.Snapshot())
	})
	defer observer.Unsubscribe(sub)

	if err := observer.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() returned error: %v", err)
	}

	if len(snapshots) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(snapshots))
	}
	if !snapshots[0].IsFetching {
		t.Error("Expected first notification to observe IsFetching=true")
	}
	if snapshots[0].Status != StatusLoading {
		t.Errorf("Expected loading status during first fetch, got %s", snapshots[0].Status)
	}
	if snapshots[1].IsFetching {
		t.Error("Expected terminal notification to observe IsFetching=false")
	}
	if snapshots[1].Status != StatusSuccess {
		t.Errorf("Expected success status on terminal notification, got %s", snapshots[1].Status)
	}
}

func TestNotificationOrder(t *testing.T) {
	client := New[string]()
	observer := client.Observe("posts", func(ctx context.Context) (string, error) {
		return "data", nil
	}, ObserveOptions{})

	var order []int
	for i := 1; i <= 3; i++ {
		id := i
		sub := observer.query.subscribe(observer, func() {
			order = append(order, id)
		})
		defer observer.Unsubscribe(sub)
	}

	if err := observer.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() returned error: %v", err)
	}

	want := []int{1, 2, 3, 1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("Expected %d notifications, got %d: %v", len(want), len(order), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected notification order %v, got %v", want, order)
		}
	}
}

func TestFetchCoalesced(t *testing.T) {
	gate := make(chan struct{})
	var calls int32

	client := New[string]()
	observer := client.Observe("posts", func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return "data", nil
	}, ObserveOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := observer.Refetch(context.Background()); err != nil {
				t.Errorf("Refetch() returned error: %v", err)
			}
		}()
	}

	// Let every trigger either own the fetch or attach to it.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected fetch function to run once, ran %d times", n)
	}
	if state := observer.Snapshot(); state.Status != StatusSuccess {
		t.Errorf("Expected success after coalesced fetch, got %s", state.Status)
	}
}

func TestCoalescedWaiterSharesError(t *testing.T) {
	gate := make(chan struct{})

	client := New[string]()
	observer := client.Observe("posts", func(ctx context.Context) (string, error) {
		<-gate
		return "", errors.New("boom")
	}, ObserveOptions{})

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errs <- observer.Refetch(context.Background())
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(gate)

	for i := 0; i < 2; i++ {
		if err := <-errs; !IsFetchError(err) {
			t.Errorf("Expected both callers to observe the fetch error, got %v", err)
		}
	}
}

func TestWaiterContextCancellation(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	client := New[string]()
	observer := client.Observe("posts", func(ctx context.Context) (string, error) {
		<-gate
		return "data", nil
	}, ObserveOptions{})

	go func() {
		_ = observer.Refetch(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := observer.Refetch(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled for cancelled waiter, got %v", err)
	}
}

func TestLastUpdatedMonotonic(t *testing.T) {
	client := New[string]()
	observer := client.Observe("posts", func(ctx context.Context) (string, error) {
		return "data", nil
	}, ObserveOptions{})

	if err := observer.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() returned error: %v", err)
	}
	first := observer.Snapshot().LastUpdated

	if err := observer.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() returned error: %v", err)
	}
	second := observer.Snapshot().LastUpdated

	if second.Before(first) {
		t.Errorf("Expected LastUpdated to be non-decreasing: first=%v second=%v", first, second)
	}
}

func TestErrorClearedOnRecovery(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	client := New[string]()
	observer := client.Observe("posts", func(ctx context.Context) (string, error) {
		if fail.Load() {
			return "", errors.New("network error")
		}
		return "data", nil
	}, ObserveOptions{})

	if err := observer.Refetch(context.Background()); err == nil {
		t.Fatal("Expected first fetch to fail")
	}

	fail.Store(false)
	if err := observer.Refetch(context.Background()); err != nil {
		t.Fatalf("Expected second fetch to succeed, got %v", err)
	}

	state := observer.Snapshot()
	if state.Status != StatusSuccess {
		t.Errorf("Expected success after recovery, got %s", state.Status)
	}
	if state.Error != "" {
		t.Errorf("Expected error message cleared after recovery, got %q", state.Error)
	}
}
