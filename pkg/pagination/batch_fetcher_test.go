package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestBatchFetch_PreservesOrder(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	for concurrency := 1; concurrency <= len(items); concurrency++ {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			fetch := func(ctx context.Context, n int) (string, error) {
				// later items finish first
				time.Sleep(time.Duration(len(items)-n) * 100 * time.Microsecond)
				return fmt.Sprintf("r%d", n), nil
			}

			results, err := BatchFetch(context.Background(), items, fetch, BatchConfig{Concurrency: concurrency})
			if err != nil {
				t.Fatalf("BatchFetch() error = %v", err)
			}
			if len(results) != len(items) {
				t.Fatalf("BatchFetch() returned %d results, want %d", len(results), len(items))
			}
			for i, r := range results {
				if want := fmt.Sprintf("r%d", i); r != want {
					t.Fatalf("results[%d] = %q, want %q", i, r, want)
				}
			}
		})
	}
}

func TestBatchFetch_BoundsInFlight(t *testing.T) {
	const concurrency = 4
	var inFlight, maxInFlight atomic.Int32

	fetch := func(ctx context.Context, n int) (int, error) {
		cur := inFlight.Add(1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return n, nil
	}

	items := make([]int, 30)
	if _, err := BatchFetch(context.Background(), items, fetch, BatchConfig{Concurrency: concurrency}); err != nil {
		t.Fatalf("BatchFetch() error = %v", err)
	}
	if got := maxInFlight.Load(); got > concurrency {
		t.Errorf("max in flight = %d, want <= %d", got, concurrency)
	}
}

func TestBatchFetch_ProgressPerChunk(t *testing.T) {
	var calls [][2]int
	cfg := BatchConfig{
		Concurrency: 5,
		OnProgress: func(completed, total int) {
			calls = append(calls, [2]int{completed, total})
		},
	}

	items := make([]int, 12)
	fetch := func(ctx context.Context, n int) (int, error) { return n, nil }
	if _, err := BatchFetch(context.Background(), items, fetch, cfg); err != nil {
		t.Fatalf("BatchFetch() error = %v", err)
	}

	want := [][2]int{{5, 12}, {10, 12}, {12, 12}}
	if len(calls) != len(want) {
		t.Fatalf("progress called %d times, want %d", len(calls), len(want))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("progress call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestBatchFetch_ErrorAbortsRemainingChunks(t *testing.T) {
	boom := errors.New("boom")
	var started atomic.Int32

	fetch := func(ctx context.Context, n int) (int, error) {
		started.Add(1)
		if n == 3 {
			return 0, boom
		}
		return n, nil
	}

	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	results, err := BatchFetch(context.Background(), items, fetch, BatchConfig{Concurrency: 2})
	if !errors.Is(err, boom) {
		t.Fatalf("BatchFetch() error = %v, want %v", err, boom)
	}
	if results != nil {
		t.Errorf("Expected nil results on failure")
	}
	if got := started.Load(); got != 4 {
		t.Errorf("started %d fetches, want 4 (chunks after the failure must not run)", got)
	}
}

func TestBatchFetch_SentinelToleratesFailures(t *testing.T) {
	fetch := func(ctx context.Context, n int) (*int, error) {
		if n%2 == 1 {
			return nil, nil
		}
		return &n, nil
	}

	results, err := BatchFetch(context.Background(), []int{0, 1, 2, 3}, fetch, BatchConfig{})
	if err != nil {
		t.Fatalf("BatchFetch() error = %v", err)
	}
	if results[1] != nil || results[3] != nil {
		t.Error("Expected nil sentinels for odd items")
	}
	if results[2] == nil || *results[2] != 2 {
		t.Error("Expected value for item 2")
	}
}

func TestBatchFetch_Empty(t *testing.T) {
	called := false
	results, err := BatchFetch(context.Background(), []string{}, func(ctx context.Context, s string) (string, error) {
		called = true
		return s, nil
	}, BatchConfig{OnProgress: func(int, int) { called = true }})
	if err != nil {
		t.Fatalf("BatchFetch() error = %v", err)
	}
	if len(results) != 0 || called {
		t.Error("Empty input should not call fetch or progress")
	}
}
