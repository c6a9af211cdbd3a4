package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestChunk(t *testing.T) {
	keys := make([]int, 120)
	var sizes []int
	for _, c := range Chunk(keys, 50) {
		sizes = append(sizes, len(c))
	}
	if diff := cmp.Diff([]int{50, 50, 20}, sizes); diff != "" {
		t.Fatalf("chunk sizes (-want +got):\n%s", diff)
	}

	if got := Chunk([]int{1, 2, 3}, 0); len(got) != 1 || len(got[0]) != 3 {
		t.Fatalf("Chunk(size=0) = %v", got)
	}
	if got := Chunk([]int{1, 2}, 10); len(got) != 1 {
		t.Fatalf("Chunk(size>len) = %v", got)
	}
	if got := Chunk[int](nil, 5); got != nil {
		t.Fatalf("Chunk(nil) = %v", got)
	}
}

// inflight tracks the number of concurrently running calls.
type inflight struct {
	cur, peak atomic.Int32
}

func (f *inflight) enter() {
	n := f.cur.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (f *inflight) leave() { f.cur.Add(-1) }

func TestRunPreservesOrder(t *testing.T) {
	const n = 6
	payloads := make([]int, n)
	for i := range payloads {
		payloads[i] = i
	}

	out, err := Run(context.Background(), payloads, Options{MaxConcurrent: 3},
		func(ctx context.Context, it Item[int]) (string, error) {
			// Item 0 is the slowest, the last item the fastest.
			time.Sleep(time.Duration(n-it.Index) * 5 * time.Millisecond)
			return fmt.Sprintf("v%d", it.Payload), nil
		})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Combined) != n || len(out.Succeeded) != n || len(out.Errors) != 0 {
		t.Fatalf("outcome sizes: combined=%d ok=%d err=%d", len(out.Combined), len(out.Succeeded), len(out.Errors))
	}
	for i, r := range out.Combined {
		if r.Index != i || r.Value != fmt.Sprintf("v%d", i) || !r.OK() {
			t.Errorf("Combined[%d] = %+v", i, r)
		}
	}
}

func TestRunConcurrencyBound(t *testing.T) {
	var f inflight
	payloads := make([]int, 25)

	_, err := Run(context.Background(), payloads, Options{MaxConcurrent: 3},
		func(ctx context.Context, it Item[int]) (int, error) {
			f.enter()
			defer f.leave()
			time.Sleep(2 * time.Millisecond)
			return it.Index, nil
		})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if peak := f.peak.Load(); peak > 3 || peak < 1 {
		t.Fatalf("peak in-flight = %d, want 1..3", peak)
	}
}

func TestRunRecordsFailures(t *testing.T) {
	errOdd := errors.New("odd")
	payloads := []int{0, 1, 2, 3, 4, 5}

	out, err := Run(context.Background(), payloads, Options{MaxConcurrent: 2},
		func(ctx context.Context, it Item[int]) (int, error) {
			switch {
			case it.Payload == 4:
				panic("boom")
			case it.Payload%2 == 1:
				return 0, errOdd
			}
			return it.Payload * 10, nil
		})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Succeeded) != 2 || len(out.Errors) != 4 {
		t.Fatalf("succeeded=%d errors=%d, want 2 and 4", len(out.Succeeded), len(out.Errors))
	}
	for _, i := range []int{1, 3, 5} {
		if !errors.Is(out.Combined[i].Err, errOdd) {
			t.Errorf("Combined[%d].Err = %v", i, out.Combined[i].Err)
		}
	}
	if out.Combined[4].Err == nil {
		t.Error("panic was not converted to an error")
	}
	if out.Combined[2].Value != 20 || out.Combined[0].Value != 0 || !out.Combined[0].OK() {
		t.Errorf("successful results = %+v, %+v", out.Combined[0], out.Combined[2])
	}
}

func TestRunChunksBoundedLanes(t *testing.T) {
	keys := make([]string, 120)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%03d", i)
	}

	var (
		f     inflight
		mu    sync.Mutex
		sizes = map[int]int{}
		calls atomic.Int32
	)
	out, err := RunChunks(context.Background(), keys, 50, Options{MaxConcurrent: 2},
		func(ctx context.Context, it Item[[]string]) (int, error) {
			f.enter()
			defer f.leave()
			calls.Add(1)
			mu.Lock()
			sizes[it.Index] = len(it.Payload)
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			return len(it.Payload), nil
		})
	if err != nil {
		t.Fatalf("RunChunks: %v", err)
	}
	if calls.Load() != 3 || len(out.Combined) != 3 {
		t.Fatalf("calls = %d, combined = %d, want 3", calls.Load(), len(out.Combined))
	}
	if diff := cmp.Diff(map[int]int{0: 50, 1: 50, 2: 20}, sizes); diff != "" {
		t.Errorf("chunk sizes (-want +got):\n%s", diff)
	}
	if peak := f.peak.Load(); peak > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", peak)
	}
}

func TestRunStates(t *testing.T) {
	var states []State
	record := Options{MaxConcurrent: 2, OnState: func(s State) { states = append(states, s) }}

	_, err := Run(context.Background(), []int{1, 2, 3}, record,
		func(ctx context.Context, it Item[int]) (int, error) { return it.Payload, nil })
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]State{Dispatching, Draining, Complete}, states); diff != "" {
		t.Fatalf("states (-want +got):\n%s", diff)
	}

	states = nil
	out, err := Run(context.Background(), []int(nil), record,
		func(ctx context.Context, it Item[int]) (int, error) { return 0, nil })
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Combined) != 0 || len(states) != 1 || states[0] != Complete {
		t.Fatalf("empty batch: combined=%d states=%v", len(out.Combined), states)
	}
}

func TestRunProgress(t *testing.T) {
	var (
		mu   sync.Mutex
		last int
	)
	opts := Options{MaxConcurrent: 4, OnProgress: func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != 10 {
			t.Errorf("total = %d", total)
		}
		if done > last {
			last = done
		}
	}}
	_, err := Run(context.Background(), make([]int, 10), opts,
		func(ctx context.Context, it Item[int]) (int, error) { return 0, nil })
	if err != nil {
		t.Fatal(err)
	}
	if last != 10 {
		t.Fatalf("last progress = %d, want 10", last)
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	out, err := Run(ctx, []int{1, 2, 3}, Options{},
		func(ctx context.Context, it Item[int]) (int, error) {
			calls.Add(1)
			return 0, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 0 {
		t.Fatalf("fn called %d times after cancel", calls.Load())
	}
	for i, r := range out.Combined {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("Combined[%d].Err = %v", i, r.Err)
		}
	}
}
