// Package dispatch runs independent work items through a bounded pool of
// lanes and collects every outcome. A failing item never stops the batch:
// its error is recorded next to the successes of the others.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// DefaultMaxConcurrent is used when Options.MaxConcurrent is not positive.
const DefaultMaxConcurrent = 10

// State is the lifecycle stage of one batch.
type State int32

const (
	// Pending: nothing dispatched yet.
	Pending State = iota
	// Dispatching: lanes are busy and unclaimed items remain.
	Dispatching
	// Draining: every item is claimed, lanes are finishing.
	Draining
	// Complete: every item has resolved.
	Complete
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Dispatching:
		return "dispatching"
	case Draining:
		return "draining"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Item is one unit of work with its position in the input.
type Item[T any] struct {
	Index   int
	Payload T
}

// Result is the outcome of one item. Exactly one of Value and Err is
// meaningful.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// OK reports whether the item succeeded.
func (r Result[R]) OK() bool {
	return r.Err == nil
}

// Outcome collects the results of a batch.
type Outcome[R any] struct {
	// Succeeded and Errors are in completion order.
	Succeeded []Result[R]
	Errors    []Result[R]
	// Combined holds the result of input i at position i.
	Combined []Result[R]
}

// Options configures a batch.
type Options struct {
	// MaxConcurrent bounds the number of lanes.
	MaxConcurrent int
	// OnState is called on every state transition.
	OnState func(State)
	// OnProgress is called after each item resolves, possibly from several
	// lanes at once.
	OnProgress func(done, total int)
}

func (o Options) lanes(n int) int {
	lanes := o.MaxConcurrent
	if lanes <= 0 {
		lanes = DefaultMaxConcurrent
	}
	if lanes > n {
		lanes = n
	}
	return lanes
}

// Func processes one item.
type Func[T, R any] func(ctx context.Context, item Item[T]) (R, error)

// Run processes payloads with at most opts.MaxConcurrent items in flight.
// Whenever a lane finishes it takes the next unclaimed item, so lanes stay
// busy until the input runs out. Run returns once every item has resolved.
//
// A panic in fn is converted to that item's error. Items not yet claimed
// when ctx is done resolve with ctx.Err() without calling fn; items already
// in flight are not interrupted by Run. The returned error is non-nil only
// when the lane pool cannot be created.
func Run[T, R any](ctx context.Context, payloads []T, opts Options, fn Func[T, R]) (*Outcome[R], error) {
	b := &batch[R]{
		opts: opts,
		out: &Outcome[R]{
			Combined: make([]Result[R], len(payloads)),
		},
		total: len(payloads),
	}
	if len(payloads) == 0 {
		b.setState(Complete)
		return b.out, nil
	}

	pool, err := ants.NewPool(opts.lanes(len(payloads)))
	if err != nil {
		return nil, fmt.Errorf("creating lane pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	b.setState(Dispatching)
	for i, p := range payloads {
		item := Item[T]{Index: i, Payload: p}
		if err := ctx.Err(); err != nil {
			b.resolve(item.Index, *new(R), err)
			continue
		}

		wg.Add(1)
		// Submit blocks while every lane is busy.
		err := pool.Submit(func() {
			defer wg.Done()
			v, err := call(ctx, item, fn)
			b.resolve(item.Index, v, err)
		})
		if err != nil {
			wg.Done()
			b.resolve(item.Index, *new(R), fmt.Errorf("submitting item %d: %w", item.Index, err))
		}
	}
	b.setState(Draining)
	wg.Wait()
	b.setState(Complete)
	return b.out, nil
}

// RunChunks splits list into chunks of size and runs fn once per chunk.
func RunChunks[T, R any](ctx context.Context, list []T, size int, opts Options, fn Func[[]T, R]) (*Outcome[R], error) {
	return Run(ctx, Chunk(list, size), opts, fn)
}

func call[T, R any](ctx context.Context, item Item[T], fn Func[T, R]) (v R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("item %d panicked: %v", item.Index, r)
		}
	}()
	return fn(ctx, item)
}

type batch[R any] struct {
	opts Options

	mu    sync.Mutex
	out   *Outcome[R]
	done  int
	total int
}

func (b *batch[R]) setState(s State) {
	if b.opts.OnState != nil {
		b.opts.OnState(s)
	}
}

func (b *batch[R]) resolve(index int, v R, err error) {
	res := Result[R]{Index: index, Value: v, Err: err}

	b.mu.Lock()
	b.out.Combined[index] = res
	if err != nil {
		b.out.Errors = append(b.out.Errors, res)
	} else {
		b.out.Succeeded = append(b.out.Succeeded, res)
	}
	b.done++
	done := b.done
	b.mu.Unlock()

	if b.opts.OnProgress != nil {
		b.opts.OnProgress(done, b.total)
	}
}

// Chunk splits list into consecutive groups of at most size elements. A
// non-positive size yields a single group.
func Chunk[T any](list []T, size int) [][]T {
	if len(list) == 0 {
		return nil
	}
	if size <= 0 || size >= len(list) {
		return [][]T{list}
	}
	chunks := make([][]T, 0, (len(list)+size-1)/size)
	for i := 0; i < len(list); i += size {
		end := i + size
		if end > len(list) {
			end = len(list)
		}
		chunks = append(chunks, list[i:end:end])
	}
	return chunks
}
