package limiter

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of concurrently running tasks.
// Admission is first-come first-served: semaphore.Weighted queues waiters in FIFO order.
type Limiter struct {
	sem     *semaphore.Weighted
	ceiling int64
	active  atomic.Int64
	peak    atomic.Int64
	log     *logrus.Entry
}

// New creates a Limiter with the given ceiling. A non-positive ceiling is treated as 1.
func New(ceiling int, log *logrus.Entry) *Limiter {
	limit := int64(ceiling)
	if limit <= 0 {
		limit = 1
		log.Warnf("concurrency ceiling invalid or zero, defaulting to %d", limit)
	}
	return &Limiter{
		sem:     semaphore.NewWeighted(limit),
		ceiling: limit,
		log:     log,
	}
}

// Admit blocks until a slot is free or ctx is done
func (l *Limiter) Admit(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	n := l.active.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return nil
}

// Release frees a slot taken by Admit
func (l *Limiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// Ceiling returns the configured limit.
func (l *Limiter) Ceiling() int { return int(l.ceiling) }

// InFlight returns the number of currently admitted tasks.
func (l *Limiter) InFlight() int { return int(l.active.Load()) }

// Peak returns the highest number of simultaneously admitted tasks observed.
func (l *Limiter) Peak() int { return int(l.peak.Load()) }

// Result is the isolated outcome of one item
type Result[T, R any] struct {
	Index int // Position of the item in the submitted slice
	Item  T
	Value R
	Err   error
}

// Run executes work for every item with at most l.Ceiling() running at once. Items are admitted
// in submission order; results are delivered on the returned channel in completion order and the
// channel is closed once every item has produced exactly one result. A failing or panicking item
// never affects the others. If ctx ends before an item is admitted, that item's result carries ctx.Err().
func Run[T, R any](ctx context.Context, l *Limiter, items []T, work func(context.Context, T) (R, error)) <-chan Result[T, R] {
	results := make(chan Result[T, R], len(items))

	go func() {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			close(results)
		}()

		for i, item := range items {
			if err := l.Admit(ctx); err != nil {
				results <- Result[T, R]{Index: i, Item: item, Err: err}
				continue
			}

			wg.Add(1)
			go func(i int, item T) {
				defer wg.Done()
				res := Result[T, R]{Index: i, Item: item}
				func() {
					defer l.Release()
					defer func() {
						if r := recover(); r != nil {
							l.log.WithFields(logrus.Fields{
								"index":       i,
								"panic_info":  r,
								"stack_trace": string(debug.Stack()),
							}).Error("PANIC Recovered in limited task")
							res.Err = fmt.Errorf("task panicked: %v", r)
						}
					}()
					res.Value, res.Err = work(ctx, item)
				}()
				results <- res
			}(i, item)
		}
	}()

	return results
}
