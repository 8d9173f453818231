package repoql

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/zoobzio/repoql/internal/types"
)

// Subscriber receives the signals of one subscription. OnSubscribe is
// called on the subscribing goroutine; the other signals are delivered
// one at a time from a single producer goroutine.
type Subscriber[T any] interface {
	OnSubscribe(Subscription)
	OnNext(T)
	OnError(error)
	OnComplete()
}

// Subscription controls the flow of one subscriber.
type Subscription interface {
	// Request asks for up to n more records. Demand accumulates.
	Request(n int64)
	// Cancel stops production and releases the cursor. No further
	// signals are delivered.
	Cancel()
}

// Publisher is a cold, demand-driven source of decoded records. Nothing
// runs until a subscriber requests; records are read from the manager one
// at a time as demand allows. Every subscription re-executes the query,
// so consume a publisher once.
type Publisher[T any] struct {
	seq *Sequence
	err error
}

// NewPublisher returns a publisher over seq.
func NewPublisher[T any](seq *Sequence) *Publisher[T] {
	return &Publisher[T]{seq: seq}
}

// Publish binds stmt and returns a publisher of its records.
func Publish[T any](stmt *Statement) (*Publisher[T], error) {
	seq, err := stmt.Sequence()
	if err != nil {
		return nil, err
	}
	return NewPublisher[T](seq), nil
}

// Subscribe attaches s. The query runs on the first Request.
func (p *Publisher[T]) Subscribe(ctx context.Context, s Subscriber[T]) {
	if p.err != nil {
		s.OnSubscribe(failed{})
		s.OnError(p.err)
		return
	}
	sub := &subscription[T]{
		seq:        p.seq,
		subscriber: s,
		wake:       make(chan struct{}, 1),
	}
	s.OnSubscribe(sub)
	go sub.run(ctx)
}

// failed is the subscription of a publisher that could not be built.
type failed struct{}

func (failed) Request(int64) {}
func (failed) Cancel()       {}

type subscription[T any] struct {
	seq        *Sequence
	subscriber Subscriber[T]

	mu        sync.Mutex
	demand    int64
	cancelled bool
	invalid   error
	wake      chan struct{}
}

func (s *subscription[T]) Request(n int64) {
	s.mu.Lock()
	switch {
	case n <= 0:
		if s.invalid == nil {
			s.invalid = fmt.Errorf("request must be positive, got %d", n)
		}
	case s.demand > math.MaxInt64-n:
		s.demand = math.MaxInt64
	default:
		s.demand += n
	}
	s.mu.Unlock()
	s.signal()
}

func (s *subscription[T]) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.signal()
}

func (s *subscription[T]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription[T]) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// await blocks until there is demand and takes all of it. It returns 0
// once the subscription must stop.
func (s *subscription[T]) await(ctx context.Context) (int64, error) {
	for {
		s.mu.Lock()
		switch {
		case s.cancelled:
			s.mu.Unlock()
			return 0, nil
		case s.invalid != nil:
			err := s.invalid
			s.mu.Unlock()
			return 0, err
		case s.demand > 0:
			n := s.demand
			s.demand = 0
			s.mu.Unlock()
			return n, nil
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func (s *subscription[T]) run(ctx context.Context) {
	var rows *Rows
	defer func() {
		if rows != nil {
			_ = rows.Close()
		}
	}()

	for {
		n, err := s.await(ctx)
		if err != nil {
			s.subscriber.OnError(err)
			return
		}
		if n == 0 {
			return
		}

		if rows == nil {
			rows, err = s.seq.Open(ctx)
			if err != nil {
				s.subscriber.OnError(err)
				return
			}
		}

		for ; n > 0; n-- {
			if s.isCancelled() {
				return
			}
			if !rows.Next() {
				if err := rows.Err(); err != nil {
					s.subscriber.OnError(err)
				} else {
					s.subscriber.OnComplete()
				}
				return
			}
			item, err := Decode[T](rows.Record())
			if err != nil {
				s.subscriber.OnError(err)
				return
			}
			s.subscriber.OnNext(item)
		}
	}
}

// collectBatch is the demand a collecting subscriber requests at a time.
const collectBatch = 32

// collector is a subscriber that hands each item to a function and can
// stop after a fixed number of items.
type collector[T any] struct {
	each        func(T)
	limit       int
	batch       int64
	sub         Subscription
	outstanding int64
	seen        int
	done        chan struct{}
	once        sync.Once
	err         error
}

func newCollector[T any](limit int, each func(T)) *collector[T] {
	batch := int64(collectBatch)
	if limit > 0 && int64(limit) < batch {
		batch = int64(limit)
	}
	return &collector[T]{each: each, limit: limit, batch: batch, done: make(chan struct{})}
}

func (c *collector[T]) OnSubscribe(s Subscription) {
	c.sub = s
	c.outstanding = c.batch
	s.Request(c.batch)
}

func (c *collector[T]) OnNext(item T) {
	c.each(item)
	c.seen++
	if c.limit > 0 && c.seen >= c.limit {
		c.sub.Cancel()
		c.finish(nil)
		return
	}
	c.outstanding--
	if c.outstanding == 0 {
		c.outstanding = c.batch
		c.sub.Request(c.batch)
	}
}

func (c *collector[T]) OnError(err error) { c.finish(err) }

func (c *collector[T]) OnComplete() { c.finish(nil) }

func (c *collector[T]) finish(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

func (c *collector[T]) wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		c.sub.Cancel()
		return ctx.Err()
	}
}

func (p *Publisher[T]) collect(ctx context.Context, limit int, each func(T)) error {
	c := newCollector(limit, each)
	p.Subscribe(ctx, c)
	return c.wait(ctx)
}

// First subscribes, takes one record and cancels.
func (p *Publisher[T]) First(ctx context.Context) (T, bool, error) {
	var (
		out   T
		found bool
	)
	err := p.collect(ctx, 1, func(item T) { out, found = item, true })
	if err != nil {
		var zero T
		return zero, false, err
	}
	return out, found, nil
}

// Single subscribes and fails with *NonUniqueResultError when more than
// one record arrives.
func (p *Publisher[T]) Single(ctx context.Context) (T, bool, error) {
	var (
		zero  T
		items []T
	)
	if err := p.collect(ctx, 2, func(item T) { items = append(items, item) }); err != nil {
		return zero, false, err
	}
	switch len(items) {
	case 0:
		return zero, false, nil
	case 1:
		return items[0], true, nil
	}
	return zero, false, &types.NonUniqueResultError{Entity: p.seq.Entity().Name}
}

// List subscribes and gathers every record.
func (p *Publisher[T]) List(ctx context.Context) ([]T, error) {
	out := []T{}
	if err := p.collect(ctx, 0, func(item T) { out = append(out, item) }); err != nil {
		return nil, err
	}
	return out, nil
}

// Collect folds every record of p into an accumulator.
func Collect[T, A any](ctx context.Context, p *Publisher[T], init A, fn func(A, T) A) (A, error) {
	acc := init
	if err := p.collect(ctx, 0, func(item T) { acc = fn(acc, item) }); err != nil {
		return init, err
	}
	return acc, nil
}

// publisherFactory builds publishers without naming T, for the repository
// dispatcher.
type publisherFactory interface {
	publish(seq *Sequence, err error) any
}

func (*Publisher[T]) publish(seq *Sequence, err error) any {
	return &Publisher[T]{seq: seq, err: err}
}
