// Package bridge owns the store's execution context. Exactly one
// worker goroutine runs submitted operations, so the single physical
// connection is never touched from two contexts at once. Producers
// (chat ingestion, the front end, the sweeper) submit work and either
// await the result or fire and forget.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/streamartifact/streamartifact/store"
)

var ErrClosed = errors.New("bridge is closed")

const (
	defaultQueueSize = 256
	defaultOpTimeout = 10 * time.Second
)

// Op is one unit of work against the store. Once accepted it runs to
// completion; the bridge never cancels an accepted operation.
type Op func(ctx context.Context, s *store.Store) error

type task struct {
	op     Op
	result chan error
	posted bool
}

type Config struct {
	// QueueSize bounds pending submissions. Submit blocks when full;
	// Post drops and logs.
	QueueSize int
	// OpTimeout bounds a single store operation, not the caller's wait.
	OpTimeout time.Duration
}

type Bridge struct {
	store  *store.Store
	closer func() error
	log    *slog.Logger

	queue      chan *task
	done       chan struct{}
	workerDone chan struct{}
	closeOnce  sync.Once
	opTimeout  time.Duration
}

// New takes ownership of an already-open store and starts the worker.
// closer releases the underlying connection and is called exactly once
// during Close, after the queue has drained.
func New(st *store.Store, closer func() error, cfg Config, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = defaultOpTimeout
	}
	b := &Bridge{
		store:      st,
		closer:     closer,
		log:        log.With("component", "bridge"),
		queue:      make(chan *task, cfg.QueueSize),
		done:       make(chan struct{}),
		workerDone: make(chan struct{}),
		opTimeout:  cfg.OpTimeout,
	}
	go b.worker()
	return b
}

// Submit runs op on the bridge worker and waits for its result. The
// caller's ctx bounds the wait only: when ctx expires first, Submit
// returns ctx.Err() and the operation still runs to completion.
func (b *Bridge) Submit(ctx context.Context, op Op) error {
	t := &task{op: op, result: make(chan error, 1)}
	select {
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case b.queue <- t:
	}
	select {
	case err := <-t.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-b.workerDone:
		// Lost the race with shutdown after enqueue.
		select {
		case err := <-t.result:
			return err
		default:
			return ErrClosed
		}
	}
}

// Post submits op without waiting. Failures are logged and discarded.
// A full queue drops the operation rather than blocking the producer.
func (b *Bridge) Post(op Op) {
	t := &task{op: op, posted: true}
	select {
	case <-b.done:
		b.log.Warn("post after close, dropping operation")
	case b.queue <- t:
	default:
		b.log.Warn("queue full, dropping posted operation")
	}
}

// Query submits a read that produces a value and waits for it.
func Query[T any](ctx context.Context, b *Bridge, fn func(ctx context.Context, s *store.Store) (T, error)) (T, error) {
	var out T
	err := b.Submit(ctx, func(ctx context.Context, s *store.Store) error {
		v, err := fn(ctx, s)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Close stops intake, drains queued and in-flight operations, then
// releases the connection.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		<-b.workerDone
		if b.closer != nil {
			err = b.closer()
		}
	})
	return err
}

func (b *Bridge) worker() {
	defer close(b.workerDone)
	for {
		select {
		case t := <-b.queue:
			b.run(t)
		case <-b.done:
			b.drain()
			return
		}
	}
}

func (b *Bridge) drain() {
	for {
		select {
		case t := <-b.queue:
			b.run(t)
		default:
			return
		}
	}
}

func (b *Bridge) run(t *task) {
	ctx, cancel := context.WithTimeout(context.Background(), b.opTimeout)
	defer cancel()

	err := t.op(ctx, b.store)
	if t.posted {
		if err != nil {
			b.log.Warn("posted operation failed", "error", err)
		}
		return
	}
	t.result <- err
}
