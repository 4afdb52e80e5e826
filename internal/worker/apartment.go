// Package worker confines platform calls to one OS thread for accessibility
// APIs that demand single-threaded apartment access.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// DefaultQueueSize is the request queue depth; a full queue blocks callers.
const DefaultQueueSize = 256

// ErrClosed is returned by Do after Close.
var ErrClosed = platform.NewError(platform.CodeInternal, "apartment is closed")

type request struct {
	fn     func() error
	result chan error
}

// Apartment runs submitted functions one at a time on a single goroutine
// locked to its OS thread.
type Apartment struct {
	queue  chan request
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
	logger *zap.Logger

	// Metrics
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
}

// Option configures an Apartment.
type Option func(*Apartment)

// WithQueueSize overrides DefaultQueueSize.
func WithQueueSize(n int) Option {
	return func(a *Apartment) {
		if n > 0 {
			a.queue = make(chan request, n)
		}
	}
}

// WithLogger sets the logger used for recovered panics.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Apartment) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New starts an apartment. init, if non-nil, runs first on the locked
// thread (COM initialisation and the like); its error is returned and the
// apartment is not started.
func New(init func() error, opts ...Option) (*Apartment, error) {
	a := &Apartment{
		queue:  make(chan request, DefaultQueueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("component", "apartment"))

	started := make(chan error, 1)
	go a.loop(init, started)
	if err := <-started; err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Apartment) loop(init func() error, started chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(a.done)

	if init != nil {
		if err := init(); err != nil {
			started <- fmt.Errorf("apartment init: %w", err)
			return
		}
	}
	started <- nil

	for {
		select {
		case req := <-a.queue:
			err := a.execute(req.fn)
			if err != nil {
				a.failed.Add(1)
			} else {
				a.completed.Add(1)
			}
			req.result <- err
		case <-a.quit:
			return
		}
	}
}

func (a *Apartment) execute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.panicked.Add(1)
			a.logger.Error("platform call panicked", zap.Any("panic", r))
			err = platform.Errorf(platform.CodeInternal, "platform call panicked: %v", r)
		}
	}()
	return fn()
}

// Do runs fn on the apartment thread and waits for its result. It blocks
// while the queue is full. fn must not call Do itself.
func (a *Apartment) Do(ctx context.Context, fn func() error) error {
	if a.closed.Load() {
		return ErrClosed
	}
	a.submitted.Add(1)

	req := request{fn: fn, result: make(chan error, 1)}
	select {
	case a.queue <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-a.quit:
		return ErrClosed
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-a.done:
		// The loop may have finished this request just before exiting.
		select {
		case err := <-req.result:
			return err
		default:
			return ErrClosed
		}
	}
}

// Close stops the apartment after the call in progress, if any.
func (a *Apartment) Close() {
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.quit)
	})
	<-a.done
}

// Stats returns apartment statistics.
func (a *Apartment) Stats() Stats {
	return Stats{
		Queued:    len(a.queue),
		Capacity:  cap(a.queue),
		Submitted: a.submitted.Load(),
		Completed: a.completed.Load(),
		Failed:    a.failed.Load(),
		Panicked:  a.panicked.Load(),
	}
}

// Stats contains apartment statistics.
type Stats struct {
	Queued    int   `json:"queued"`
	Capacity  int   `json:"capacity"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panicked  int64 `json:"panicked"`
}
