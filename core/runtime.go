package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kkkz76/askvox/core/vad"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// loopQueueCapacity bounds pending transitions. Device ticks are dropped when
// it is full; everything else waits.
const loopQueueCapacity = 256

var ErrClosed = errors.New("overlay closed")

type loopItem struct {
	name     string
	run      func()
	queuedAt time.Time
}

// runtime is the single goroutine every state transition runs on.
type runtime struct {
	queue   chan loopItem
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

func newRuntime() *runtime {
	return &runtime{
		queue:   make(chan loopItem, loopQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (r *runtime) start(ctx context.Context) (started bool) {
	if r.isClosed() {
		return false
	}

	r.startOnce.Do(func() {
		if r.isClosed() {
			return
		}

		started = true
		r.started.Store(true)
		go func() {
			defer close(r.done)

			for {
				select {
				case <-r.closeCh:
					return
				case item := <-r.queue:
					if r.isClosed() {
						return
					}
					r.process(ctx, item)
				}
			}
		}()
	})

	return started
}

func (r *runtime) process(ctx context.Context, item loopItem) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("%s panicked: %v", item.name, recovered)
			logger.ErrorContext(ctx, "overlay transition panicked", "transition", item.name, "error", err)
		}
	}()

	if waited := time.Since(item.queuedAt); waited > time.Second {
		logger.WarnContext(ctx, "overlay transition waited long in queue",
			"transition", item.name, "waited", waited)
	}
	item.run()
}

func (r *runtime) end() {
	r.endOnce.Do(func() { close(r.closeCh) })
}

func (r *runtime) waitUntilEnded() {
	if r.started.Load() {
		<-r.done
	}
}

func (r *runtime) isClosed() bool {
	select {
	case <-r.closeCh:
		return true
	default:
		return false
	}
}

// post queues fn in FIFO order, waiting for room. It must not be called from
// the loop itself with a full queue.
func (r *runtime) post(name string, fn func()) bool {
	if r.isClosed() {
		return false
	}

	select {
	case <-r.closeCh:
		return false
	case r.queue <- loopItem{name: name, run: fn, queuedAt: time.Now()}:
		return true
	}
}

// tryPost queues fn only if there is room right away.
func (r *runtime) tryPost(name string, fn func()) bool {
	if r.isClosed() {
		return false
	}

	select {
	case r.queue <- loopItem{name: name, run: fn, queuedAt: time.Now()}:
		return true
	default:
		return false
	}
}

// do runs fn on the loop and waits for its result. fn is skipped when ctx is
// done by the time the loop reaches it.
func (r *runtime) do(ctx context.Context, name string, fn func() error) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	result := make(chan error, 1)
	queued := func() {
		if err := ctx.Err(); err != nil {
			result <- err
			return
		}
		result <- fn()
	}
	if !r.post(name, queued) {
		return ErrClosed
	}

	var err error
	select {
	case err = <-result:
	case <-r.closeCh:
		err = ErrClosed
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		span.SetAttributes(attribute.String("overlay.transition", name))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// loopScheduler delivers timer firings onto the loop, so detectors and the
// avatar never see a firing concurrently with a tick.
type loopScheduler struct {
	base    vad.Scheduler
	runtime *runtime
	name    string
}

func (s loopScheduler) AfterFunc(d time.Duration, fn func()) func() {
	return s.base.AfterFunc(d, func() { s.runtime.post(s.name, fn) })
}
