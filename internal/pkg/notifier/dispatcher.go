// Package notifier runs secondary effects (notifications, emails, chat rooms, login
// activity) off the request path. Tasks are retried with exponential backoff and their
// failures are logged, never returned to the caller that enqueued them.
package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config tunes the dispatcher
type Config struct {
	Workers        int
	QueueSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	TaskTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 200 * time.Millisecond
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff * 16
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 10 * time.Second
	}
	return c
}

// TaskFunc is a unit of fire-and-forget work
type TaskFunc func(ctx context.Context) error

type task struct {
	name string
	run  TaskFunc
}

// Enqueuer accepts fire-and-forget tasks
type Enqueuer interface {
	Enqueue(name string, fn TaskFunc) bool
}

// Dispatcher is a bounded queue drained by a fixed set of workers
type Dispatcher struct {
	cfg    Config
	logger zerolog.Logger
	queue  chan task

	mu      sync.RWMutex
	closed  bool
	started bool

	group  errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a dispatcher. Call Start to begin processing.
func New(cfg Config, logger zerolog.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:    cfg,
		logger: logger.With().Str("component", "notifier").Logger(),
		queue:  make(chan task, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the workers
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.cfg.Workers; i++ {
		d.group.Go(func() error {
			for t := range d.queue {
				d.process(t)
			}
			return nil
		})
	}
	d.logger.Info().Int("workers", d.cfg.Workers).Int("queueSize", d.cfg.QueueSize).Msg("Dispatcher started")
}

// Enqueue schedules fn without blocking. It returns false when the queue is full or
// the dispatcher is stopped; the task is then dropped.
func (d *Dispatcher) Enqueue(name string, fn TaskFunc) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn().Str("task", name).Msg("Dispatcher stopped, task dropped")
		return false
	}
	select {
	case d.queue <- task{name: name, run: fn}:
		return true
	default:
		d.logger.Warn().Str("task", name).Msg("Dispatcher queue full, task dropped")
		return false
	}
}

// Stop refuses new tasks and waits for queued ones to finish. When ctx expires first,
// in-flight tasks are canceled and ctx.Err() is returned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = d.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) process(t task) {
	backoff := d.cfg.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := d.attempt(t)
		if err == nil {
			return
		}
		if attempt >= d.cfg.MaxAttempts {
			d.logger.Error().Err(err).Str("task", t.name).Int("attempts", attempt).Msg("Task failed, giving up")
			return
		}
		d.logger.Warn().Err(err).Str("task", t.name).Int("attempt", attempt).Dur("backoff", backoff).Msg("Task failed, retrying")

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-d.ctx.Done():
			timer.Stop()
			d.logger.Warn().Str("task", t.name).Msg("Dispatcher canceled, task abandoned")
			return
		}
		backoff *= 2
		if backoff > d.cfg.MaxBackoff {
			backoff = d.cfg.MaxBackoff
		}
	}
}

func (d *Dispatcher) attempt(t task) (err error) {
	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.TaskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.run(ctx)
}
