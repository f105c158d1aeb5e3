// Package outbox drains recorded status changes and runs their side effects.
// An event stays pending until its handler succeeds; after MaxAttempts
// failures it is parked as failed for an operator to inspect.
package outbox

import (
	"context"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"go.uber.org/zap"
)

type Repository interface {
	Due(ctx context.Context, now time.Time, limit int) ([]models.OutboxEvent, error)
	MarkDone(ctx context.Context, id identity.ID, attempts int, at time.Time) error
	MarkRetry(ctx context.Context, id identity.ID, attempts int, lastErr string, next time.Time) error
	MarkFailed(ctx context.Context, id identity.ID, attempts int, lastErr string, at time.Time) error
}

type Handler interface {
	Handle(ctx context.Context, e models.OutboxEvent) error
}

// Locker keeps a single drainer across instances.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type Options struct {
	PollInterval time.Duration
	MaxAttempts  int
	BatchSize    int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

func (o *Options) withDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 8
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Minute
	}
}

type Worker struct {
	repo    Repository
	handler Handler
	locker  Locker
	opts    Options
	wake    chan struct{}
	now     func() time.Time
	log     *zap.Logger
}

func NewWorker(repo Repository, handler Handler, opts Options, log *zap.Logger) *Worker {
	opts.withDefaults()
	return &Worker{
		repo:    repo,
		handler: handler,
		opts:    opts,
		wake:    make(chan struct{}, 1),
		now:     time.Now,
		log:     log,
	}
}

// SetLocker makes Drain skip rounds while another instance holds the lock.
func (w *Worker) SetLocker(l Locker) {
	w.locker = l
}

// Notify asks the worker to drain now instead of at the next poll. It never
// blocks.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run drains on every poll tick and nudge until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	w.log.Info("outbox worker started",
		zap.Duration("pollInterval", w.opts.PollInterval),
		zap.Int("maxAttempts", w.opts.MaxAttempts),
	)
	for {
		if _, err := w.Drain(ctx); err != nil && ctx.Err() == nil {
			w.log.Error("outbox drain failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.log.Info("outbox worker stopped")
			return nil
		case <-ticker.C:
		case <-w.wake:
		}
	}
}

// Drain handles one batch of due events and returns how many it processed.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	if w.locker != nil {
		ok, err := w.locker.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
		defer func() {
			if err := w.locker.Release(context.WithoutCancel(ctx)); err != nil {
				w.log.Warn("outbox lock release failed", zap.Error(err))
			}
		}()
	}

	events, err := w.repo.Due(ctx, w.now().UTC(), w.opts.BatchSize)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, e := range events {
		if ctx.Err() != nil {
			break
		}
		if err := w.process(ctx, e); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// process runs one event and records the outcome. The returned error is a
// bookkeeping failure; handler errors are recorded on the event.
func (w *Worker) process(ctx context.Context, e models.OutboxEvent) error {
	attempts := e.Attempts + 1
	handleErr := w.handler.Handle(ctx, e)
	now := w.now().UTC()

	if handleErr == nil {
		return w.repo.MarkDone(ctx, e.ID, attempts, now)
	}

	fields := []zap.Field{
		zap.String("eventId", e.ID.Hex()),
		zap.String("type", string(e.Type)),
		zap.String("appointmentKey", e.AppointmentKey),
		zap.Int("attempts", attempts),
		zap.Error(handleErr),
	}
	if attempts >= w.opts.MaxAttempts {
		w.log.Error("outbox event failed permanently", fields...)
		return w.repo.MarkFailed(ctx, e.ID, attempts, handleErr.Error(), now)
	}
	next := now.Add(w.backoff(attempts))
	w.log.Warn("outbox event failed, will retry", append(fields, zap.Time("nextAttemptAt", next))...)
	return w.repo.MarkRetry(ctx, e.ID, attempts, handleErr.Error(), next)
}

// backoff doubles RetryBackoff per failed attempt, capped at MaxBackoff.
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.opts.RetryBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= w.opts.MaxBackoff {
			return w.opts.MaxBackoff
		}
	}
	return d
}
