package optimistic

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Effect is a detached secondary action triggered after a mutation's primary
// remote call succeeded: a cross-user notification or an audit-trail record.
// Both are best-effort.
type Effect struct {
	// Kind labels the effect class in log output ("notify", "audit").
	Kind string
	// Entity and ID name the record the effect concerns.
	Entity string
	ID     string
	// Run performs the effect. Errors and panics are caught and logged by
	// the dispatcher, never re-thrown and never rolled back.
	Run func(ctx context.Context) error
}

// Dispatcher runs effects on their own goroutines with their own error
// boundary, so a failed notification cannot change the outcome of the
// mutation that triggered it. The guarantee is structural: bindings hand the
// effect over and the primary call path never sees it again.
type Dispatcher struct {
	log     zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithEffectTimeout bounds how long one effect may run. Defaults to 30s.
func WithEffectTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) { dp.timeout = d }
}

func NewDispatcher(log zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{log: log, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch fires the effect and returns immediately. Effects dispatched after
// Close are dropped with a log line.
func (d *Dispatcher) Dispatch(e Effect) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn().Str("kind", e.Kind).Str("entity", e.Entity).Str("id", e.ID).
			Msg("dropping effect dispatched after close")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error().Str("kind", e.Kind).Str("entity", e.Entity).Str("id", e.ID).
					Interface("panic", r).Msg("side effect panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := e.Run(ctx); err != nil {
			d.log.Warn().Str("kind", e.Kind).Str("entity", e.Entity).Str("id", e.ID).
				Err(err).Msg("side effect failed")
		}
	}()
}

// Close drains in-flight effects and rejects new ones. Safe to call more
// than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
