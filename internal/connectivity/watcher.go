// Package connectivity tracks whether the MARG backend is reachable. It is
// the daemon's stand-in for browser online/offline events: a probe loop that
// emits transitions when reachability changes.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"margsync/internal/logging"
)

const probeTimeout = 5 * time.Second

// Prober answers whether the backend is reachable right now.
type Prober interface {
	Ping(ctx context.Context) error
}

// Transition is one observed reachability change.
type Transition struct {
	Online bool
	At     time.Time
}

// Watcher polls the backend and publishes reachability transitions. While
// offline, probe spacing follows exponential backoff capped at the configured
// interval so a flapping link is not hammered.
type Watcher struct {
	prober   Prober
	logger   *slog.Logger
	interval time.Duration

	online      atomic.Bool
	transitions chan Transition

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewWatcher builds a watcher probing at the given steady-state interval.
func NewWatcher(prober Prober, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Watcher{
		prober:      prober,
		logger:      logger,
		interval:    interval,
		transitions: make(chan Transition, 4),
		done:        make(chan struct{}),
	}
}

// Start launches the probe loop. The watcher begins in the offline belief, so
// the first successful probe emits an online transition.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		w.cancel = cancel
		go w.run(runCtx)
	})
}

// Stop terminates the probe loop and releases the transitions channel.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		<-w.done
	})
}

// Online reports the current reachability belief.
func (w *Watcher) Online() bool {
	return w.online.Load()
}

// Transitions returns the channel of reachability changes. Slow consumers
// lose transitions rather than blocking the probe loop.
func (w *Watcher) Transitions() <-chan Transition {
	return w.transitions
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 500 * time.Millisecond
	retry.MaxInterval = w.interval

	for {
		reachable := w.probe(ctx)
		if reachable != w.online.Load() {
			w.online.Store(reachable)
			w.logger.Info("connectivity changed", logging.Bool("online", reachable))
			select {
			case w.transitions <- Transition{Online: reachable, At: time.Now()}:
			default:
			}
		}

		var wait time.Duration
		if reachable {
			retry.Reset()
			wait = w.interval
		} else {
			wait = retry.NextBackOff()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (w *Watcher) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := w.prober.Ping(probeCtx); err != nil {
		w.logger.Debug("probe failed", logging.Error(err))
		return false
	}
	return true
}
