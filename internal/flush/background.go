package flush

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"margsync/internal/connectivity"
	"margsync/internal/logging"
	"margsync/internal/notify"
)

// Background runs the flush algorithm detached from any interactive process,
// woken by connectivity transitions, a periodic interval, and explicit
// sync-now requests.
type Background struct {
	flusher *Flusher
	watcher *connectivity.Watcher
	pusher  notify.Pusher
	logger  *slog.Logger

	interval time.Duration
	syncNow  chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	syncing  atomic.Bool
	lastErr  atomic.Value
	lastPass atomic.Value
}

type passError struct {
	err error
}

// NewBackground builds the background coordinator.
func NewBackground(flusher *Flusher, watcher *connectivity.Watcher, pusher notify.Pusher, interval time.Duration, logger *slog.Logger) *Background {
	if logger == nil {
		logger = logging.NewNop()
	}
	if pusher == nil {
		pusher = notify.NewNopPusher()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Background{
		flusher:  flusher,
		watcher:  watcher,
		pusher:   pusher,
		logger:   logger,
		interval: interval,
		syncNow:  make(chan struct{}, 1),
	}
}

// Start begins background processing.
func (b *Background) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return errors.New("background coordinator already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.running = true

	b.wg.Add(1)
	go b.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (b *Background) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	cancel := b.cancel
	b.running = false
	b.cancel = nil
	b.mu.Unlock()

	cancel()
	b.wg.Wait()
}

// TriggerSync requests a flush pass outside the normal schedule. Requests
// arriving while one is already queued are absorbed.
func (b *Background) TriggerSync() {
	select {
	case b.syncNow <- struct{}{}:
	default:
	}
}

// LastError returns the most recent pass failure, if any.
func (b *Background) LastError() error {
	if wrapped, ok := b.lastErr.Load().(passError); ok {
		return wrapped.err
	}
	return nil
}

// LastPass returns when the most recent pass completed.
func (b *Background) LastPass() time.Time {
	if at, ok := b.lastPass.Load().(time.Time); ok {
		return at
	}
	return time.Time{}
}

func (b *Background) run(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case transition := <-b.watcher.Transitions():
			if transition.Online {
				b.flush(ctx)
			}
		case <-ticker.C:
			if b.watcher.Online() {
				b.flush(ctx)
			}
		case <-b.syncNow:
			if b.watcher.Online() {
				b.flush(ctx)
			} else {
				b.logger.Info("sync requested while offline, skipping")
			}
		}
	}
}

func (b *Background) flush(ctx context.Context) {
	if !b.syncing.CompareAndSwap(false, true) {
		return
	}
	defer b.syncing.Store(false)

	var summary Summary

	reportSummary, err := b.flusher.FlushReports(ctx)
	summary.add(reportSummary)
	if err == nil {
		var resolutionSummary Summary
		resolutionSummary, err = b.flusher.FlushResolutions(ctx)
		summary.add(resolutionSummary)
	}

	b.lastPass.Store(time.Now())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		b.lastErr.Store(passError{err: err})
		b.logger.Error("flush pass failed", logging.Error(err))
		return
	}
	b.lastErr.Store(passError{})

	if summary.Delivered > 0 || summary.Rejected > 0 {
		b.logger.Info("flush pass complete",
			logging.Int("delivered", summary.Delivered),
			logging.Int("rejected", summary.Rejected),
			logging.Int("left", summary.Left))
		if pushErr := b.pusher.PushFlushCompleted(ctx, summary.Delivered, summary.Rejected); pushErr != nil {
			b.logger.Warn("push notification failed", logging.Error(pushErr))
		}
	}
}
