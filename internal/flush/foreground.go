package flush

import (
	"context"
	"log/slog"
	"sync/atomic"

	"margsync/internal/logging"
)

// Foreground opportunistically flushes both queues from an interactive
// process. Triggers arrive from its owner (start, a connectivity transition,
// a manual refresh, or a bus event announcing a remote change); overlapping
// triggers are absorbed by an in-memory guard rather than queued.
type Foreground struct {
	flusher *Flusher
	online  func() bool
	logger  *slog.Logger

	syncing atomic.Bool
	pending atomic.Int64
}

// NewForeground builds a foreground coordinator. online reports the current
// connectivity belief; when it returns false a trigger is a silent no-op.
func NewForeground(flusher *Flusher, online func() bool, logger *slog.Logger) *Foreground {
	if logger == nil {
		logger = logging.NewNop()
	}
	if online == nil {
		online = func() bool { return true }
	}
	return &Foreground{
		flusher: flusher,
		online:  online,
		logger:  logger,
	}
}

// Sync runs one flush pass over both queues. The boolean reports whether a
// pass actually ran: false means the trigger was absorbed (a pass was already
// in flight) or the coordinator believes it is offline.
func (c *Foreground) Sync(ctx context.Context) (Summary, bool, error) {
	if !c.online() {
		return Summary{}, false, nil
	}
	if !c.syncing.CompareAndSwap(false, true) {
		c.logger.Debug("flush already in progress, trigger absorbed")
		return Summary{}, false, nil
	}
	defer c.syncing.Store(false)

	var summary Summary

	reportSummary, err := c.flusher.FlushReports(ctx)
	summary.add(reportSummary)
	if err != nil {
		return summary, true, err
	}

	resolutionSummary, err := c.flusher.FlushResolutions(ctx)
	summary.add(resolutionSummary)
	if err != nil {
		return summary, true, err
	}

	c.pending.Store(int64(summary.Pending))
	return summary, true, nil
}

// RefreshPendingCount recomputes the badge count without attempting delivery.
func (c *Foreground) RefreshPendingCount(ctx context.Context) (int, error) {
	health, err := c.flusher.PendingCounts(ctx)
	if err != nil {
		return 0, err
	}
	count := health.Reports + health.PendingResolutions
	c.pending.Store(int64(count))
	return count, nil
}

// PendingCount returns the badge count observed by the last pass or refresh.
func (c *Foreground) PendingCount() int {
	return int(c.pending.Load())
}
