// Package daemon coordinates the background sync services and enforces
// single-instance execution.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"margsync/internal/bus"
	"margsync/internal/config"
	"margsync/internal/connectivity"
	"margsync/internal/credentials"
	"margsync/internal/flush"
	"margsync/internal/logging"
	"margsync/internal/marg"
	"margsync/internal/notify"
	"margsync/internal/queue"
)

// Daemon owns the long-running sync machinery: the connectivity watcher, the
// client message bus, and the background flush coordinator.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	client *marg.Client
	pusher notify.Pusher

	bridge     *notify.Bridge
	busServer  *bus.Server
	watcher    *connectivity.Watcher
	background *flush.Background
	foreground *flush.Foreground

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	forward chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	Online          bool
	AttachedClients int
	Pending         queue.HealthSummary
	LastSync        time.Time
	LastSyncError   string
	QueueDBPath     string
	LockFilePath    string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		client:   marg.NewClient(cfg),
		pusher:   notify.NewPusher(cfg),
		bridge:   notify.NewBridge(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the sync services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another margsync daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)

	busServer, err := bus.NewServer(runCtx, d.cfg.BusSocketPath(), d.logger)
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start message bus: %w", err)
	}
	go busServer.Serve()

	probeInterval := time.Duration(d.cfg.Sync.ProbeIntervalSeconds) * time.Second
	watcher := connectivity.NewWatcher(d.client, probeInterval, d.logger)

	creds := credentials.NewBroadcastProvider(busServer,
		time.Duration(d.cfg.Sync.CredentialTimeoutMillis)*time.Millisecond)
	claimTTL := time.Duration(d.cfg.Sync.ClaimTTLSeconds) * time.Second
	flusher := flush.NewFlusher(d.store, d.client, creds, d.bridge, d.logger, claimTTL)

	pollInterval := time.Duration(d.cfg.Sync.PollIntervalSeconds) * time.Second
	background := flush.NewBackground(flusher, watcher, d.pusher, pollInterval, d.logger)
	foreground := flush.NewForeground(flusher, watcher.Online, d.logger)

	d.cancel = cancel
	d.busServer = busServer
	d.watcher = watcher
	d.background = background
	d.foreground = foreground

	watcher.Start(runCtx)
	if err := background.Start(runCtx); err != nil {
		d.teardown()
		return fmt.Errorf("start background coordinator: %w", err)
	}
	d.forward = make(chan struct{})
	go d.forwardEvents(runCtx)

	d.running.Store(true)
	d.logger.Info("margsync daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bus", d.cfg.BusSocketPath()))
	return nil
}

// forwardEvents relays per-record outcomes from the coordinators to attached
// clients and to the push channel.
func (d *Daemon) forwardEvents(ctx context.Context) {
	defer close(d.forward)

	sub := d.bridge.Subscribe()
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub.Events():
			d.busServer.Broadcast(evt)
			if err := d.push(ctx, evt); err != nil {
				d.logger.Warn("push notification failed",
					logging.String("subject_id", evt.SubjectID),
					logging.Error(err))
			}
		}
	}
}

func (d *Daemon) push(ctx context.Context, evt notify.Event) error {
	switch {
	case evt.Subject == notify.SubjectReport && evt.Kind == notify.KindSynced:
		return d.pusher.PushReportSynced(ctx, evt.SubjectID)
	case evt.Subject == notify.SubjectReport && evt.Kind == notify.KindFailed:
		return d.pusher.PushReportFailed(ctx, evt.SubjectID, evt.Reason)
	case evt.Subject == notify.SubjectResolution && evt.Kind == notify.KindSynced:
		return d.pusher.PushResolutionSynced(ctx, evt.SubjectID)
	case evt.Subject == notify.SubjectResolution && evt.Kind == notify.KindFailed:
		return d.pusher.PushResolutionFailed(ctx, evt.SubjectID, evt.Reason)
	}
	return nil
}

// Stop shuts down the sync services and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.teardown()
	d.running.Store(false)
	d.logger.Info("margsync daemon stopped")
}

func (d *Daemon) teardown() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.background != nil {
		d.background.Stop()
		d.background = nil
	}
	if d.watcher != nil {
		d.watcher.Stop()
		d.watcher = nil
	}
	d.foreground = nil
	if d.forward != nil {
		<-d.forward
		d.forward = nil
	}
	if d.busServer != nil {
		d.busServer.Close()
		d.busServer = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// TriggerSync requests a flush pass outside the normal schedule.
func (d *Daemon) TriggerSync() error {
	if !d.running.Load() || d.background == nil {
		return errors.New("daemon is not running")
	}
	d.background.TriggerSync()
	return nil
}

// SyncNow runs one flush pass synchronously and reports what it delivered.
// The boolean mirrors flush.Foreground.Sync: false means the trigger was
// absorbed or the daemon believes it is offline.
func (d *Daemon) SyncNow(ctx context.Context) (flush.Summary, bool, error) {
	foreground := d.foreground
	if !d.running.Load() || foreground == nil {
		return flush.Summary{}, false, errors.New("daemon is not running")
	}
	return foreground.Sync(ctx)
}

// AddReport queues a citizen report for delivery and nudges the coordinator
// when the backend is believed reachable.
func (d *Daemon) AddReport(ctx context.Context, report queue.NewReport) (*queue.Report, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	queued, err := d.store.EnqueueReport(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("enqueue report: %w", err)
	}
	d.logger.Info("report queued",
		logging.ReportID(queued.ID),
		logging.String("category_id", queued.CategoryID))
	d.nudge()
	return queued, nil
}

// AddResolution queues a worker resolution for delivery and nudges the
// coordinator when the backend is believed reachable. The boolean reports
// whether the issue already had a pending resolution queued before this one.
func (d *Daemon) AddResolution(ctx context.Context, issueID string, photo []byte, snapshot queue.TaskSnapshot) (*queue.Resolution, bool, error) {
	if d.store == nil {
		return nil, false, errors.New("queue store unavailable")
	}
	alreadyPending, err := d.store.HasPendingResolution(ctx, issueID)
	if err != nil {
		return nil, false, fmt.Errorf("check pending resolutions: %w", err)
	}
	queued, err := d.store.EnqueueResolution(ctx, issueID, photo, snapshot)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue resolution: %w", err)
	}
	d.logger.Info("resolution queued",
		logging.ResolutionID(queued.ID),
		logging.IssueID(queued.IssueID),
		logging.Bool("already_pending", alreadyPending))
	d.nudge()
	return queued, alreadyPending, nil
}

func (d *Daemon) nudge() {
	if d.running.Load() && d.background != nil {
		d.background.TriggerSync()
	}
}

// ListReports returns all queued citizen reports.
func (d *Daemon) ListReports(ctx context.Context) ([]*queue.Report, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.ListReports(ctx)
}

// ListResolutions returns worker resolutions filtered by optional statuses.
func (d *Daemon) ListResolutions(ctx context.Context, statuses []queue.ResolutionStatus) ([]*queue.Resolution, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.ListResolutions(ctx, statuses...)
}

// RemoveReport deletes one queued report without submitting it.
func (d *Daemon) RemoveReport(ctx context.Context, id int64) (bool, error) {
	if d.store == nil {
		return false, errors.New("queue store unavailable")
	}
	return d.store.RemoveReport(ctx, id)
}

// RemoveResolution deletes one queued resolution without submitting it.
func (d *Daemon) RemoveResolution(ctx context.Context, id int64) (bool, error) {
	if d.store == nil {
		return false, errors.New("queue store unavailable")
	}
	return d.store.RemoveResolution(ctx, id)
}

// ClearQueues removes every queued record.
func (d *Daemon) ClearQueues(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.Clear(ctx)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	if d.store == nil {
		return queue.HealthSummary{}, errors.New("queue store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	if d.store == nil {
		return queue.DatabaseHealth{}, errors.New("queue store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test push using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.pusher.TestPush(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lockPath,
	}
	if d.watcher != nil {
		status.Online = d.watcher.Online()
	}
	if d.busServer != nil {
		status.AttachedClients = d.busServer.ClientCount()
	}
	if d.background != nil {
		status.LastSync = d.background.LastPass()
		if err := d.background.LastError(); err != nil {
			status.LastSyncError = err.Error()
		}
	}
	if d.store != nil {
		if health, err := d.store.Health(ctx); err == nil {
			status.Pending = health
		}
	}
	return status
}
