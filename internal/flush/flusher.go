// Package flush implements the delivery loop shared by both sync
// coordinators: read pending records, submit each one sequentially, and apply
// the per-record outcome rules (delivered, permanently rejected, or left
// queued for the next attempt). The foreground and background coordinators
// differ only in how they are triggered and where their credential comes
// from.
package flush

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"margsync/internal/credentials"
	"margsync/internal/logging"
	"margsync/internal/marg"
	"margsync/internal/notify"
	"margsync/internal/queue"
)

// Submitter is the delivery capability. Satisfied by *marg.Client.
type Submitter interface {
	SubmitReport(ctx context.Context, report *queue.Report, token string) error
	SubmitResolution(ctx context.Context, resolution *queue.Resolution, token string) error
}

// Summary describes one flush pass.
type Summary struct {
	Delivered int
	Rejected  int
	Left      int
	Pending   int
}

func (s *Summary) add(other Summary) {
	s.Delivered += other.Delivered
	s.Rejected += other.Rejected
	s.Left += other.Left
	s.Pending += other.Pending
}

// Flusher runs one flush pass over a queue collection. Records are processed
// strictly sequentially so a flaky connection never carries more than one
// in-flight upload per coordinator.
type Flusher struct {
	store    *queue.Store
	client   Submitter
	creds    credentials.Provider
	bridge   *notify.Bridge
	logger   *slog.Logger
	claimTTL time.Duration
}

// NewFlusher wires the flush algorithm to its capabilities.
func NewFlusher(store *queue.Store, client Submitter, creds credentials.Provider, bridge *notify.Bridge, logger *slog.Logger, claimTTL time.Duration) *Flusher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if claimTTL <= 0 {
		claimTTL = 2 * time.Minute
	}
	return &Flusher{
		store:    store,
		client:   client,
		creds:    creds,
		bridge:   bridge,
		logger:   logger,
		claimTTL: claimTTL,
	}
}

// FlushReports attempts delivery of every queued citizen report. Report
// submission is unauthenticated, so no credential is fetched.
func (f *Flusher) FlushReports(ctx context.Context) (Summary, error) {
	reports, err := f.store.ListReports(ctx)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, report := range reports {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		claimed, err := f.store.ClaimReport(ctx, report.ID, f.claimTTL)
		if err != nil {
			f.logger.Warn("claim report failed", logging.ReportID(report.ID), logging.Error(err))
			summary.Left++
			continue
		}
		if !claimed {
			// Another coordinator holds the delivery lease.
			continue
		}

		subjectID := strconv.FormatInt(report.ID, 10)
		err = f.client.SubmitReport(ctx, report, "")
		switch {
		case err == nil:
			f.finishReport(ctx, report.ID)
			summary.Delivered++
			f.publish(notify.Event{Kind: notify.KindSynced, Subject: notify.SubjectReport, SubjectID: subjectID})
		case marg.IsPermanent(err):
			f.logger.Warn("report rejected by server", logging.ReportID(report.ID), logging.Error(err))
			f.finishReport(ctx, report.ID)
			summary.Rejected++
			f.publish(notify.Event{Kind: notify.KindFailed, Subject: notify.SubjectReport, SubjectID: subjectID, Reason: marg.Reason(err)})
		default:
			f.logger.Debug("report delivery deferred", logging.ReportID(report.ID), logging.Error(err))
			f.releaseReport(ctx, report.ID)
			summary.Left++
		}
	}

	if remaining, err := f.store.ListReports(ctx); err == nil {
		summary.Pending = len(remaining)
	}
	return summary, nil
}

// FlushResolutions attempts delivery of every pending worker resolution. The
// credential is fetched once per pass; when none is available the pass runs
// unauthenticated and authentication rejections are deferred instead of
// dropped, since only a missing credential is to blame.
func (f *Flusher) FlushResolutions(ctx context.Context) (Summary, error) {
	resolutions, err := f.store.PendingResolutions(ctx)
	if err != nil {
		return Summary{}, err
	}
	if len(resolutions) == 0 {
		return Summary{}, nil
	}

	token, err := f.creds.Token(ctx)
	if err != nil && !errors.Is(err, credentials.ErrCredentialUnavailable) {
		return Summary{}, err
	}
	degraded := token == ""
	if degraded {
		f.logger.Info("flushing resolutions without a credential",
			logging.Int("pending", len(resolutions)))
	}

	var summary Summary
	for _, resolution := range resolutions {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		claimed, err := f.store.ClaimResolution(ctx, resolution.ID, f.claimTTL)
		if err != nil {
			f.logger.Warn("claim resolution failed", logging.ResolutionID(resolution.ID), logging.Error(err))
			summary.Left++
			continue
		}
		if !claimed {
			continue
		}

		err = f.client.SubmitResolution(ctx, resolution, token)
		switch {
		case err == nil:
			f.finishResolution(ctx, resolution.ID)
			summary.Delivered++
			f.publish(notify.Event{Kind: notify.KindSynced, Subject: notify.SubjectResolution, SubjectID: resolution.IssueID})
		case degraded && marg.IsAuthFailure(err):
			f.logger.Debug("resolution deferred until a credential is available",
				logging.ResolutionID(resolution.ID))
			f.releaseResolution(ctx, resolution.ID)
			summary.Left++
		case marg.IsPermanent(err):
			f.logger.Warn("resolution rejected by server",
				logging.IssueID(resolution.IssueID),
				logging.Error(err))
			f.removeResolution(ctx, resolution.ID)
			summary.Rejected++
			f.publish(notify.Event{Kind: notify.KindFailed, Subject: notify.SubjectResolution, SubjectID: resolution.IssueID, Reason: marg.Reason(err)})
		default:
			f.logger.Debug("resolution delivery deferred", logging.ResolutionID(resolution.ID), logging.Error(err))
			f.releaseResolution(ctx, resolution.ID)
			summary.Left++
		}
	}

	if remaining, err := f.store.PendingResolutions(ctx); err == nil {
		summary.Pending = len(remaining)
	}
	return summary, nil
}

// PendingCounts recomputes the badge counts without attempting delivery.
func (f *Flusher) PendingCounts(ctx context.Context) (queue.HealthSummary, error) {
	return f.store.Health(ctx)
}

func (f *Flusher) publish(evt notify.Event) {
	if f.bridge != nil {
		f.bridge.Publish(evt)
	}
}

func (f *Flusher) finishReport(ctx context.Context, id int64) {
	if _, err := f.store.RemoveReport(ctx, id); err != nil {
		f.logger.Warn("remove delivered report failed", logging.ReportID(id), logging.Error(err))
	}
}

func (f *Flusher) releaseReport(ctx context.Context, id int64) {
	if err := f.store.ReleaseReport(ctx, id); err != nil {
		f.logger.Warn("release report claim failed", logging.ReportID(id), logging.Error(err))
	}
}

func (f *Flusher) finishResolution(ctx context.Context, id int64) {
	// The synced status is a transient marker; the record is removed right
	// after the transition.
	if err := f.store.MarkResolutionSynced(ctx, id); err != nil {
		f.logger.Warn("mark resolution synced failed", logging.ResolutionID(id), logging.Error(err))
	}
	f.removeResolution(ctx, id)
}

func (f *Flusher) removeResolution(ctx context.Context, id int64) {
	if _, err := f.store.RemoveResolution(ctx, id); err != nil {
		f.logger.Warn("remove resolution failed", logging.ResolutionID(id), logging.Error(err))
	}
}

func (f *Flusher) releaseResolution(ctx context.Context, id int64) {
	if err := f.store.ReleaseResolution(ctx, id); err != nil {
		f.logger.Warn("release resolution claim failed", logging.ResolutionID(id), logging.Error(err))
	}
}
