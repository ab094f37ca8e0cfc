package daemon_test

import (
	"context"
	"testing"
	"time"

	"margsync/internal/daemon"
	"margsync/internal/logging"
	"margsync/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		first.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	secondStore := testsupport.MustOpenStore(t, cfg)
	second, err := daemon.New(cfg, secondStore, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		second.Close()
	})

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
}

func TestDaemonQueueAdmin(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx := context.Background()
	report := testsupport.NewReport(t, store, "pothole-1")
	testsupport.NewResolution(t, store, "abc123")

	reports, err := d.ListReports(ctx)
	if err != nil || len(reports) != 1 {
		t.Fatalf("ListReports: reports=%d err=%v", len(reports), err)
	}

	health, err := d.QueueHealth(ctx)
	if err != nil {
		t.Fatalf("QueueHealth: %v", err)
	}
	if health.Reports != 1 || health.PendingResolutions != 1 {
		t.Fatalf("unexpected health %+v", health)
	}

	removed, err := d.RemoveReport(ctx, report.ID)
	if err != nil || !removed {
		t.Fatalf("RemoveReport: removed=%v err=%v", removed, err)
	}

	cleared, err := d.ClearQueues(ctx)
	if err != nil || cleared != 1 {
		t.Fatalf("ClearQueues: cleared=%d err=%v", cleared, err)
	}
}

func TestDaemonSyncNow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, _, err := d.SyncNow(ctx); err == nil {
		t.Fatal("expected SyncNow to fail before Start")
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The backend address is unreachable, so the pass is skipped as offline.
	summary, ran, err := d.SyncNow(ctx)
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if ran {
		t.Fatalf("expected offline skip, got summary %+v", summary)
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ok, detail, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if ok || detail == "" {
		t.Fatalf("expected configured-off response, got ok=%v detail=%q", ok, detail)
	}
}
