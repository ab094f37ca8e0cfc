package queue_test

import (
	"context"
	"testing"
	"time"

	"margsync/internal/queue"
	"margsync/internal/testsupport"
)

func TestEnqueueReportRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	report, err := store.EnqueueReport(ctx, queue.NewReport{
		CategoryID:    "pothole-1",
		Lat:           12.97,
		Lng:           77.59,
		ReporterEmail: "citizen@example.com",
		Photo:         []byte("jpeg-bytes"),
		Description:   "pothole near the bus stop",
	})
	if err != nil {
		t.Fatalf("EnqueueReport failed: %v", err)
	}
	if report.ID == 0 {
		t.Fatal("expected report ID to be assigned")
	}
	if report.IdempotencyKey == "" {
		t.Fatal("expected idempotency key to be assigned")
	}

	reports, err := store.ListReports(ctx)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	got := reports[0]
	if got.CategoryID != "pothole-1" || got.Lat != 12.97 || got.Lng != 77.59 {
		t.Fatalf("unexpected report fields: %#v", got)
	}
	if string(got.Photo) != "jpeg-bytes" {
		t.Fatalf("unexpected photo payload: %q", got.Photo)
	}
}

func TestEnqueueReportRequiresCategoryAndPhoto(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.EnqueueReport(ctx, queue.NewReport{Photo: []byte("x")}); err == nil {
		t.Fatal("expected error when category missing")
	}
	if _, err := store.EnqueueReport(ctx, queue.NewReport{CategoryID: "leak-2"}); err == nil {
		t.Fatal("expected error when photo missing")
	}
}

func TestRemoveReportIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	report := testsupport.NewReport(t, store, "pothole-1")

	removed, err := store.RemoveReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("RemoveReport failed: %v", err)
	}
	if !removed {
		t.Fatal("expected first remove to delete the record")
	}

	removed, err = store.RemoveReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("second RemoveReport failed: %v", err)
	}
	if removed {
		t.Fatal("expected second remove to be a no-op")
	}

	reports, err := store.ListReports(ctx)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 0 {
		t.Fatalf("expected empty queue, got %d reports", len(reports))
	}
}

func TestResolutionLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	resolution, err := store.EnqueueResolution(ctx, "abc123", []byte("jpeg-bytes"), queue.TaskSnapshot{
		CategoryName: "Potholes",
		Priority:     "high",
	})
	if err != nil {
		t.Fatalf("EnqueueResolution failed: %v", err)
	}
	if resolution.Status != queue.StatusPending {
		t.Fatalf("expected status pending, got %s", resolution.Status)
	}
	if resolution.CreatedAt.IsZero() {
		t.Fatal("expected creation timestamp")
	}

	pending, err := store.PendingResolutions(ctx)
	if err != nil {
		t.Fatalf("PendingResolutions failed: %v", err)
	}
	if len(pending) != 1 || pending[0].IssueID != "abc123" {
		t.Fatalf("unexpected pending set: %#v", pending)
	}

	has, err := store.HasPendingResolution(ctx, "abc123")
	if err != nil {
		t.Fatalf("HasPendingResolution failed: %v", err)
	}
	if !has {
		t.Fatal("expected pending resolution for abc123")
	}

	if err := store.MarkResolutionSynced(ctx, resolution.ID); err != nil {
		t.Fatalf("MarkResolutionSynced failed: %v", err)
	}
	synced, err := store.ListResolutions(ctx, queue.StatusSynced)
	if err != nil {
		t.Fatalf("ListResolutions failed: %v", err)
	}
	if len(synced) != 1 {
		t.Fatalf("expected 1 synced resolution, got %d", len(synced))
	}

	pending, err = store.PendingResolutions(ctx)
	if err != nil {
		t.Fatalf("PendingResolutions failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending resolutions, got %d", len(pending))
	}

	removed, err := store.RemoveResolution(ctx, resolution.ID)
	if err != nil {
		t.Fatalf("RemoveResolution failed: %v", err)
	}
	if !removed {
		t.Fatal("expected remove to delete the record")
	}
}

func TestMarkResolutionSyncedAbsentIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.MarkResolutionSynced(context.Background(), 9999); err != nil {
		t.Fatalf("expected no-op for absent record, got %v", err)
	}
}

func TestClaimResolutionLease(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	resolution := testsupport.NewResolution(t, store, "abc123")

	claimed, err := store.ClaimResolution(ctx, resolution.ID, time.Minute)
	if err != nil {
		t.Fatalf("ClaimResolution failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to succeed")
	}

	claimed, err = store.ClaimResolution(ctx, resolution.ID, time.Minute)
	if err != nil {
		t.Fatalf("second ClaimResolution failed: %v", err)
	}
	if claimed {
		t.Fatal("expected second claim to be refused while the lease is live")
	}

	if err := store.ReleaseResolution(ctx, resolution.ID); err != nil {
		t.Fatalf("ReleaseResolution failed: %v", err)
	}
	claimed, err = store.ClaimResolution(ctx, resolution.ID, time.Minute)
	if err != nil {
		t.Fatalf("ClaimResolution after release failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected claim to succeed after release")
	}
}

func TestClaimLeaseExpires(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	report := testsupport.NewReport(t, store, "pothole-1")

	claimed, err := store.ClaimReport(ctx, report.ID, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("ClaimReport failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to succeed")
	}

	time.Sleep(25 * time.Millisecond)

	claimed, err = store.ClaimReport(ctx, report.ID, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("ClaimReport after expiry failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected claim to succeed once the prior lease expired")
	}
}

func TestHealthCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewReport(t, store, "pothole-1")
	testsupport.NewReport(t, store, "leak-2")
	resolution := testsupport.NewResolution(t, store, "abc123")
	testsupport.NewResolution(t, store, "def456")
	if err := store.MarkResolutionSynced(ctx, resolution.ID); err != nil {
		t.Fatalf("MarkResolutionSynced failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Reports != 2 || health.PendingResolutions != 1 || health.SyncedResolutions != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
	if health.Total != 4 {
		t.Fatalf("expected total 4, got %d", health.Total)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.NewReport(t, store, "pothole-1")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("expected readable database: %#v", health)
	}
	if len(health.MissingTables) != 0 {
		t.Fatalf("unexpected missing tables: %v", health.MissingTables)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.TotalRecords != 1 {
		t.Fatalf("expected 1 record, got %d", health.TotalRecords)
	}
}

func TestClearRemovesBothCollections(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewReport(t, store, "pothole-1")
	testsupport.NewResolution(t, store, "abc123")

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 records removed, got %d", removed)
	}
}
