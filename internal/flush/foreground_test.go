package flush

import (
	"context"
	"sync"
	"testing"
	"time"

	"margsync/internal/credentials"
	"margsync/internal/testsupport"
)

func TestForegroundSyncSkipsWhileOffline(t *testing.T) {
	backend := newFakeBackend()
	flusher, store, _ := newTestFlusher(t, backend, nil)
	testsupport.NewReport(t, store, "pothole-1")

	fg := NewForeground(flusher, func() bool { return false }, nil)

	summary, ran, err := fg.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if ran {
		t.Fatal("offline trigger must be a no-op")
	}
	if summary != (Summary{}) || backend.callCount() != 0 {
		t.Fatalf("offline trigger must not submit, summary=%+v calls=%d", summary, backend.callCount())
	}
}

func TestForegroundSyncAbsorbsOverlappingTriggers(t *testing.T) {
	backend := newFakeBackend()
	backend.hold = make(chan struct{})
	flusher, store, _ := newTestFlusher(t, backend, credentials.Static(""))
	testsupport.NewReport(t, store, "pothole-1")

	fg := NewForeground(flusher, nil, nil)

	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(started)
		if _, ran, err := fg.Sync(context.Background()); err != nil || !ran {
			t.Errorf("first trigger should run: ran=%v err=%v", ran, err)
		}
	}()

	<-started
	// Wait until the first pass is inside the backend call.
	for backend.inFlightCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	_, ran, err := fg.Sync(context.Background())
	if err != nil {
		t.Fatalf("second trigger failed: %v", err)
	}
	if ran {
		t.Fatal("overlapping trigger must be absorbed")
	}

	close(backend.hold)
	wg.Wait()

	if backend.callCount() != 1 {
		t.Fatalf("expected a single submission, got %d", backend.callCount())
	}
}

func TestForegroundPendingCountTracksQueue(t *testing.T) {
	backend := newFakeBackend()
	flusher, store, _ := newTestFlusher(t, backend, nil)
	fg := NewForeground(flusher, nil, nil)

	ctx := context.Background()
	testsupport.NewReport(t, store, "pothole-1")
	testsupport.NewResolution(t, store, "abc123")

	count, err := fg.RefreshPendingCount(ctx)
	if err != nil {
		t.Fatalf("RefreshPendingCount failed: %v", err)
	}
	if count != 2 || fg.PendingCount() != 2 {
		t.Fatalf("expected 2 pending, got refresh=%d cached=%d", count, fg.PendingCount())
	}

	if _, _, err := fg.Sync(ctx); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if fg.PendingCount() != 0 {
		t.Fatalf("expected empty badge after delivery, got %d", fg.PendingCount())
	}
}
