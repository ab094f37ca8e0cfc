package testsupport

import (
	"context"
	"testing"

	"margsync/internal/config"
	"margsync/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewReport enqueues a citizen report for tests using the provided store.
func NewReport(t testing.TB, store *queue.Store, categoryID string) *queue.Report {
	t.Helper()

	report, err := store.EnqueueReport(context.Background(), queue.NewReport{
		CategoryID:    categoryID,
		Lat:           12.97,
		Lng:           77.59,
		ReporterEmail: "citizen@example.com",
		Photo:         []byte("jpeg-bytes"),
		Description:   "pothole near the bus stop",
	})
	if err != nil {
		t.Fatalf("store.EnqueueReport: %v", err)
	}
	return report
}

// NewResolution enqueues a worker resolution for tests.
func NewResolution(t testing.TB, store *queue.Store, issueID string) *queue.Resolution {
	t.Helper()

	resolution, err := store.EnqueueResolution(context.Background(), issueID, []byte("jpeg-bytes"), queue.TaskSnapshot{
		CategoryName: "Potholes",
		Priority:     "high",
	})
	if err != nil {
		t.Fatalf("store.EnqueueResolution: %v", err)
	}
	return resolution
}
