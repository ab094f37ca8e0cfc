package notify_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"margsync/internal/config"
	"margsync/internal/notify"
)

func TestNewPusherReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	pusher := notify.NewPusher(&cfg)
	if err := pusher.PushResolutionSynced(context.Background(), "abc123"); err != nil {
		t.Fatalf("expected noop pusher to return nil, got %v", err)
	}
}

func TestNtfyPusherSendsHeadersAndBody(t *testing.T) {
	var gotTitle, gotTags, gotPriority, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		gotPriority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	pusher := notify.NewPusher(&cfg)

	if err := pusher.PushResolutionFailed(context.Background(), "abc123", "no longer exists on the server"); err != nil {
		t.Fatalf("PushResolutionFailed failed: %v", err)
	}
	if gotTitle != "MARG - Resolution Rejected" {
		t.Fatalf("unexpected title %q", gotTitle)
	}
	if gotTags != "margsync,resolution,failed" {
		t.Fatalf("unexpected tags %q", gotTags)
	}
	if gotPriority != "high" {
		t.Fatalf("unexpected priority %q", gotPriority)
	}
	if gotBody != "Resolution proof for issue abc123 was dropped: no longer exists on the server" {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestNtfyPusherSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	pusher := notify.NewPusher(&cfg)

	if err := pusher.TestPush(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx ntfy response")
	}
}
