package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"margsync/internal/config"
)

const userAgent = "margsync/0.1.0"

// Pusher sends out-of-band push notifications for terminal sync outcomes.
type Pusher interface {
	PushReportSynced(ctx context.Context, localID string) error
	PushReportFailed(ctx context.Context, localID, reason string) error
	PushResolutionSynced(ctx context.Context, issueID string) error
	PushResolutionFailed(ctx context.Context, issueID, reason string) error
	PushFlushCompleted(ctx context.Context, delivered, failed int) error
	TestPush(ctx context.Context) error
}

// NewPusher builds a push service backed by ntfy when configured. When no
// ntfy topic is configured, a noop implementation is returned.
func NewPusher(cfg *config.Config) Pusher {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopPusher{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyPusher{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyPusher struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyPusher) PushReportSynced(ctx context.Context, localID string) error {
	data := payload{
		title:   "MARG - Report Submitted",
		message: fmt.Sprintf("Queued report %s reached the server", localID),
		tags:    []string{"margsync", "report", "synced"},
	}
	return n.send(ctx, data)
}

func (n *ntfyPusher) PushReportFailed(ctx context.Context, localID, reason string) error {
	data := payload{
		title:    "MARG - Report Rejected",
		message:  fmt.Sprintf("Queued report %s was dropped: %s", localID, reason),
		tags:     []string{"margsync", "report", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyPusher) PushResolutionSynced(ctx context.Context, issueID string) error {
	data := payload{
		title:   "MARG - Resolution Submitted",
		message: fmt.Sprintf("Resolution proof for issue %s reached the server", issueID),
		tags:    []string{"margsync", "resolution", "synced"},
	}
	return n.send(ctx, data)
}

func (n *ntfyPusher) PushResolutionFailed(ctx context.Context, issueID, reason string) error {
	data := payload{
		title:    "MARG - Resolution Rejected",
		message:  fmt.Sprintf("Resolution proof for issue %s was dropped: %s", issueID, reason),
		tags:     []string{"margsync", "resolution", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyPusher) PushFlushCompleted(ctx context.Context, delivered, failed int) error {
	var message string
	if failed == 0 {
		message = fmt.Sprintf("Flush complete: %d record(s) delivered", delivered)
	} else {
		message = fmt.Sprintf("Flush complete: %d delivered, %d rejected", delivered, failed)
	}
	data := payload{
		title:   "MARG - Sync Complete",
		message: message,
		tags:    []string{"margsync", "flush", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyPusher) TestPush(ctx context.Context) error {
	data := payload{
		title:    "MARG - Test",
		message:  "Notification system test",
		tags:     []string{"margsync", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyPusher) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// NewNopPusher returns a Pusher that discards everything.
func NewNopPusher() Pusher { return noopPusher{} }

type noopPusher struct{}

func (noopPusher) PushReportSynced(context.Context, string) error         { return nil }
func (noopPusher) PushReportFailed(context.Context, string, string) error { return nil }
func (noopPusher) PushResolutionSynced(context.Context, string) error     { return nil }
func (noopPusher) PushResolutionFailed(context.Context, string, string) error {
	return nil
}
func (noopPusher) PushFlushCompleted(context.Context, int, int) error { return nil }
func (noopPusher) TestPush(context.Context) error                     { return nil }
