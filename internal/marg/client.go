// Package marg is the HTTP client for the MARG REST backend. It builds the
// multipart submissions the flush coordinators deliver and classifies
// responses into delivered, permanently rejected, and transient outcomes.
package marg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"margsync/internal/config"
	"margsync/internal/queue"
)

const userAgent = "margsync/0.1.0"

// Client submits queued records to the MARG backend.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.API.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SubmitReport delivers a queued citizen report.
func (c *Client) SubmitReport(ctx context.Context, report *queue.Report, token string) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"category_id":    report.CategoryID,
		"lat":            strconv.FormatFloat(report.Lat, 'f', -1, 64),
		"lng":            strconv.FormatFloat(report.Lng, 'f', -1, 64),
		"reporter_email": report.ReporterEmail,
		"description":    report.Description,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}
	if err := writePhoto(writer, "report.jpg", report.Photo); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	return c.post(ctx, c.baseURL+"/issues/report", writer.FormDataContentType(), body, token, report.IdempotencyKey)
}

// SubmitResolution delivers a queued worker resolution for its issue.
func (c *Client) SubmitResolution(ctx context.Context, resolution *queue.Resolution, token string) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writePhoto(writer, "resolution.jpg", resolution.Photo); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	url := c.baseURL + "/worker/tasks/" + resolution.IssueID + "/resolve"
	return c.post(ctx, url, writer.FormDataContentType(), body, token, resolution.IdempotencyKey)
}

// Ping probes the backend health endpoint. Used by the connectivity watcher.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping backend: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) post(ctx context.Context, url, contentType string, body io.Reader, token, idempotencyKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &StatusError{
		Code:   resp.StatusCode,
		Detail: strings.TrimSpace(string(detail)),
	}
}

func writePhoto(writer *multipart.Writer, filename string, photo []byte) error {
	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return fmt.Errorf("write photo part: %w", err)
	}
	return nil
}
