package marg_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"margsync/internal/marg"
	"margsync/internal/testsupport"
)

func newClient(t *testing.T, handler http.Handler) *marg.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(server.URL))
	return marg.NewClient(cfg)
}

func TestSubmitReportSendsMultipartFields(t *testing.T) {
	var gotPath string
	var gotFields map[string]string
	var gotPhoto []byte
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
		}
		gotFields = map[string]string{}
		for name := range r.MultipartForm.Value {
			gotFields[name] = r.FormValue(name)
		}
		file, _, err := r.FormFile("photo")
		if err != nil {
			t.Errorf("photo part missing: %v", err)
		} else {
			defer file.Close()
			buf := make([]byte, 64)
			n, _ := file.Read(buf)
			gotPhoto = buf[:n]
		}
		w.WriteHeader(http.StatusCreated)
	}))

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	report := testsupport.NewReport(t, store, "pothole-1")

	if err := client.SubmitReport(context.Background(), report, ""); err != nil {
		t.Fatalf("SubmitReport failed: %v", err)
	}
	if gotPath != "/issues/report" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotFields["category_id"] != "pothole-1" || gotFields["lat"] != "12.97" || gotFields["lng"] != "77.59" {
		t.Fatalf("unexpected form fields: %v", gotFields)
	}
	if gotFields["reporter_email"] != "citizen@example.com" {
		t.Fatalf("unexpected reporter email %q", gotFields["reporter_email"])
	}
	if string(gotPhoto) != "jpeg-bytes" {
		t.Fatalf("unexpected photo payload %q", gotPhoto)
	}
}

func TestSubmitResolutionSetsBearerAndIdempotencyKey(t *testing.T) {
	var gotPath, gotAuth, gotKey string
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-Idempotency-Key")
		w.WriteHeader(http.StatusOK)
	}))

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	resolution := testsupport.NewResolution(t, store, "abc123")

	if err := client.SubmitResolution(context.Background(), resolution, "token-1"); err != nil {
		t.Fatalf("SubmitResolution failed: %v", err)
	}
	if gotPath != "/worker/tasks/abc123/resolve" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer token-1" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotKey != resolution.IdempotencyKey {
		t.Fatalf("unexpected idempotency key %q", gotKey)
	}
}

func TestSubmitClassifiesOutcomes(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		permanent bool
		auth      bool
	}{
		{"bad request", http.StatusBadRequest, true, false},
		{"not found", http.StatusNotFound, true, false},
		{"unauthorized", http.StatusUnauthorized, true, true},
		{"server error", http.StatusInternalServerError, false, false},
		{"bad gateway", http.StatusBadGateway, false, false},
	}

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	resolution := testsupport.NewResolution(t, store, "abc123")

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))

			err := client.SubmitResolution(context.Background(), resolution, "")
			if err == nil {
				t.Fatal("expected error")
			}
			var statusErr *marg.StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != tc.status {
				t.Fatalf("expected StatusError with code %d, got %v", tc.status, err)
			}
			if marg.IsPermanent(err) != tc.permanent {
				t.Fatalf("IsPermanent = %v, want %v", marg.IsPermanent(err), tc.permanent)
			}
			if marg.IsAuthFailure(err) != tc.auth {
				t.Fatalf("IsAuthFailure = %v, want %v", marg.IsAuthFailure(err), tc.auth)
			}
		})
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(server.URL))
	client := marg.NewClient(cfg)

	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	report := testsupport.NewReport(t, store, "pothole-1")

	err := client.SubmitReport(context.Background(), report, "")
	if err == nil {
		t.Fatal("expected network error")
	}
	if marg.IsPermanent(err) {
		t.Fatalf("network error misclassified as permanent: %v", err)
	}
}

func TestPing(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	down := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	if err := down.Ping(context.Background()); err == nil {
		t.Fatal("expected ping failure for 503")
	}
}
