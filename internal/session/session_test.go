package session_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"

	"margsync/internal/session"
)

func newStorage(t *testing.T) *session.Storage {
	t.Helper()
	keyring.MockInit()
	return session.NewStorage(filepath.Join(t.TempDir(), "session"))
}

func TestSaveLoadClear(t *testing.T) {
	storage := newStorage(t)

	if _, err := storage.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	if err := storage.Save("token-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	token, err := storage.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if token != "token-1" {
		t.Fatalf("unexpected token %q", token)
	}

	if err := storage.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := storage.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	storage := newStorage(t)
	if err := storage.Save("  "); err == nil {
		t.Fatal("expected error for empty token")
	}
}
