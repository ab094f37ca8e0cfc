package bus_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"margsync/internal/bus"
	"margsync/internal/logging"
	"margsync/internal/notify"
)

func newServer(t *testing.T) *bus.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bus.sock")
	server, err := bus.NewServer(context.Background(), path, logging.NewNop())
	if err != nil {
		t.Fatalf("bus.NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)
	return server
}

func attach(t *testing.T, server *bus.Server, tokenFn func() string) *bus.Client {
	t.Helper()
	client, err := bus.Attach(server.Path(), tokenFn)
	if err != nil {
		t.Fatalf("bus.Attach: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	waitForClients(t, server, 1)
	return client
}

func waitForClients(t *testing.T, server *bus.Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() < want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d attached clients, have %d", want, server.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRequestTokenWithNoClients(t *testing.T) {
	server := newServer(t)

	start := time.Now()
	_, err := server.RequestToken(context.Background(), time.Second)
	if !errors.Is(err, bus.ErrNoClients) {
		t.Fatalf("expected ErrNoClients, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("expected immediate resolution, took %s", elapsed)
	}
}

func TestRequestTokenReturnsFirstReply(t *testing.T) {
	server := newServer(t)
	attach(t, server, func() string { return "token-1" })

	token, err := server.RequestToken(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("RequestToken failed: %v", err)
	}
	if token != "token-1" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestRequestTokenResolvesEarlyWhenAllRepliesEmpty(t *testing.T) {
	server := newServer(t)
	attach(t, server, nil)

	start := time.Now()
	_, err := server.RequestToken(context.Background(), 5*time.Second)
	if !errors.Is(err, bus.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected early resolution, took %s", elapsed)
	}
}

func TestRequestTokenTimesOutOnSilentClient(t *testing.T) {
	server := newServer(t)
	attach(t, server, func() string {
		time.Sleep(3 * time.Second)
		return "too-late"
	})

	start := time.Now()
	_, err := server.RequestToken(context.Background(), 100*time.Millisecond)
	if !errors.Is(err, bus.ErrNoToken) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("handshake overran its timeout: %s", elapsed)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	server := newServer(t)
	first := attach(t, server, nil)
	second, err := bus.Attach(server.Path(), nil)
	if err != nil {
		t.Fatalf("bus.Attach: %v", err)
	}
	t.Cleanup(func() { second.Close() })
	waitForClients(t, server, 2)

	evt := notify.Event{Kind: notify.KindSynced, Subject: notify.SubjectResolution, SubjectID: "abc123"}
	server.Broadcast(evt)

	for i, client := range []*bus.Client{first, second} {
		select {
		case got := <-client.Events():
			if got != evt {
				t.Fatalf("client %d: unexpected event %#v", i, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("client %d: no broadcast received", i)
		}
	}
}

func TestClientDetachDropsFromCount(t *testing.T) {
	server := newServer(t)
	client := attach(t, server, nil)

	client.Close()
	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected client to detach, count is %d", server.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
