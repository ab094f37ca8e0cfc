// Package credentials abstracts how a sync coordinator obtains the bearer
// credential for authenticated submissions. The foreground coordinator reads
// it from the persisted session; the background coordinator asks attached
// clients over the message bus and settles for none when nobody answers.
package credentials

import (
	"context"
	"errors"
	"time"

	"margsync/internal/session"
)

// ErrCredentialUnavailable indicates no credential could be obtained. Treated
// as a transient condition: the affected records stay queued for an attempt
// when a credential source is present.
var ErrCredentialUnavailable = errors.New("credential unavailable")

// Provider supplies a bearer credential for one flush pass. An empty token
// with a nil error means the caller should proceed unauthenticated.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// Static always returns the same token. Used in tests and for token-flag
// overrides.
type Static string

func (s Static) Token(context.Context) (string, error) {
	return string(s), nil
}

// SessionProvider reads the credential from persisted session storage.
type SessionProvider struct {
	storage *session.Storage
}

// NewSessionProvider wraps session storage as a credential provider.
func NewSessionProvider(storage *session.Storage) *SessionProvider {
	return &SessionProvider{storage: storage}
}

func (p *SessionProvider) Token(context.Context) (string, error) {
	token, err := p.storage.Load()
	if errors.Is(err, session.ErrNoSession) {
		return "", ErrCredentialUnavailable
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// Broadcaster requests a credential from attached clients, racing the first
// reply against the timeout.
type Broadcaster interface {
	RequestToken(ctx context.Context, timeout time.Duration) (string, error)
}

// BroadcastProvider obtains the credential through a Broadcaster. A timeout
// or an empty client set resolves to ErrCredentialUnavailable rather than an
// open-ended wait.
type BroadcastProvider struct {
	broadcaster Broadcaster
	timeout     time.Duration
}

// NewBroadcastProvider builds a provider with the given handshake timeout.
func NewBroadcastProvider(broadcaster Broadcaster, timeout time.Duration) *BroadcastProvider {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &BroadcastProvider{broadcaster: broadcaster, timeout: timeout}
}

func (p *BroadcastProvider) Token(ctx context.Context) (string, error) {
	token, err := p.broadcaster.RequestToken(ctx, p.timeout)
	if err != nil {
		return "", errors.Join(ErrCredentialUnavailable, err)
	}
	if token == "" {
		return "", ErrCredentialUnavailable
	}
	return token, nil
}
