package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"margsync/internal/logging"
	"margsync/internal/notify"
)

// ErrNoClients indicates no foreground client is attached to the bus.
var ErrNoClients = errors.New("no attached clients")

// ErrNoToken indicates every attached client replied without a credential.
var ErrNoToken = errors.New("no client supplied a credential")

// Server accepts foreground client attachments on a unix socket.
type Server struct {
	path     string
	logger   *slog.Logger
	listener net.Listener

	mu      sync.Mutex
	clients map[*remoteClient]struct{}
	pending map[string]chan string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type remoteClient struct {
	conn net.Conn
	mu   sync.Mutex
	enc  *json.Encoder
	id   string
}

func (c *remoteClient) send(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(f)
}

// NewServer configures the bus server at the given socket path.
func NewServer(ctx context.Context, path string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on bus socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:     path,
		logger:   logger,
		listener: listener,
		clients:  make(map[*remoteClient]struct{}),
		pending:  make(map[string]chan string),
		ctx:      serverCtx,
		cancel:   cancel,
	}, nil
}

// Serve starts accepting client attachments until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("bus server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("bus accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.handle(c)
			}(conn)
		}
	}()
}

// Close stops the server, disconnects clients, and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for client := range s.clients {
		_ = client.conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove bus socket", logging.String("socket", s.path), logging.Error(err))
	}
}

// Path returns the socket path the server listens on.
func (s *Server) Path() string {
	return s.path
}

// ClientCount returns the number of attached clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast delivers a sync outcome to every attached client. Send failures
// are logged and the offending client dropped on its next read error.
func (s *Server) Broadcast(evt notify.Event) {
	for _, client := range s.snapshotClients() {
		if err := client.send(frame{Type: frameEvent, Event: &evt}); err != nil {
			s.logger.Debug("bus broadcast failed",
				logging.String("client", client.id),
				logging.Error(err))
		}
	}
}

// RequestToken broadcasts a credential request to every attached client and
// races the first non-empty reply against the timeout. With no clients, or
// when every client answers empty, it resolves early instead of waiting out
// the timer.
func (s *Server) RequestToken(ctx context.Context, timeout time.Duration) (string, error) {
	clients := s.snapshotClients()
	if len(clients) == 0 {
		return "", ErrNoClients
	}

	requestID := uuid.NewString()
	replies := make(chan string, len(clients))

	s.mu.Lock()
	s.pending[requestID] = replies
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, requestID)
		s.mu.Unlock()
	}()

	asked := 0
	for _, client := range clients {
		if err := client.send(frame{Type: frameTokenRequest, ID: requestID}); err != nil {
			s.logger.Debug("token request send failed",
				logging.String("client", client.id),
				logging.Error(err))
			continue
		}
		asked++
	}
	if asked == 0 {
		return "", ErrNoClients
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	answered := 0
	for {
		select {
		case token := <-replies:
			if token != "" {
				return token, nil
			}
			answered++
			if answered >= asked {
				return "", ErrNoToken
			}
		case <-timer.C:
			return "", fmt.Errorf("%w: timed out after %s", ErrNoToken, timeout)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (s *Server) snapshotClients() []*remoteClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	clients := make([]*remoteClient, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	return clients
}

func (s *Server) handle(conn net.Conn) {
	client := &remoteClient{conn: conn, enc: json.NewEncoder(conn)}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, client)
		s.mu.Unlock()
		_ = conn.Close()
		s.logger.Debug("bus client detached", logging.String("client", client.id))
	}()

	dec := json.NewDecoder(conn)
	for {
		var f frame
		if err := dec.Decode(&f); err != nil {
			return
		}
		switch f.Type {
		case frameHello:
			client.id = f.ClientID
			s.logger.Debug("bus client attached", logging.String("client", client.id))
		case frameTokenReply:
			s.mu.Lock()
			replies, ok := s.pending[f.ID]
			s.mu.Unlock()
			if !ok {
				// Reply landed after the handshake settled; drop it.
				continue
			}
			select {
			case replies <- f.Token:
			default:
			}
		default:
			s.logger.Debug("unexpected bus frame", logging.String("type", f.Type))
		}
	}
}
