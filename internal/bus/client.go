package bus

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"margsync/internal/notify"
)

const clientEventBuffer = 16

// Client is a foreground attachment to the daemon's bus. It answers the
// daemon's credential requests via tokenFn and surfaces broadcast sync
// outcomes on Events.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	enc     *json.Encoder
	tokenFn func() string
	events  chan notify.Event

	closeOnce sync.Once
	done      chan struct{}
}

// Attach connects to the bus socket. tokenFn may be nil, in which case
// credential requests are answered empty.
func Attach(path string, tokenFn func() string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}

	client := &Client{
		conn:    conn,
		enc:     json.NewEncoder(conn),
		tokenFn: tokenFn,
		events:  make(chan notify.Event, clientEventBuffer),
		done:    make(chan struct{}),
	}
	if err := client.send(frame{Type: frameHello, ClientID: uuid.NewString()}); err != nil {
		_ = conn.Close()
		return nil, err
	}

	go client.readLoop()
	return client, nil
}

// Events returns the channel of broadcast sync outcomes. It is closed when
// the connection drops or Close is called.
func (c *Client) Events() <-chan notify.Event {
	return c.events
}

// Done is closed when the attachment ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close detaches from the bus.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func (c *Client) send(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(f)
}

func (c *Client) readLoop() {
	defer func() {
		_ = c.Close()
		close(c.events)
		close(c.done)
	}()

	dec := json.NewDecoder(c.conn)
	for {
		var f frame
		if err := dec.Decode(&f); err != nil {
			return
		}
		switch f.Type {
		case frameTokenRequest:
			token := ""
			if c.tokenFn != nil {
				token = c.tokenFn()
			}
			if err := c.send(frame{Type: frameTokenReply, ID: f.ID, Token: token}); err != nil {
				return
			}
		case frameEvent:
			if f.Event == nil {
				continue
			}
			select {
			case c.events <- *f.Event:
			default:
			}
		}
	}
}
