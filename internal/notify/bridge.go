package notify

import "sync"

const subscriptionBuffer = 16

// Bridge fans coordinator outcomes out to subscribers. Publish never blocks:
// a subscriber that falls behind loses events rather than stalling a flush
// pass.
type Bridge struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewBridge constructs an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber. The caller must Unsubscribe when done
// so the bridge does not accumulate dead channels across restarts.
func (b *Bridge) Subscribe() *Subscription {
	sub := &Subscription{
		bridge: b,
		ch:     make(chan Event, subscriptionBuffer),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish delivers an event to every current subscriber.
func (b *Bridge) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

func (b *Bridge) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Subscription is one subscriber's channel into the bridge.
type Subscription struct {
	bridge *Bridge
	ch     chan Event
	once   sync.Once
}

// Events returns the subscriber's event channel.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Unsubscribe detaches from the bridge and closes the channel. Safe to call
// more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bridge.remove(s)
		close(s.ch)
	})
}
