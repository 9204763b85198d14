package notify

import (
	"sync"
)

// EventKind classifies a session event pushed to connected clients.
type EventKind string

const (
	ChatCreated EventKind = "chat_created"
)

// Event is a chat-list change for one user.
type Event struct {
	Kind   EventKind `json:"kind"`
	ChatID string    `json:"chat_id"`
	Title  string    `json:"title"`
}

// Notifier fans chat events out to a user's subscribed connections. A slow
// subscriber does not block publishers; events beyond the channel buffer are
// dropped.
type Notifier struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
}

func NewNotifier() *Notifier {
	return &Notifier{
		subscribers: make(map[string][]chan Event),
	}
}

// Subscribe registers a channel for a user's events.
func (n *Notifier) Subscribe(username string) <-chan Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan Event, 4)
	n.subscribers[username] = append(n.subscribers[username], ch)
	return ch
}

// Unsubscribe removes and closes a previously subscribed channel.
func (n *Notifier) Unsubscribe(username string, ch <-chan Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	chans := n.subscribers[username]
	for i, c := range chans {
		if c == ch {
			n.subscribers[username] = append(chans[:i], chans[i+1:]...)
			close(c)
			break
		}
	}
}

// Publish delivers an event to every subscriber of the user.
func (n *Notifier) Publish(username string, event Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subscribers[username] {
		select {
		case ch <- event:
		default:
		}
	}
}
