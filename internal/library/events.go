package library

import (
	"sync"
	"time"

	"github.com/hyperjump/petitpdf/internal/detail"
	"github.com/hyperjump/petitpdf/internal/models"
)

// EventType names a library change.
type EventType string

const (
	EventDocumentImported EventType = "document.imported"
	EventDocumentDeleted  EventType = "document.deleted"
	EventSessionOpened    EventType = "session.opened"
	EventSessionChanged   EventType = "session.changed"
	EventSessionClosed    EventType = "session.closed"
)

// Event is published to subscribers on every library or session change.
type Event struct {
	Type       EventType        `json:"type"`
	DocumentID string           `json:"document_id,omitempty"`
	Document   *models.Document `json:"document,omitempty"`
	State      *detail.State    `json:"state,omitempty"`
	Time       time.Time        `json:"time"`
}

const subscriberBuffer = 32

// broker fans events out to subscriber channels. Slow subscribers miss events
// rather than block publishers.
type broker struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

func newBroker() *broker {
	return &broker{subs: make(map[chan Event]struct{})}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

func (b *broker) publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Subscribe returns a channel of library events and a function that ends the
// subscription. The channel is closed when the subscription or the library ends.
func (l *Library) Subscribe() (<-chan Event, func()) {
	return l.events.subscribe()
}
