// Package realtime fans out "invitations of event X changed" notifications to subscribers.
// Subscribers re-fetch the full invitation list when notified; no payload is carried.
package realtime

import (
	"sort"
	"sync"

	"meetsync/internal/metrics"
)

// Notification sources.
const (
	SourceLocal    = "local"
	SourcePostgres = "postgres"
)

type subscriber struct {
	id uint64
	fn func()
}

// Broker is an in-process InvitationFeed keyed by event id. It is safe for concurrent use.
type Broker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func()
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[uint64]func())}
}

// Subscribe registers fn for changes of eventID. The returned function unsubscribes and is
// safe to call more than once.
func (b *Broker) Subscribe(eventID string, fn func()) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[eventID] == nil {
		b.subs[eventID] = make(map[uint64]func())
	}
	b.subs[eventID][id] = fn
	b.mu.Unlock()
	metrics.RealtimeSubscribers.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[eventID], id)
			if len(b.subs[eventID]) == 0 {
				delete(b.subs, eventID)
			}
			b.mu.Unlock()
			metrics.RealtimeSubscribers.Dec()
		})
	}
}

// Publish notifies the subscribers of eventID of a change made by this process.
func (b *Broker) Publish(eventID string) {
	b.Notify(eventID, SourceLocal)
}

// Notify invokes the callbacks of eventID in subscription order. Callbacks run outside the
// broker lock, so they may subscribe or unsubscribe.
func (b *Broker) Notify(eventID, source string) {
	metrics.RealtimeNotifications.WithLabelValues(source).Inc()
	for _, fn := range b.callbacks(eventID) {
		fn()
	}
}

// NotifyAll notifies every subscriber, e.g. after a lost database connection when individual
// notifications may have been missed.
func (b *Broker) NotifyAll(source string) {
	b.mu.RLock()
	ids := make([]string, 0, len(b.subs))
	for eventID := range b.subs {
		ids = append(ids, eventID)
	}
	b.mu.RUnlock()
	for _, eventID := range ids {
		b.Notify(eventID, source)
	}
}

// Subscribers returns the number of subscribers of eventID.
func (b *Broker) Subscribers(eventID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventID])
}

func (b *Broker) callbacks(eventID string) []func() {
	b.mu.RLock()
	subs := make([]subscriber, 0, len(b.subs[eventID]))
	for id, fn := range b.subs[eventID] {
		subs = append(subs, subscriber{id: id, fn: fn})
	}
	b.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	fns := make([]func(), len(subs))
	for i, s := range subs {
		fns[i] = s.fn
	}
	return fns
}
