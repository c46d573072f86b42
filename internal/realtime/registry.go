package realtime

import (
	"errors"
	"log"
	"sync"
)

// ErrAlreadyRegistered is returned when a subscriber is registered twice.
var ErrAlreadyRegistered = errors.New("realtime: subscriber already registered")

// Subscriber is the registry's view of a live connection.
type Subscriber interface {
	ID() string
	Ready() bool
	Send(msg []byte) error
}

// Registry maps live subscribers to their subscription descriptor D. Each channel owns one.
// Iteration always runs over a snapshot taken under the read lock, so callbacks may register,
// unregister, or close subscribers.
type Registry[D any] struct {
	mu      sync.RWMutex
	entries map[Subscriber]D
}

// NewRegistry returns an empty registry.
func NewRegistry[D any]() *Registry[D] {
	return &Registry[D]{entries: make(map[Subscriber]D)}
}

// Register adds s with descriptor d. The descriptor is fixed for the subscriber's lifetime.
func (r *Registry[D]) Register(s Subscriber, d D) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[s]; ok {
		return ErrAlreadyRegistered
	}
	r.entries[s] = d
	return nil
}

// Unregister removes s. Returns false if s was not registered; calling it again has no effect.
func (r *Registry[D]) Unregister(s Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[s]; !ok {
		return false
	}
	delete(r.entries, s)
	return true
}

// Descriptor returns the descriptor registered for s.
func (r *Registry[D]) Descriptor(s Subscriber) (D, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[s]
	return d, ok
}

// Len returns the number of registered subscribers.
func (r *Registry[D]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

type entry[D any] struct {
	sub  Subscriber
	desc D
}

func (r *Registry[D]) snapshot() []entry[D] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entry[D], 0, len(r.entries))
	for s, d := range r.entries {
		out = append(out, entry[D]{sub: s, desc: d})
	}
	return out
}

// ForEachMatching calls fn for every subscriber whose descriptor satisfies match.
// A nil match selects every subscriber.
func (r *Registry[D]) ForEachMatching(match func(D) bool, fn func(Subscriber, D)) {
	for _, e := range r.snapshot() {
		if match != nil && !match(e.desc) {
			continue
		}
		fn(e.sub, e.desc)
	}
}

// Delivery summarizes one broadcast.
type Delivery struct {
	Matched int
	Sent    int
	Skipped int // matched but no longer open
	Failed  int // send refused (closed or queue full)
}

// Broadcast sends payload to every matching open subscriber. A failed send never stops the others.
func (r *Registry[D]) Broadcast(payload []byte, match func(D) bool) Delivery {
	var d Delivery
	r.ForEachMatching(match, func(s Subscriber, _ D) {
		d.Matched++
		if !s.Ready() {
			d.Skipped++
			return
		}
		if err := s.Send(payload); err != nil {
			d.Failed++
			log.Printf("realtime: send to %s: %v", s.ID(), err)
			return
		}
		d.Sent++
	})
	return d
}

// CloseAll closes every registered subscriber that supports closing. Used on shutdown.
func (r *Registry[D]) CloseAll() {
	for _, e := range r.snapshot() {
		if c, ok := e.sub.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
