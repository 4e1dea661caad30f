// Package ratelimit tracks per-endpoint suppression windows set by HTTP 429
// responses and replicates them to sibling contexts through a Hub.
//
// A Store belongs to one context (one UI panel, one worker). Records are
// overwrite-only: an update always replaces the whole entry for its endpoint
// key, so concurrent readers never observe a partially updated record.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultRetryAfter is used when a 429 response carries no Retry-After header.
const DefaultRetryAfter = 10 * time.Second

// Record is a single suppression entry as carried between contexts.
type Record struct {
	Endpoint string
	Until    time.Time
}

// Hub fans suppression records out to every registered store except the
// originating one. It is the in-process stand-in for a cross-context
// broadcast channel.
type Hub struct {
	mu     sync.Mutex
	stores []*Store
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) register(s *Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stores = append(h.stores, s)
}

func (h *Hub) broadcast(from *Store, rec Record) {
	h.mu.Lock()
	stores := make([]*Store, len(h.stores))
	copy(stores, h.stores)
	h.mu.Unlock()

	for _, s := range stores {
		if s != from {
			s.apply(rec)
		}
	}
}

// Store holds the suppression deadlines known to one context, its own and
// those received via the hub.
type Store struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
	hub       *Hub
	now       func() time.Time
}

// NewStore creates a store and registers it with hub. A nil hub yields a
// standalone store.
func NewStore(hub *Hub) *Store {
	s := &Store{
		deadlines: make(map[string]time.Time),
		hub:       hub,
		now:       time.Now,
	}
	if hub != nil {
		hub.register(s)
	}
	return s
}

// Suppress records a deadline for the endpoint key and broadcasts it to
// sibling contexts.
func (s *Store) Suppress(endpoint string, until time.Time) {
	rec := Record{Endpoint: endpoint, Until: until}
	s.apply(rec)
	if s.hub != nil {
		s.hub.broadcast(s, rec)
	}
}

func (s *Store) apply(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadlines[rec.Endpoint] = rec.Until
}

// Suppressed reports whether calls to the endpoint key should be skipped.
func (s *Store) Suppressed(endpoint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.deadlines[endpoint]
	return ok && s.now().Before(until)
}
