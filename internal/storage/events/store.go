// Package events holds the canonical in-memory collection of detected volume
// anomalies and the per-symbol candle cache.
package events

import (
	"sort"
	"sync"

	"github.com/vadiminshakov/volscan/internal/domain"
)

// DefaultCap bounds the event list when no explicit capacity is configured.
const DefaultCap = 500

// Subscriber is notified synchronously after every observable state change.
// added carries the events inserted by the change; it is nil for symbol cache
// updates.
type Subscriber func(added []domain.VolumeEvent)

// Store is the bounded, deduplicated, newest-first event collection plus the
// tracked symbol cache. It is safe for concurrent use. Stores are constructed
// by the composition root and passed by reference; there is no package-level
// instance.
type Store struct {
	mu      sync.RWMutex
	cap     int
	events  []domain.VolumeEvent
	ids     map[string]struct{}
	symbols map[string]domain.SymbolEntry

	subMu   sync.Mutex
	subs    map[uint64]Subscriber
	nextSub uint64
}

// NewStore creates a store bounded to capacity events. Non-positive capacity
// falls back to DefaultCap.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Store{
		cap:     capacity,
		ids:     make(map[string]struct{}),
		symbols: make(map[string]domain.SymbolEntry),
		subs:    make(map[uint64]Subscriber),
	}
}

// Add inserts an event at the front of the list. A duplicate ID is a defined
// no-op, reported by the false return. Insertion beyond capacity evicts the
// oldest event.
func (s *Store) Add(ev domain.VolumeEvent) bool {
	s.mu.Lock()
	if _, dup := s.ids[ev.ID]; dup {
		s.mu.Unlock()
		return false
	}

	s.ids[ev.ID] = struct{}{}
	s.events = append([]domain.VolumeEvent{ev}, s.events...)
	if len(s.events) > s.cap {
		evicted := s.events[len(s.events)-1]
		delete(s.ids, evicted.ID)
		s.events = s.events[:len(s.events)-1]
	}
	s.mu.Unlock()

	s.notify([]domain.VolumeEvent{ev})
	return true
}

// Replace atomically swaps the whole event list. The caller guarantees
// distinct IDs; the store still sorts newest-first and enforces the capacity
// bound. Used once per backfill so startup does not flood subscribers with
// per-event notifications.
func (s *Store) Replace(evs []domain.VolumeEvent) {
	sorted := make([]domain.VolumeEvent, len(evs))
	copy(sorted, evs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.After(sorted[j].Time)
	})
	if len(sorted) > s.cap {
		sorted = sorted[:s.cap]
	}

	ids := make(map[string]struct{}, len(sorted))
	for _, ev := range sorted {
		ids[ev.ID] = struct{}{}
	}

	s.mu.Lock()
	s.events = sorted
	s.ids = ids
	s.mu.Unlock()

	s.notify(sorted)
}

// Events returns a copy of the event list, newest first.
func (s *Store) Events() []domain.VolumeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.VolumeEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the current event count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// UpsertSymbol stores a universe entry, last write wins.
func (s *Store) UpsertSymbol(entry domain.SymbolEntry) {
	s.mu.Lock()
	s.symbols[entry.Symbol] = entry
	s.mu.Unlock()

	s.notify(nil)
}

// ResetSymbols replaces the whole tracked universe, used on manual refresh.
func (s *Store) ResetSymbols(entries []domain.SymbolEntry) {
	symbols := make(map[string]domain.SymbolEntry, len(entries))
	for _, e := range entries {
		symbols[e.Symbol] = e
	}

	s.mu.Lock()
	s.symbols = symbols
	s.mu.Unlock()

	s.notify(nil)
}

// Symbol returns the cached entry for a symbol.
func (s *Store) Symbol(name string) (domain.SymbolEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.symbols[name]
	return entry, ok
}

// Symbols returns the tracked universe sorted by symbol name.
func (s *Store) Symbols() []domain.SymbolEntry {
	s.mu.RLock()
	out := make([]domain.SymbolEntry, 0, len(s.symbols))
	for _, e := range s.symbols {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Subscribe registers an observer and returns its unsubscribe function.
// Observers are invoked synchronously in registration order. The subscriber
// set is snapshotted before iterating, so subscribing or unsubscribing from
// inside a notification is safe.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(added []domain.VolumeEvent) {
	s.subMu.Lock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	snapshot := make([]Subscriber, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range snapshot {
		fn(added)
	}
}
