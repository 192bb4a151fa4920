// Package journal persists detected anomalies in an append-only WAL so the
// web stream can replay the feed across restarts.
package journal

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/volscan/internal/domain"
)

const (
	DefaultDir = "./wal/events"

	segmentLimit = 1000
	maxSegments  = 20

	eventKeyPrefix = "volume_event_"
)

// Record is a journaled event together with its WAL index.
type Record struct {
	Index uint64
	Event domain.VolumeEvent
}

// Store is a WAL-backed event journal.
type Store struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewStore initializes the journal in dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "event_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init event journal")
	}

	return &Store{wal: wal}, nil
}

// Append writes an event to the journal.
func (s *Store) Append(event domain.VolumeEvent) error {
	if s == nil || s.wal == nil {
		return errors.New("event journal is not initialized")
	}
	if event.ID == "" {
		return fmt.Errorf("event ID is required")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal volume event")
	}

	key := fmt.Sprintf("%s%s", eventKeyPrefix, event.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// EventsAfter returns all events journaled after the provided WAL index.
func (s *Store) EventsAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("event journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(key, eventKeyPrefix) {
			continue
		}

		var event domain.VolumeEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrap(err, "decode volume event")
		}
		records = append(records, Record{Index: idx, Event: event})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *Store) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("event journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
