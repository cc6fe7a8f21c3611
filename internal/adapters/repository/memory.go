package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zopper/recon/internal/domain/model"
)

// MemoryStore is an in-memory Store used by tests and the seed tool.
// Semantics mirror SQLiteStore: prefix partner matching, soft batch
// fallback, freshness markers.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.Record
	markers map[string]time.Time
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{markers: make(map[string]time.Time)}
}

func matchPartner(pattern, partner string) bool {
	if strings.HasSuffix(pattern, "%") {
		return strings.HasPrefix(strings.ToLower(partner), strings.ToLower(strings.TrimSuffix(pattern, "%")))
	}
	return strings.EqualFold(pattern, partner)
}

// FetchRecords implements Source.
func (s *MemoryStore) FetchRecords(_ context.Context, partner string, kind model.DatasetKind, batchID string) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := s.collect(partner, kind, batchID)
	if len(out) == 0 && batchID != "" {
		out = s.collect(partner, kind, "")
	}
	return out, nil
}

func (s *MemoryStore) collect(partner string, kind model.DatasetKind, batchID string) []model.Record {
	var out []model.Record
	for _, r := range s.records {
		if r.Kind != kind || !matchPartner(partner, r.Partner) {
			continue
		}
		if batchID != "" && r.BatchID != batchID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// InsertRecords appends records.
func (s *MemoryStore) InsertRecords(_ context.Context, recs []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.records = append(s.records, recs...)
	return nil
}

// ReplaceBatch swaps a batch's records.
func (s *MemoryStore) ReplaceBatch(_ context.Context, partner string, kind model.DatasetKind, batchID string, recs []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	kept := s.records[:0]
	for _, r := range s.records {
		if r.Kind == kind && strings.EqualFold(r.Partner, partner) && r.BatchID == batchID {
			continue
		}
		kept = append(kept, r)
	}
	s.records = append(kept, recs...)
	return nil
}

// DeleteBatch removes records for a tag.
func (s *MemoryStore) DeleteBatch(_ context.Context, partner string, kind model.DatasetKind, batchID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	var removed int64
	kept := s.records[:0]
	for _, r := range s.records {
		if r.Kind == kind && strings.EqualFold(r.Partner, partner) && (batchID == "" || r.BatchID == batchID) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return removed, nil
}

// Touch updates a freshness marker.
func (s *MemoryStore) Touch(_ context.Context, partner string, kind model.DatasetKind, batchKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.markers[partner+"|"+string(kind)+"|"+batchKey] = time.Now().UTC()
	return nil
}

// LastUpdated returns the newest marker for a (partner, kind) pair.
func (s *MemoryStore) LastUpdated(_ context.Context, partner string, kind model.DatasetKind) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return time.Time{}, ErrClosed
	}
	var latest time.Time
	prefix := partner + "|" + string(kind) + "|"
	for k, ts := range s.markers {
		if strings.HasPrefix(k, prefix) && ts.After(latest) {
			latest = ts
		}
	}
	if latest.IsZero() {
		return time.Time{}, ErrNoMarker
	}
	return latest, nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
