package memory

import (
	"context"
	"sync"

	"github.com/teklifbul/intake/internal/model"
)

// InMemoryStore is a map-backed Store for tests and embedded use. Entries are
// kept in touch order per bucket so cap eviction drops the least recently
// touched first.
type InMemoryStore struct {
	mu        sync.Mutex
	buckets   map[string][]model.MemoryEntry
	bucketCap int
}

// NewInMemory creates an InMemoryStore. A bucketCap <= 0 uses DefaultBucketCap.
func NewInMemory(bucketCap int) *InMemoryStore {
	if bucketCap <= 0 {
		bucketCap = DefaultBucketCap
	}
	return &InMemoryStore{
		buckets:   make(map[string][]model.MemoryEntry),
		bucketCap: bucketCap,
	}
}

func (s *InMemoryStore) Migrate(ctx context.Context) error { return nil }
func (s *InMemoryStore) Close() error                      { return nil }

func (s *InMemoryStore) GetAliases(ctx context.Context, submitterID string) ([]model.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.buckets[bucketKey(submitterID)]
	out := make([]model.MemoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *InMemoryStore) Remember(ctx context.Context, submitterID, alias string, field model.TargetField, confidence float64) error {
	if alias == "" || field == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := bucketKey(submitterID)
	entries := s.buckets[bucket]
	for i, e := range entries {
		if e.Alias == alias && e.Field == field {
			e.Seen++
			e.Confidence = (e.Confidence*float64(e.Seen-1) + confidence) / float64(e.Seen)
			// Move to the back: most recently touched.
			entries = append(append(entries[:i:i], entries[i+1:]...), e)
			s.buckets[bucket] = entries
			return nil
		}
	}

	entries = append(entries, model.MemoryEntry{
		Alias: alias, Field: field, Confidence: confidence, Seen: 1,
	})
	if len(entries) > s.bucketCap {
		entries = entries[len(entries)-s.bucketCap:]
	}
	s.buckets[bucket] = entries
	return nil
}
