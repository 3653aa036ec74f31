package services

import (
	"sync"

	"github.com/mming1274-7/True-Name-RPG-FHE/game"
)

// BatchStore persists batch and decryption-context records. Writes are
// upserts keyed by batch id and request id respectively.
type BatchStore interface {
	SaveBatch(rec game.BatchRecord) error
	SaveContext(rec game.ContextRecord) error

	// LoadAll returns every persisted record, for engine restore on
	// startup.
	LoadAll() ([]game.BatchRecord, []game.ContextRecord, error)

	Close() error
}

// InMemoryStore implements BatchStore without a database. Used in tests
// and single-process demos.
type InMemoryStore struct {
	mu       sync.Mutex
	batches  map[uint64]game.BatchRecord
	contexts map[string]game.ContextRecord
}

// NewInMemoryStore creates an in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		batches:  make(map[uint64]game.BatchRecord),
		contexts: make(map[string]game.ContextRecord),
	}
}

// SaveBatch stores a batch record in memory.
func (s *InMemoryStore) SaveBatch(rec game.BatchRecord) error {
	s.mu.Lock()
	s.batches[rec.ID] = rec
	s.mu.Unlock()
	return nil
}

// SaveContext stores a context record in memory.
func (s *InMemoryStore) SaveContext(rec game.ContextRecord) error {
	s.mu.Lock()
	s.contexts[string(rec.RequestID)] = rec
	s.mu.Unlock()
	return nil
}

// LoadAll returns all stored records.
func (s *InMemoryStore) LoadAll() ([]game.BatchRecord, []game.ContextRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batches := make([]game.BatchRecord, 0, len(s.batches))
	for _, rec := range s.batches {
		batches = append(batches, rec)
	}
	contexts := make([]game.ContextRecord, 0, len(s.contexts))
	for _, rec := range s.contexts {
		contexts = append(contexts, rec)
	}
	return batches, contexts, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
