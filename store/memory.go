package store

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// MemoryStore is a thread-safe in-memory Store. It is the development and
// test backend; records do not survive the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Load returns a cloned record, or (nil, nil) when none exists.
func (s *MemoryStore) Load(_ context.Context, resource, id string) (*Record, error) {
	if s == nil {
		return nil, errors.New("memory store not configured", errors.CategoryBadInput)
	}
	key := recordKey(resource, id)
	if key == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecord(s.records[key]), nil
}

// SaveIfVersion performs a compare-and-set write.
func (s *MemoryStore) SaveIfVersion(_ context.Context, rec *Record, expectedVersion int64) (int64, error) {
	if s == nil {
		return 0, errors.New("memory store not configured", errors.CategoryBadInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveToMap(s.records, rec, expectedVersion)
}

// RunInTransaction stages mutations on a copy of the store and commits them
// only when fn returns nil.
func (s *MemoryStore) RunInTransaction(_ context.Context, fn func(Tx) error) error {
	if s == nil {
		return errors.New("memory store not configured", errors.CategoryBadInput)
	}
	if fn == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{records: cloneRecordMap(s.records)}
	if err := fn(tx); err != nil {
		return err
	}
	s.records = tx.records
	return nil
}

type memoryTx struct {
	records map[string]*Record
}

func (tx *memoryTx) Load(_ context.Context, resource, id string) (*Record, error) {
	key := recordKey(resource, id)
	if key == "" {
		return nil, nil
	}
	return cloneRecord(tx.records[key]), nil
}

func (tx *memoryTx) SaveIfVersion(_ context.Context, rec *Record, expectedVersion int64) (int64, error) {
	return saveToMap(tx.records, rec, expectedVersion)
}

func saveToMap(records map[string]*Record, rec *Record, expected int64) (int64, error) {
	rec = cloneRecord(rec)
	if rec == nil {
		return 0, errors.New("record is required", errors.CategoryBadInput)
	}
	current := records[recordKey(rec.Resource, rec.ID)]
	version, err := applyVersionedUpdate(rec, current, expected)
	if err != nil {
		return 0, err
	}
	records[recordKey(rec.Resource, rec.ID)] = rec
	return version, nil
}

func cloneRecordMap(in map[string]*Record) map[string]*Record {
	out := make(map[string]*Record, len(in))
	for k, v := range in {
		out[k] = cloneRecord(v)
	}
	return out
}
