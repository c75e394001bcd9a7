package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	backend "github.com/redis/go-redis/v9"
)

// RedisStore persists records as JSON values in Redis. Optimistic locking is
// enforced through a process-local mutex around read-compare-write, so a
// single writer process gets full compare-and-set semantics; multi-writer
// deployments should front it with a shared lock or use the SQL store.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	mu     sync.Mutex
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets an expiration on every saved record. Zero keeps records
// forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore connects to the given address and wraps the client.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: "fsm:record:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Load reads one record, or (nil, nil) when the key does not exist.
func (s *RedisStore) Load(ctx context.Context, resource, id string) (*Record, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("redis store not configured", errors.CategoryBadInput)
	}
	key := s.key(resource, id)
	if key == "" {
		return nil, nil
	}
	return s.loadByKey(ctx, key)
}

// SaveIfVersion performs a read-compare-write save under the store mutex.
func (s *RedisStore) SaveIfVersion(ctx context.Context, rec *Record, expectedVersion int64) (int64, error) {
	if s == nil || s.client == nil {
		return 0, errors.New("redis store not configured", errors.CategoryBadInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, rec, expectedVersion)
}

// RunInTransaction stages writes and flushes them only when fn returns nil.
func (s *RedisStore) RunInTransaction(ctx context.Context, fn func(Tx) error) error {
	if s == nil || s.client == nil {
		return errors.New("redis store not configured", errors.CategoryBadInput)
	}
	if fn == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &redisTx{parent: s, writes: make(map[string]*Record)}
	if err := fn(tx); err != nil {
		return err
	}
	for key, rec := range tx.writes {
		if err := s.write(ctx, key, rec); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

type redisTx struct {
	parent *RedisStore
	writes map[string]*Record
}

func (tx *redisTx) Load(ctx context.Context, resource, id string) (*Record, error) {
	key := tx.parent.key(resource, id)
	if key == "" {
		return nil, nil
	}
	if rec, ok := tx.writes[key]; ok {
		return cloneRecord(rec), nil
	}
	return tx.parent.loadByKey(ctx, key)
}

func (tx *redisTx) SaveIfVersion(ctx context.Context, rec *Record, expectedVersion int64) (int64, error) {
	rec = cloneRecord(rec)
	if rec == nil {
		return 0, errors.New("record is required", errors.CategoryBadInput)
	}
	key := tx.parent.key(rec.Resource, rec.ID)
	if key == "" {
		return 0, errors.New("record requires a resource and an id", errors.CategoryBadInput)
	}
	current, ok := tx.writes[key]
	if !ok {
		loaded, err := tx.parent.loadByKey(ctx, key)
		if err != nil {
			return 0, err
		}
		current = loaded
	}
	version, err := applyVersionedUpdate(rec, current, expectedVersion)
	if err != nil {
		return 0, err
	}
	tx.writes[key] = rec
	return version, nil
}

func (s *RedisStore) saveLocked(ctx context.Context, rec *Record, expected int64) (int64, error) {
	rec = cloneRecord(rec)
	if rec == nil {
		return 0, errors.New("record is required", errors.CategoryBadInput)
	}
	key := s.key(rec.Resource, rec.ID)
	if key == "" {
		return 0, errors.New("record requires a resource and an id", errors.CategoryBadInput)
	}
	current, err := s.loadByKey(ctx, key)
	if err != nil {
		return 0, err
	}
	version, err := applyVersionedUpdate(rec, current, expected)
	if err != nil {
		return 0, err
	}
	if err := s.write(ctx, key, rec); err != nil {
		return 0, err
	}
	return version, nil
}

func (s *RedisStore) loadByKey(ctx context.Context, key string) (*Record, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == backend.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) write(ctx context.Context, key string, rec *Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, payload, s.ttl).Err()
}

func (s *RedisStore) key(resource, id string) string {
	suffix := recordKey(resource, id)
	if suffix == "" {
		return ""
	}
	prefix := s.prefix
	if prefix == "" {
		prefix = "fsm:record:"
	}
	return prefix + suffix
}
