// Package store is the reference persistence layer for machine-governed
// records. It keeps one versioned row per (resource, id) pair and guards
// concurrent writers with optimistic locking: every save names the version it
// read, and a stale version is rejected with FSM_RECORD_VERSION_CONFLICT
// instead of overwriting newer data. The machine itself never performs I/O;
// hosts load a record here, ask the machine to authorize the transition, and
// save the outcome back through the same store.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-statemachine"
)

// ErrCodeVersionConflict marks a save that lost an optimistic-lock race.
const ErrCodeVersionConflict = "FSM_RECORD_VERSION_CONFLICT"

// Record is the persisted snapshot of one governed record.
type Record struct {
	ID         string         `json:"id"`
	Resource   string         `json:"resource"`
	State      string         `json:"state"`
	Version    int64          `json:"version"`
	Attributes map[string]any `json:"attributes,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Store persists records with compare-and-set semantics. Load returns
// (nil, nil) for a record that does not exist yet; the first save must name
// expected version 0.
type Store interface {
	Load(ctx context.Context, resource, id string) (*Record, error)
	SaveIfVersion(ctx context.Context, rec *Record, expectedVersion int64) (newVersion int64, err error)
	RunInTransaction(ctx context.Context, fn func(Tx) error) error
}

// Tx is the store surface visible inside RunInTransaction. Its writes become
// durable only when the transaction function returns nil.
type Tx interface {
	Load(ctx context.Context, resource, id string) (*Record, error)
	SaveIfVersion(ctx context.Context, rec *Record, expectedVersion int64) (newVersion int64, err error)
}

// IsVersionConflict reports whether err is an optimistic-lock rejection.
func IsVersionConflict(err error) bool {
	return statemachine.ErrorCode(err) == ErrCodeVersionConflict
}

func versionConflict(resource, id string, expected int64) error {
	return errors.New("record version conflict", errors.CategoryConflict).
		WithTextCode(ErrCodeVersionConflict).
		WithMetadata(map[string]any{
			"resource":         resource,
			"record_id":        id,
			"expected_version": expected,
		})
}

// normalizeRecord trims identifiers and canonicalizes the state in place.
func normalizeRecord(rec *Record) error {
	if rec == nil {
		return errors.New("record is required", errors.CategoryBadInput)
	}
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		return errors.New("record requires an id", errors.CategoryBadInput)
	}
	rec.Resource = resourceKey(rec.Resource)
	if rec.Resource == "" {
		return errors.New("record requires a resource", errors.CategoryBadInput)
	}
	rec.State = statemachine.CanonicalState(rec.State)
	if rec.State == "" {
		return errors.New("record requires a state", errors.CategoryBadInput)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// applyVersionedUpdate normalizes next in place and assigns its new version
// against the current snapshot. A nil current means the record does not exist
// yet, so only expected version 0 may create it.
func applyVersionedUpdate(next, current *Record, expected int64) (int64, error) {
	if err := normalizeRecord(next); err != nil {
		return 0, err
	}
	if expected < 0 {
		expected = 0
	}
	if current == nil {
		if expected != 0 {
			return 0, versionConflict(next.Resource, next.ID, expected)
		}
		next.Version = 1
	} else {
		if current.Version != expected {
			return 0, versionConflict(next.Resource, next.ID, expected)
		}
		next.Version = expected + 1
	}
	return next.Version, nil
}

func resourceKey(resource string) string {
	return strings.ToLower(strings.TrimSpace(resource))
}

func recordKey(resource, id string) string {
	resource = resourceKey(resource)
	id = strings.TrimSpace(id)
	if resource == "" || id == "" {
		return ""
	}
	return resource + "/" + id
}

func cloneRecord(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	cp := *rec
	if rec.Attributes != nil {
		cp.Attributes = make(map[string]any, len(rec.Attributes))
		for k, v := range rec.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}
