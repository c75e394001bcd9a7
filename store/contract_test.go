package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the Store semantics every backend must share.
// Callers hand in a fresh, empty store.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing record", func(t *testing.T) {
		rec, err := s.Load(ctx, "ticket", "nope")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("first save requires version zero", func(t *testing.T) {
		_, err := s.SaveIfVersion(ctx, &Record{ID: "fresh-1", Resource: "ticket", State: "pending"}, 3)
		require.Error(t, err)
		assert.True(t, IsVersionConflict(err))

		version, err := s.SaveIfVersion(ctx, &Record{ID: "fresh-1", Resource: "ticket", State: "pending"}, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), version)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		version, err := s.SaveIfVersion(ctx, &Record{
			ID:         "doc-1",
			Resource:   "Document",
			State:      " :Draft ",
			Attributes: map[string]any{"title": "q3 report"},
		}, 0)
		require.NoError(t, err)
		require.Equal(t, int64(1), version)

		rec, err := s.Load(ctx, "document", "doc-1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "document", rec.Resource)
		assert.Equal(t, "draft", rec.State)
		assert.Equal(t, int64(1), rec.Version)
		assert.Equal(t, "q3 report", rec.Attributes["title"])
		assert.False(t, rec.UpdatedAt.IsZero())
	})

	t.Run("stale write rejected", func(t *testing.T) {
		_, err := s.SaveIfVersion(ctx, &Record{ID: "doc-2", Resource: "document", State: "draft"}, 0)
		require.NoError(t, err)

		_, err = s.SaveIfVersion(ctx, &Record{ID: "doc-2", Resource: "document", State: "submitted"}, 0)
		require.Error(t, err)
		assert.True(t, IsVersionConflict(err))

		rec, err := s.Load(ctx, "document", "doc-2")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "draft", rec.State)
		assert.Equal(t, int64(1), rec.Version)
	})

	t.Run("sequential saves bump version", func(t *testing.T) {
		version, err := s.SaveIfVersion(ctx, &Record{ID: "doc-3", Resource: "document", State: "draft"}, 0)
		require.NoError(t, err)
		require.Equal(t, int64(1), version)

		version, err = s.SaveIfVersion(ctx, &Record{ID: "doc-3", Resource: "document", State: "submitted"}, 1)
		require.NoError(t, err)
		require.Equal(t, int64(2), version)

		version, err = s.SaveIfVersion(ctx, &Record{ID: "doc-3", Resource: "document", State: "approved"}, 2)
		require.NoError(t, err)
		require.Equal(t, int64(3), version)

		rec, err := s.Load(ctx, "document", "doc-3")
		require.NoError(t, err)
		assert.Equal(t, "approved", rec.State)
		assert.Equal(t, int64(3), rec.Version)
	})

	t.Run("loaded records are copies", func(t *testing.T) {
		_, err := s.SaveIfVersion(ctx, &Record{
			ID:         "doc-4",
			Resource:   "document",
			State:      "draft",
			Attributes: map[string]any{"owner": "ana"},
		}, 0)
		require.NoError(t, err)

		rec, err := s.Load(ctx, "document", "doc-4")
		require.NoError(t, err)
		rec.State = "mutated"
		rec.Attributes["owner"] = "mallory"

		again, err := s.Load(ctx, "document", "doc-4")
		require.NoError(t, err)
		assert.Equal(t, "draft", again.State)
		assert.Equal(t, "ana", again.Attributes["owner"])
	})

	t.Run("invalid records rejected", func(t *testing.T) {
		_, err := s.SaveIfVersion(ctx, nil, 0)
		assert.Error(t, err)

		_, err = s.SaveIfVersion(ctx, &Record{Resource: "document", State: "draft"}, 0)
		require.Error(t, err)
		assert.False(t, IsVersionConflict(err))

		_, err = s.SaveIfVersion(ctx, &Record{ID: "doc-5", Resource: "document"}, 0)
		assert.Error(t, err)

		_, err = s.SaveIfVersion(ctx, &Record{ID: "doc-6", State: "draft"}, 0)
		assert.Error(t, err)
	})

	t.Run("transaction commits staged writes", func(t *testing.T) {
		err := s.RunInTransaction(ctx, func(tx Tx) error {
			if _, err := tx.SaveIfVersion(ctx, &Record{ID: "tx-1", Resource: "order", State: "draft"}, 0); err != nil {
				return err
			}
			rec, err := tx.Load(ctx, "order", "tx-1")
			if err != nil {
				return err
			}
			rec.State = "submitted"
			_, err = tx.SaveIfVersion(ctx, rec, rec.Version)
			return err
		})
		require.NoError(t, err)

		rec, err := s.Load(ctx, "order", "tx-1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "submitted", rec.State)
		assert.Equal(t, int64(2), rec.Version)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.RunInTransaction(ctx, func(tx Tx) error {
			if _, err := tx.SaveIfVersion(ctx, &Record{ID: "tx-2", Resource: "order", State: "draft"}, 0); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		rec, err := s.Load(ctx, "order", "tx-2")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("resources are isolated", func(t *testing.T) {
		_, err := s.SaveIfVersion(ctx, &Record{ID: "shared-1", Resource: "invoice", State: "open"}, 0)
		require.NoError(t, err)
		_, err = s.SaveIfVersion(ctx, &Record{ID: "shared-1", Resource: "receipt", State: "issued"}, 0)
		require.NoError(t, err)

		invoice, err := s.Load(ctx, "invoice", "shared-1")
		require.NoError(t, err)
		receipt, err := s.Load(ctx, "receipt", "shared-1")
		require.NoError(t, err)
		assert.Equal(t, "open", invoice.State)
		assert.Equal(t, "issued", receipt.State)
	})
}
