package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/solsim/pkg/domain"
	"github.com/aretw0/solsim/pkg/results"
)

// RunResultStoreContract runs a suite of tests to verify that a ResultStore
// implementation adheres to the defined interface contract.
func RunResultStoreContract(t *testing.T, store ResultStore) {
	ctx := context.Background()
	executionID := "contract-test-" + time.Now().Format("20060102150405")

	table := results.New([]domain.State{
		{"run": 0, "step": 0, "x": 0, "label": "start", "ratio": 0.5},
		{"run": 0, "step": 1, "x": 1, "label": "next", "ratio": 1.25},
	})

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, executionID, table), "Save should not return error")

		loaded, err := store.Load(ctx, executionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, table.Columns(), loaded.Columns())
		assert.Equal(t, table.Len(), loaded.Len())
		assert.Equal(t, "next", loaded.Record(1)["label"])
		assert.Equal(t, 1, loaded.Record(1).Step())
		assert.InDelta(t, 1.25, loaded.Record(1)["ratio"], 1e-9)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		smaller := results.New([]domain.State{{"run": 0, "step": 0, "x": 7}})
		require.NoError(t, store.Save(ctx, executionID, smaller))

		loaded, err := store.Load(ctx, executionID)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Len())
		assert.Equal(t, []string{"run", "step", "x"}, loaded.Columns())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+executionID)
		assert.ErrorIs(t, err, ErrResultsNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, executionID, table))
		require.NoError(t, store.Delete(ctx, executionID), "Delete should not return error")

		_, err := store.Load(ctx, executionID)
		assert.ErrorIs(t, err, ErrResultsNotFound, "Load after Delete should return ErrResultsNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := executionID + "-1"
		id2 := executionID + "-2"
		require.NoError(t, store.Save(ctx, id1, table))
		require.NoError(t, store.Save(ctx, id2, table))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
