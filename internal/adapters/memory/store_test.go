package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/solsim/internal/adapters/memory"
	"github.com/aretw0/solsim/pkg/domain"
	"github.com/aretw0/solsim/pkg/ports"
	"github.com/aretw0/solsim/pkg/results"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunResultStoreContract(t, memory.New())
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	records := []domain.State{{"run": 0, "step": 0, "x": 1}}

	require.NoError(t, store.Save(ctx, "a", results.New(records)))
	records[0]["x"] = 99

	loaded, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Record(0)["x"])
}
