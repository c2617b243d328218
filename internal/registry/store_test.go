package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	reg := FromPools(triangle())
	whale := testPool("juno1whale", types.ProtocolWhiteWhale, "uosmo", "uatom", 700, 900)
	whale.LPFee = 0.002
	whale.ProtocolFee = 0.001
	whale.FeeFromInput = false
	reg.Add(whale)
	reg.GenerateCyclicRoutes("ujuno")

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, reg))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	require.ElementsMatch(t, reg.Addresses(), loaded.Addresses())
	for _, addr := range reg.Addresses() {
		want, _ := reg.Get(addr)
		got, ok := loaded.Get(addr)
		require.True(t, ok, "pool %s", addr)
		assert.Equal(t, want.Protocol, got.Protocol)
		assert.Equal(t, want.Token1Denom, got.Token1Denom)
		assert.Equal(t, want.Token2Denom, got.Token2Denom)
		assert.Zero(t, want.Token1Reserves.Cmp(got.Token1Reserves))
		assert.Zero(t, want.Token2Reserves.Cmp(got.Token2Reserves))
		assert.Equal(t, want.LPFee, got.LPFee)
		assert.Equal(t, want.ProtocolFee, got.ProtocolFee)
		assert.Equal(t, want.FeeFromInput, got.FeeFromInput)
		assert.ElementsMatch(t, reg.RoutesFor(addr), loaded.RoutesFor(addr))
	}
}

func TestStoreSaveReplacesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	first := FromPools(triangle())
	require.NoError(t, store.Save(ctx, first))

	second := FromPools([]*types.Pool{
		testPool("juno1only", types.ProtocolWasmswap, "ujuno", "uatom", 5, 5),
	})
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"juno1only"}, loaded.Addresses())
}

func TestStoreLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.Addresses())
}
