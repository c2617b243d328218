package registry

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// fakeQuerier answers smart queries from a canned contract -> response map.
type fakeQuerier struct {
	responses map[string]string
	errs      map[string]error
}

func (f *fakeQuerier) QuerySmart(_ context.Context, contract string, _ []byte, out any) error {
	if err, ok := f.errs[contract]; ok {
		return err
	}
	doc, ok := f.responses[contract]
	if !ok {
		return errors.New("no canned response")
	}
	return json.Unmarshal([]byte(doc), out)
}

func TestRefreshReservesUpdatesAllPools(t *testing.T) {
	reg := FromPools([]*types.Pool{
		testPool("juno1wasm", types.ProtocolWasmswap, "ujuno", "uatom", 100, 100),
		testPool("juno1terra", types.ProtocolTerraswap, "uatom", "uosmo", 100, 100),
	})
	q := &fakeQuerier{responses: map[string]string{
		"juno1wasm":  `{"token1_reserve":"110","token2_reserve":"91"}`,
		"juno1terra": `{"assets":[{"amount":"2000","info":{"native_token":{"denom":"uatom"}}},{"amount":"3000","info":{"native_token":{"denom":"uosmo"}}}]}`,
	}}

	require.NoError(t, reg.RefreshReserves(context.Background(), q, 2))

	wasm, _ := reg.Get("juno1wasm")
	assert.Equal(t, big.NewInt(110), wasm.Token1Reserves)
	assert.Equal(t, big.NewInt(91), wasm.Token2Reserves)

	terra, _ := reg.Get("juno1terra")
	assert.Equal(t, big.NewInt(2000), terra.Token1Reserves)
	assert.Equal(t, big.NewInt(3000), terra.Token2Reserves)
}

func TestRefreshReservesFailedBatchKeepsStaleValues(t *testing.T) {
	reg := FromPools([]*types.Pool{
		testPool("juno1good", types.ProtocolWasmswap, "ujuno", "uatom", 100, 100),
		testPool("juno1bad", types.ProtocolWasmswap, "uatom", "uosmo", 200, 200),
	})
	q := &fakeQuerier{
		responses: map[string]string{
			"juno1good": `{"token1_reserve":"999","token2_reserve":"999"}`,
		},
		errs: map[string]error{"juno1bad": errors.New("rpc timeout")},
	}

	err := reg.RefreshReserves(context.Background(), q, 2)
	require.Error(t, err)

	// The batch failed as a whole: even the pool that answered keeps its
	// previous reserves.
	good, _ := reg.Get("juno1good")
	assert.Equal(t, big.NewInt(100), good.Token1Reserves)
	bad, _ := reg.Get("juno1bad")
	assert.Equal(t, big.NewInt(200), bad.Token1Reserves)
}

func TestRefreshFees(t *testing.T) {
	reg := FromPools([]*types.Pool{
		testPool("juno1wasm", types.ProtocolWasmswap, "ujuno", "uatom", 100, 100),
		testPool("juno1loop", types.ProtocolTerraswap, "uatom", "uosmo", 100, 100),
		testPool("juno1whale", types.ProtocolWhiteWhale, "uosmo", "ujuno", 100, 100),
	})
	q := &fakeQuerier{responses: map[string]string{
		"juno1wasm":  `{"lp_fee_percent":"0.2","protocol_fee_percent":"0.1"}`,
		"juno1loop":  `{"commission_rate":"0.0035"}`,
		"juno1whale": `{"pool_fees":{"swap_fee":{"share":"0.002"},"protocol_fee":{"share":"0.001"}}}`,
	}}

	require.NoError(t, reg.RefreshFees(context.Background(), q, 3))

	wasm, _ := reg.Get("juno1wasm")
	assert.InDelta(t, 0.002, wasm.LPFee, 1e-12)
	assert.InDelta(t, 0.001, wasm.ProtocolFee, 1e-12)
	assert.True(t, wasm.FeeFromInput)

	loop, _ := reg.Get("juno1loop")
	assert.InDelta(t, 0.0035, loop.LPFee, 1e-12)
	assert.Zero(t, loop.ProtocolFee)
	assert.False(t, loop.FeeFromInput)

	whale, _ := reg.Get("juno1whale")
	assert.InDelta(t, 0.002, whale.LPFee, 1e-12)
	assert.InDelta(t, 0.001, whale.ProtocolFee, 1e-12)
	assert.False(t, whale.FeeFromInput)
}

func TestRefreshFeesWasmswapFallsBackToDefaults(t *testing.T) {
	reg := FromPools([]*types.Pool{
		testPool("juno1old", types.ProtocolWasmswap, "ujuno", "uatom", 100, 100),
	})
	q := &fakeQuerier{errs: map[string]error{"juno1old": errors.New("query wasm contract failed")}}

	require.NoError(t, reg.RefreshFees(context.Background(), q, 1))

	p, _ := reg.Get("juno1old")
	assert.InDelta(t, 0.003, p.LPFee, 1e-12)
	assert.Zero(t, p.ProtocolFee)
}
