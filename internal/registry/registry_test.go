package registry

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

func testPool(address string, protocol types.Protocol, denom1, denom2 string, r1, r2 int64) *types.Pool {
	return &types.Pool{
		Address:        address,
		Protocol:       protocol,
		Token1Denom:    denom1,
		Token2Denom:    denom2,
		Token1Reserves: big.NewInt(r1),
		Token2Reserves: big.NewInt(r2),
		LPFee:          0.003,
		ProtocolFee:    0,
		FeeFromInput:   true,
	}
}

func TestSnapshotIsolatesReserves(t *testing.T) {
	reg := FromPools([]*types.Pool{
		testPool("juno1pool", types.ProtocolWasmswap, "ujuno", "uatom", 100, 100),
	})

	snap := reg.Snapshot()
	p, ok := snap.Get("juno1pool")
	require.True(t, ok)
	p.Token1Reserves = big.NewInt(1)

	live, ok := reg.Get("juno1pool")
	require.True(t, ok)
	assert.Equal(t, big.NewInt(100), live.Token1Reserves)
}

func TestSimulateAppliesSwap(t *testing.T) {
	reg := FromPools([]*types.Pool{
		testPool("juno1pool", types.ProtocolWasmswap, "ujuno", "uatom", 100, 100),
	})

	tx := &types.PendingTransaction{
		Swaps: []types.Swap{{
			Sender:      "juno1sender",
			Pool:        "juno1pool",
			InputDenom:  "ujuno",
			InputAmount: big.NewInt(10),
			OutputDenom: "uatom",
		}},
	}

	snap := reg.Simulate(tx)
	p, ok := snap.Get("juno1pool")
	require.True(t, ok)
	assert.Equal(t, big.NewInt(110), p.Token1Reserves)
	assert.Equal(t, big.NewInt(91), p.Token2Reserves)

	// Live registry untouched.
	live, _ := reg.Get("juno1pool")
	assert.Equal(t, big.NewInt(100), live.Token1Reserves)
	assert.Equal(t, big.NewInt(100), live.Token2Reserves)
}

func TestSimulateReversedDirection(t *testing.T) {
	reg := FromPools([]*types.Pool{
		testPool("juno1pool", types.ProtocolWasmswap, "uatom", "ujuno", 100, 100),
	})

	tx := &types.PendingTransaction{
		Swaps: []types.Swap{{
			Pool:        "juno1pool",
			InputDenom:  "ujuno",
			InputAmount: big.NewInt(10),
			OutputDenom: "uatom",
		}},
	}

	snap := reg.Simulate(tx)
	p, _ := snap.Get("juno1pool")
	assert.Equal(t, big.NewInt(91), p.Token1Reserves)
	assert.Equal(t, big.NewInt(110), p.Token2Reserves)
}

func TestSimulateChainsUnresolvedAmount(t *testing.T) {
	reg := FromPools([]*types.Pool{
		testPool("juno1a", types.ProtocolWasmswap, "ujuno", "uatom", 100, 100),
		testPool("juno1b", types.ProtocolWasmswap, "uatom", "uosmo", 1000, 1000),
	})

	// Second leg of a pass-through swap carries no amount; it takes the
	// first leg's output (9 uatom for 10 ujuno into a 100/100 pool).
	tx := &types.PendingTransaction{
		Swaps: []types.Swap{
			{Pool: "juno1a", InputDenom: "ujuno", InputAmount: big.NewInt(10), OutputDenom: "uatom"},
			{Pool: "juno1b", InputDenom: "uatom", OutputDenom: "uosmo"},
		},
	}

	snap := reg.Simulate(tx)
	b, _ := snap.Get("juno1b")
	assert.Equal(t, big.NewInt(1009), b.Token1Reserves)
	assert.True(t, b.Token2Reserves.Cmp(big.NewInt(1000)) < 0)
}

func TestSimulateSkipsUnknownPool(t *testing.T) {
	reg := FromPools([]*types.Pool{
		testPool("juno1pool", types.ProtocolWasmswap, "ujuno", "uatom", 100, 100),
	})

	tx := &types.PendingTransaction{
		Swaps: []types.Swap{
			{Pool: "juno1ghost", InputDenom: "ujuno", InputAmount: big.NewInt(10), OutputDenom: "uatom"},
		},
	}

	snap := reg.Simulate(tx)
	p, _ := snap.Get("juno1pool")
	assert.Equal(t, big.NewInt(100), p.Token1Reserves)
}

func TestUpsertReservesIgnoresUnknownPool(t *testing.T) {
	reg := New()
	reg.UpsertReserves("juno1ghost", big.NewInt(1), big.NewInt(1))
	_, ok := reg.Get("juno1ghost")
	assert.False(t, ok)
}
