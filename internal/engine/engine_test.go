package engine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlongs/cosmos-backrunner/internal/registry"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

func fixturePool(address, denom1, denom2, r1, r2 string, lpFee float64) *types.Pool {
	reserves1, _ := new(big.Int).SetString(r1, 10)
	reserves2, _ := new(big.Int).SetString(r2, 10)
	return &types.Pool{
		Address:        address,
		Protocol:       types.ProtocolWasmswap,
		Token1Denom:    denom1,
		Token2Denom:    denom2,
		Token1Reserves: reserves1,
		Token2Reserves: reserves2,
		LPFee:          lpFee,
		FeeFromInput:   true,
	}
}

// fixtureRegistry is a triangle with real mainnet-scale reserves; the
// optimal input and profit below were computed against the reference
// closed-form solution.
func fixtureRegistry() *registry.Registry {
	reg := registry.FromPools([]*types.Pool{
		fixturePool("juno1first", "ujuno", "uatom", "191801648570", "18986995439401", 0.002),
		fixturePool("juno1second", "uatom", "uosmo", "596032233203", "72765460003038", 0.00535),
		fixturePool("juno1third", "uosmo", "ujuno", "165624820984787", "13901565323", 0.002),
	})
	reg.GenerateCyclicRoutes("ujuno")
	return reg
}

// disturbingSwap is an unresolved swap event against the first pool whose
// output lands in the arb denom, so the cycle trades forward from ujuno.
func disturbingSwap() types.Swap {
	return types.Swap{
		Sender:      "juno1whale",
		Pool:        "juno1first",
		InputDenom:  "uatom",
		OutputDenom: "ujuno",
	}
}

func TestOptimalAmountIn(t *testing.T) {
	reg := fixtureRegistry()
	route := &types.Route{}
	for i, addr := range [3]string{"juno1first", "juno1second", "juno1third"} {
		p, _ := reg.Get(addr)
		hop := &types.RoutePool{Pool: p}
		hop.InputReserves, hop.OutputReserves = p.Token1Reserves, p.Token2Reserves
		route.Pools[i] = hop
	}

	assert.Equal(t, big.NewInt(10126390), optimalAmountIn(route))
}

func TestBestRouteFindsProfitableCycle(t *testing.T) {
	reg := fixtureRegistry()
	e := New("ujuno")
	tx := &types.PendingTransaction{Sender: "juno1whale", Swaps: []types.Swap{disturbingSwap()}}

	best := e.BestRoute(reg, tx, big.NewInt(1_000_000_000), 10_000)
	require.NotNil(t, best)
	assert.Equal(t, big.NewInt(10126390), best.OptimalAmountIn)
	assert.Equal(t, big.NewInt(10126390), best.AmountIn)
	assert.Equal(t, big.NewInt(24852), best.Profit)

	assert.Equal(t, "juno1first", best.Pools[0].Pool.Address)
	assert.Equal(t, "ujuno", best.Pools[0].InputDenom)
	assert.Equal(t, "ujuno", best.Pools[2].OutputDenom)
	assert.Equal(t, big.NewInt(1000382805), best.Pools[0].AmountOut)
	assert.Equal(t, big.NewInt(121273977120), best.Pools[1].AmountOut)
}

func TestBestRouteClampsToSpendableBalance(t *testing.T) {
	reg := fixtureRegistry()
	e := New("ujuno")
	tx := &types.PendingTransaction{Swaps: []types.Swap{disturbingSwap()}}

	gasFee := int64(10_000)
	best := e.BestRoute(reg, tx, big.NewInt(5_000_000+gasFee), gasFee)
	require.NotNil(t, best)
	assert.Equal(t, big.NewInt(5_000_000), best.AmountIn)
	assert.Equal(t, big.NewInt(18490), best.Profit)
}

func TestBestRouteRequiresProfitAboveGasFee(t *testing.T) {
	reg := fixtureRegistry()
	e := New("ujuno")
	tx := &types.PendingTransaction{Swaps: []types.Swap{disturbingSwap()}}

	assert.Nil(t, e.BestRoute(reg, tx, big.NewInt(1_000_000_000), 30_000))
}

func TestBestRouteNoRoutesForSwappedPool(t *testing.T) {
	reg := fixtureRegistry()
	e := New("ujuno")
	tx := &types.PendingTransaction{Swaps: []types.Swap{{
		Pool:        "juno1untracked",
		InputDenom:  "ujuno",
		OutputDenom: "uatom",
	}}}

	assert.Nil(t, e.BestRoute(reg, tx, big.NewInt(1_000_000_000), 10_000))
}

func TestOrderTripleReversals(t *testing.T) {
	reg := fixtureRegistry()
	triple := [3]string{"juno1first", "juno1second", "juno1third"}

	cases := []struct {
		name    string
		swap    types.Swap
		reverse bool
	}{
		{
			name:    "first pool, output is arb denom",
			swap:    types.Swap{Pool: "juno1first", OutputDenom: "ujuno"},
			reverse: false,
		},
		{
			name:    "first pool, output leaves arb denom",
			swap:    types.Swap{Pool: "juno1first", OutputDenom: "uatom"},
			reverse: true,
		},
		{
			name:    "middle pool, output continues the cycle",
			swap:    types.Swap{Pool: "juno1second", OutputDenom: "uatom"},
			reverse: false,
		},
		{
			name:    "middle pool, output against the cycle",
			swap:    types.Swap{Pool: "juno1second", OutputDenom: "uosmo"},
			reverse: true,
		},
		{
			name:    "last pool, output is not arb denom",
			swap:    types.Swap{Pool: "juno1third", OutputDenom: "uosmo"},
			reverse: false,
		},
		{
			name:    "last pool, output is arb denom",
			swap:    types.Swap{Pool: "juno1third", OutputDenom: "ujuno"},
			reverse: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := orderTriple(reg, triple, &tc.swap, "ujuno")
			want := triple
			if tc.reverse {
				want = [3]string{triple[2], triple[1], triple[0]}
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestBestRouteAccountsForTargetSwapImpact(t *testing.T) {
	// A resolved target swap shifts the simulated reserves, so the sized
	// trade must differ from the undisturbed fixture.
	reg := fixtureRegistry()
	e := New("ujuno")
	tx := &types.PendingTransaction{Swaps: []types.Swap{{
		Pool:        "juno1first",
		InputDenom:  "uatom",
		InputAmount: big.NewInt(50_000_000_000),
		OutputDenom: "ujuno",
	}}}

	best := e.BestRoute(reg, tx, big.NewInt(100_000_000_000), 10_000)
	require.NotNil(t, best)
	assert.NotEqual(t, big.NewInt(10126390), best.OptimalAmountIn)
	assert.True(t, best.Profit.Cmp(big.NewInt(10_000)) > 0)
}

// cycleRoute binds the ordered cycle walking each pool from the given
// input denom, whichever token slot holds it.
func cycleRoute(reg *registry.Registry, addrs [3]string, inputDenoms [3]string) *types.Route {
	route := &types.Route{}
	for i, addr := range addrs {
		p, _ := reg.Get(addr)
		hop := &types.RoutePool{
			Pool:        p,
			InputDenom:  inputDenoms[i],
			OutputDenom: p.OtherDenom(inputDenoms[i]),
		}
		hop.InputReserves, hop.OutputReserves = p.Token1Reserves, p.Token2Reserves
		if p.SlotFor(inputDenoms[i]) == types.Token2 {
			hop.InputReserves, hop.OutputReserves = p.Token2Reserves, p.Token1Reserves
		}
		route.Pools[i] = hop
	}
	return route
}

var (
	fixtureAddrs  = [3]string{"juno1first", "juno1second", "juno1third"}
	fixtureDenoms = [3]string{"ujuno", "uatom", "uosmo"}
)

func TestOptimalAmountInMonotoneInFees(t *testing.T) {
	base := optimalAmountIn(cycleRoute(fixtureRegistry(), fixtureAddrs, fixtureDenoms))
	require.Equal(t, big.NewInt(10126390), base)

	cases := []struct {
		name          string
		pool          int
		lpDelta       float64
		protocolDelta float64
	}{
		{"first pool lp fee", 0, 0.001, 0},
		{"middle pool lp fee", 1, 0.001, 0},
		{"last pool lp fee", 2, 0.001, 0},
		{"first pool protocol fee", 0, 0, 0.0005},
		{"middle pool protocol fee", 1, 0, 0.0005},
		{"last pool protocol fee", 2, 0, 0.0005},
		{"fee bump past profitability", 2, 0.01, 0.005},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := fixtureRegistry()
			p, _ := reg.Get(fixtureAddrs[tc.pool])
			reg.UpsertFees(fixtureAddrs[tc.pool],
				p.LPFee+tc.lpDelta, p.ProtocolFee+tc.protocolDelta, p.FeeFromInput)

			got := optimalAmountIn(cycleRoute(reg, fixtureAddrs, fixtureDenoms))
			assert.True(t, got.Cmp(base) <= 0,
				"optimum %s exceeds %s after raising a fee", got, base)
		})
	}
}

func TestOptimalAmountInUnchangedByTokenRelabeling(t *testing.T) {
	// The same cycle with every pool's token slots stored in the opposite
	// order; binding is by trade direction, so the optimum is identical.
	relabeled := registry.FromPools([]*types.Pool{
		fixturePool("juno1first", "uatom", "ujuno", "18986995439401", "191801648570", 0.002),
		fixturePool("juno1second", "uosmo", "uatom", "72765460003038", "596032233203", 0.00535),
		fixturePool("juno1third", "ujuno", "uosmo", "13901565323", "165624820984787", 0.002),
	})
	relabeled.GenerateCyclicRoutes("ujuno")

	base := optimalAmountIn(cycleRoute(fixtureRegistry(), fixtureAddrs, fixtureDenoms))
	got := optimalAmountIn(cycleRoute(relabeled, fixtureAddrs, fixtureDenoms))
	assert.Equal(t, base, got)

	e := New("ujuno")
	tx := &types.PendingTransaction{Swaps: []types.Swap{disturbingSwap()}}
	best := e.BestRoute(relabeled, tx, big.NewInt(1_000_000_000), 10_000)
	require.NotNil(t, best)
	assert.Equal(t, big.NewInt(10126390), best.OptimalAmountIn)
	assert.Equal(t, big.NewInt(24852), best.Profit)
}
