// Package engine turns decoded swap events into an executable arbitrage
// decision: bind candidate routes against the post-swap pool state, size
// the trade, and pick the most profitable cycle.
package engine

import (
	"math"
	"math/big"

	"github.com/rs/zerolog/log"

	"github.com/devlongs/cosmos-backrunner/internal/amm"
	"github.com/devlongs/cosmos-backrunner/internal/registry"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Engine evaluates arbitrage routes against pool-state snapshots.
type Engine struct {
	arbDenom string
}

// New creates an engine trading cycles in the given denom.
func New(arbDenom string) *Engine {
	return &Engine{arbDenom: arbDenom}
}

// BestRoute simulates the pending transaction against the live registry,
// binds every candidate route its swaps touch, and returns the most
// profitable one sized and ready to execute. Returns nil when no route
// clears the gas fee.
func (e *Engine) BestRoute(reg *registry.Registry, tx *types.PendingTransaction, balance *big.Int, gasFee int64) *types.Route {
	snap := reg.Simulate(tx)

	tx.Routes = tx.Routes[:0]
	seen := make(map[[3]string]bool)
	for i := range tx.Swaps {
		swap := &tx.Swaps[i]
		for _, triple := range reg.RoutesFor(swap.Pool) {
			if seen[triple] {
				continue
			}
			seen[triple] = true

			route, ok := e.bindRoute(snap, triple, swap)
			if !ok {
				continue
			}
			e.sizeRoute(route, balance, gasFee)
			if route.AmountIn.Sign() <= 0 {
				continue
			}
			e.setProfit(route)
			tx.Routes = append(tx.Routes, route)
		}
	}

	var best *types.Route
	for _, route := range tx.Routes {
		if best == nil || route.Profit.Cmp(best.Profit) > 0 {
			best = route
		}
	}
	if best == nil || best.Profit.Cmp(big.NewInt(gasFee)) <= 0 {
		return nil
	}

	log.Info().
		Str("profit", best.Profit.String()).
		Str("amount_in", best.AmountIn.String()).
		Str("optimal_amount_in", best.OptimalAmountIn.String()).
		Str("sender", tx.Sender).
		Msg("Arbitrage opportunity found")
	return best
}

// bindRoute orders the pool triple against the swap that disturbed it and
// fixes each hop's direction and reserves from the snapshot.
func (e *Engine) bindRoute(snap *registry.Registry, triple [3]string, swap *types.Swap) (*types.Route, bool) {
	ordered := orderTriple(snap, triple, swap, e.arbDenom)

	var route types.Route
	inputDenom := e.arbDenom
	for i, addr := range ordered {
		pool, ok := snap.Get(addr)
		if !ok || pool.HasZeroReserves() {
			return nil, false
		}
		if pool.Token1Denom != inputDenom && pool.Token2Denom != inputDenom {
			return nil, false
		}

		hop := &types.RoutePool{
			Pool:        pool,
			InputDenom:  inputDenom,
			OutputDenom: pool.OtherDenom(inputDenom),
			InputToken:  pool.SlotFor(inputDenom),
		}
		hop.InputReserves, hop.OutputReserves = pool.Token1Reserves, pool.Token2Reserves
		if hop.InputToken == types.Token2 {
			hop.InputReserves, hop.OutputReserves = hop.OutputReserves, hop.InputReserves
		}
		route.Pools[i] = hop
		inputDenom = hop.OutputDenom
	}

	// A bound cycle must return to the arb denom.
	if inputDenom != e.arbDenom {
		return nil, false
	}
	return &route, true
}

// orderTriple decides which way around the cycle to trade: always the
// opposite direction of the disturbing swap. The reversal test depends on
// where in the triple the swapped pool sits.
func orderTriple(snap *registry.Registry, triple [3]string, swap *types.Swap, arbDenom string) [3]string {
	index := 0
	for i, addr := range triple {
		if addr == swap.Pool {
			index = i
			break
		}
	}

	reverse := false
	switch index {
	case 0:
		reverse = swap.OutputDenom != arbDenom
	case 1:
		// Our input to the middle pool is the first pool's non-arb side.
		middleInput := ""
		if first, ok := snap.Get(triple[0]); ok {
			middleInput = first.OtherDenom(arbDenom)
		}
		reverse = swap.OutputDenom != middleInput
	case 2:
		reverse = swap.OutputDenom == arbDenom
	}

	if reverse {
		return [3]string{triple[2], triple[1], triple[0]}
	}
	return triple
}

// sizeRoute computes the profit-maximizing input and clamps it to what the
// account can spend after reserving the gas fee.
func (e *Engine) sizeRoute(route *types.Route, balance *big.Int, gasFee int64) {
	route.OptimalAmountIn = optimalAmountIn(route)
	route.AmountIn = new(big.Int).Set(route.OptimalAmountIn)

	spendable := new(big.Int).Sub(balance, big.NewInt(gasFee))
	if route.OptimalAmountIn.Sign() > 0 && route.OptimalAmountIn.Cmp(spendable) > 0 {
		route.AmountIn.Set(spendable)
	}
}

// optimalAmountIn solves the three-pool cycle for the input that maximizes
// profit, with per-hop fees applied on the input or output side as each
// pool requires. Closed form from Danos et al., arXiv:2105.02784.
func optimalAmountIn(route *types.Route) *big.Int {
	var r1, r2 [3]float64
	for i, hop := range route.Pools {
		fee := hop.Pool.LPFee + hop.Pool.ProtocolFee
		if hop.Pool.FeeFromInput {
			r1[i], r2[i] = 1-fee, 1
		} else {
			r1[i], r2[i] = 1, 1-fee
		}
	}

	a12 := toFloat(route.Pools[0].InputReserves)
	a21 := toFloat(route.Pools[0].OutputReserves)
	a23 := toFloat(route.Pools[1].InputReserves)
	a32 := toFloat(route.Pools[1].OutputReserves)
	a31 := toFloat(route.Pools[2].InputReserves)
	a13 := toFloat(route.Pools[2].OutputReserves)

	aPrime13 := (a12 * a23) / (a23 + r1[1]*r2[0]*a21)
	aPrime31 := (r1[1] * r2[1] * a21 * a32) / (a23 + r1[1]*r2[0]*a21)

	a := (aPrime13 * a31) / (a31 + r1[2]*r2[1]*aPrime31)
	aPrime := (r1[2] * r2[2] * a13 * aPrime31) / (a31 + r1[2]*r2[1]*aPrime31)

	optimal := (math.Sqrt(r1[0]*r2[0]*aPrime*a) - a) / r1[0]
	return floorToInt(optimal)
}

// setProfit walks the sized trade through all three hops and records the
// cycle's net gain.
func (e *Engine) setProfit(route *types.Route) {
	amountIn := route.AmountIn
	for _, hop := range route.Pools {
		hop.AmountIn = amountIn
		res, err := amm.Swap(hop.InputReserves, hop.OutputReserves, amountIn,
			hop.Pool.LPFee, hop.Pool.ProtocolFee, hop.Pool.FeeFromInput)
		if err != nil {
			route.Profit = big.NewInt(0)
			return
		}
		hop.AmountOut = res.AmountOut
		amountIn = res.AmountOut
	}
	route.Profit = new(big.Int).Sub(route.Pools[2].AmountOut, route.Pools[0].AmountIn)
}

func toFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

func floorToInt(v float64) *big.Int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return big.NewInt(0)
	}
	f, _ := big.NewFloat(math.Floor(v)).Int(nil)
	if f == nil {
		return big.NewInt(0)
	}
	return f
}
