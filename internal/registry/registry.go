// Package registry holds the authoritative set of tracked pools and their
// pre-registered cyclic routes. The live registry has a single writer (the
// refresh jobs); everything downstream of Simulate works on private deep
// copies and never writes back.
package registry

import (
	"math/big"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/devlongs/cosmos-backrunner/internal/amm"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Registry is the in-memory pool catalog.
type Registry struct {
	mu     sync.RWMutex
	pools  map[string]*types.Pool
	routes map[string][][3]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		pools:  make(map[string]*types.Pool),
		routes: make(map[string][][3]string),
	}
}

// FromPools creates a registry seeded with the given pools.
func FromPools(pools []*types.Pool) *Registry {
	r := New()
	for _, p := range pools {
		r.pools[p.Address] = p
	}
	return r
}

// Get returns the pool with the given contract address.
func (r *Registry) Get(address string) (*types.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[address]
	return p, ok
}

// Add inserts or replaces a pool.
func (r *Registry) Add(p *types.Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[p.Address] = p
}

// Addresses returns all pool addresses in deterministic order.
func (r *Registry) Addresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addrs := make([]string, 0, len(r.pools))
	for a := range r.pools {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return addrs
}

// Pools returns all pools in deterministic address order.
func (r *Registry) Pools() []*types.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addrs := make([]string, 0, len(r.pools))
	for a := range r.pools {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	pools := make([]*types.Pool, 0, len(addrs))
	for _, a := range addrs {
		pools = append(pools, r.pools[a])
	}
	return pools
}

// UpsertReserves replaces the reserves of a pool.
func (r *Registry) UpsertReserves(address string, token1, token2 *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[address]
	if !ok {
		return
	}
	p.Token1Reserves = token1
	p.Token2Reserves = token2
}

// UpsertFees replaces the fee parameters of a pool.
func (r *Registry) UpsertFees(address string, lpFee, protocolFee float64, feeFromInput bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[address]
	if !ok {
		return
	}
	p.LPFee = lpFee
	p.ProtocolFee = protocolFee
	p.FeeFromInput = feeFromInput
}

// Snapshot returns a deep copy of the registry. The copy owns its pools;
// route triples are immutable after generation and are shared.
func (r *Registry) Snapshot() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := New()
	for addr, p := range r.pools {
		cp.pools[addr] = p.Clone()
	}
	for addr, routes := range r.routes {
		cp.routes[addr] = routes
	}
	return cp
}

// Simulate returns a snapshot with every swap of the pending transaction
// applied in order. A swap with an unresolved input amount takes the prior
// leg's output. Swaps that cannot execute (unknown pool, non-positive
// amount) are skipped; the live registry is never touched.
func (r *Registry) Simulate(tx *types.PendingTransaction) *Registry {
	snap := r.Snapshot()

	var prevOut *big.Int
	for i := range tx.Swaps {
		swap := &tx.Swaps[i]
		pool, ok := snap.pools[swap.Pool]
		if !ok {
			continue
		}

		amountIn := swap.InputAmount
		if amountIn == nil {
			amountIn = prevOut
		}

		reservesIn, reservesOut := pool.Token1Reserves, pool.Token2Reserves
		if pool.SlotFor(swap.InputDenom) == types.Token2 {
			reservesIn, reservesOut = reservesOut, reservesIn
		}

		res, err := amm.Swap(reservesIn, reservesOut, amountIn, pool.LPFee, pool.ProtocolFee, pool.FeeFromInput)
		if err != nil {
			log.Debug().Err(err).Str("pool", swap.Pool).Msg("Skipping unexecutable swap in simulation")
			prevOut = nil
			continue
		}

		if pool.SlotFor(swap.InputDenom) == types.Token1 {
			pool.Token1Reserves = res.NewReservesIn
			pool.Token2Reserves = res.NewReservesOut
		} else {
			pool.Token1Reserves = res.NewReservesOut
			pool.Token2Reserves = res.NewReservesIn
		}
		prevOut = res.AmountOut
	}
	return snap
}
