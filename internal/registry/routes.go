package registry

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// GenerateCyclicRoutes enumerates every three-pool cycle that starts and
// ends in the arb denom and registers each with all three member pools.
// Pools with a zero reserve on either side never enter the adjacency map:
// a route through an empty pool cannot be priced.
func (r *Registry) GenerateCyclicRoutes(arbDenom string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// denom -> denom -> pools connecting the pair
	adjacency := make(map[string]map[string][]string)
	connect := func(from, to, pool string) {
		if adjacency[from] == nil {
			adjacency[from] = make(map[string][]string)
		}
		adjacency[from][to] = append(adjacency[from][to], pool)
	}

	for _, addr := range r.sortedAddresses() {
		p := r.pools[addr]
		if p.HasZeroReserves() {
			log.Debug().Str("pool", addr).Msg("Excluding zero-reserve pool from route generation")
			continue
		}
		if p.Token1Denom == p.Token2Denom {
			continue
		}
		connect(p.Token1Denom, p.Token2Denom, addr)
		connect(p.Token2Denom, p.Token1Denom, addr)
	}

	r.routes = make(map[string][][3]string)
	seen := make(map[string]bool)

	for x, firstPools := range adjacency[arbDenom] {
		for y, secondPools := range adjacency[x] {
			if _, closes := adjacency[y][arbDenom]; !closes || y == arbDenom {
				continue
			}
			for _, a := range firstPools {
				for _, b := range secondPools {
					for _, c := range adjacency[y][arbDenom] {
						route := [3]string{a, b, c}
						key := canonicalKey(route)
						if seen[key] {
							continue
						}
						seen[key] = true
						r.routes[a] = append(r.routes[a], route)
						r.routes[b] = append(r.routes[b], route)
						r.routes[c] = append(r.routes[c], route)
					}
				}
			}
		}
	}
}

func (r *Registry) setRoutes(address string, routes [][3]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[address] = routes
}

// RoutesFor returns the cyclic routes registered to a pool.
func (r *Registry) RoutesFor(address string) [][3]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.routes[address]
}

// PruneRoutes drops every registered route containing a pool that has
// fallen to zero reserves since generation.
func (r *Registry) PruneRoutes() {
	r.mu.Lock()
	defer r.mu.Unlock()

	dead := func(route [3]string) bool {
		for _, addr := range route {
			p, ok := r.pools[addr]
			if !ok || p.HasZeroReserves() {
				return true
			}
		}
		return false
	}

	for addr, routes := range r.routes {
		kept := routes[:0]
		for _, route := range routes {
			if dead(route) {
				log.Debug().Str("pool", addr).Strs("route", route[:]).Msg("Dropping route through empty pool")
				continue
			}
			kept = append(kept, route)
		}
		if len(kept) == 0 {
			delete(r.routes, addr)
			continue
		}
		r.routes[addr] = kept
	}
}

func (r *Registry) sortedAddresses() []string {
	addrs := make([]string, 0, len(r.pools))
	for a := range r.pools {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return addrs
}

// canonicalKey is order-independent: the same pool triple registered from
// either direction collapses to one route.
func canonicalKey(route [3]string) string {
	members := []string{route[0], route[1], route[2]}
	sort.Strings(members)
	return strings.Join(members, "|")
}
