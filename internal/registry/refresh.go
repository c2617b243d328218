package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/devlongs/cosmos-backrunner/internal/dex/terraswap"
	"github.com/devlongs/cosmos-backrunner/internal/dex/wasmswap"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// StateQuerier performs smart-contract state queries against the node.
// Satisfied by the chain client.
type StateQuerier interface {
	QuerySmart(ctx context.Context, contract string, query []byte, out any) error
}

// RefreshReserves re-reads the reserves of every tracked pool as a
// bounded-concurrency batch. All-or-nothing: if any job fails the registry
// keeps the previous cycle's reserves and the error is returned for the
// caller to back off on.
func (r *Registry) RefreshReserves(ctx context.Context, q StateQuerier, workers int) error {
	pools := r.Pools()

	type reserves struct {
		address string
		token1  *big.Int
		token2  *big.Int
	}
	results := make([]reserves, len(pools))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range pools {
		i, p := i, p
		g.Go(func() error {
			t1, t2, err := queryReserves(ctx, q, p)
			if err != nil {
				return fmt.Errorf("refresh reserves for %s: %w", p.Address, err)
			}
			results[i] = reserves{address: p.Address, token1: t1, token2: t2}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Single writer: results land in the registry only after the whole
	// batch succeeded.
	for _, res := range results {
		r.UpsertReserves(res.address, res.token1, res.token2)
	}
	r.PruneRoutes()
	return nil
}

// RefreshFees re-reads the fee parameters of every tracked pool. Wasmswap
// pools that don't answer the fee query fall back to dialect defaults
// instead of failing the batch.
func (r *Registry) RefreshFees(ctx context.Context, q StateQuerier, workers int) error {
	pools := r.Pools()

	type fees struct {
		address      string
		lpFee        float64
		protocolFee  float64
		feeFromInput bool
	}
	results := make([]fees, len(pools))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range pools {
		i, p := i, p
		g.Go(func() error {
			f := fees{address: p.Address}
			switch p.Protocol {
			case types.ProtocolWasmswap:
				f.feeFromInput = true
				var doc json.RawMessage
				if err := q.QuerySmart(ctx, p.Address, wasmswap.FeesQuery(), &doc); err != nil {
					f.lpFee, f.protocolFee = wasmswap.DefaultLPFee, wasmswap.DefaultProtocolFee
				} else {
					f.lpFee, f.protocolFee = wasmswap.ParseFees(doc)
				}
			case types.ProtocolTerraswap:
				var doc json.RawMessage
				if err := q.QuerySmart(ctx, p.Address, terraswap.ConfigQuery(), &doc); err != nil {
					return fmt.Errorf("refresh fees for %s: %w", p.Address, err)
				}
				lp, err := terraswap.ParseConfigFee(doc)
				if err != nil {
					return fmt.Errorf("refresh fees for %s: %w", p.Address, err)
				}
				f.lpFee, f.protocolFee, f.feeFromInput = lp, 0, false
			case types.ProtocolWhiteWhale:
				var doc json.RawMessage
				if err := q.QuerySmart(ctx, p.Address, terraswap.WhiteWhaleConfigQuery(), &doc); err != nil {
					return fmt.Errorf("refresh fees for %s: %w", p.Address, err)
				}
				lp, protocol, err := terraswap.ParseWhiteWhaleFees(doc)
				if err != nil {
					return fmt.Errorf("refresh fees for %s: %w", p.Address, err)
				}
				f.lpFee, f.protocolFee, f.feeFromInput = lp, protocol, false
			default:
				return fmt.Errorf("refresh fees for %s: unknown protocol %q", p.Address, p.Protocol)
			}
			results[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		r.UpsertFees(res.address, res.lpFee, res.protocolFee, res.feeFromInput)
	}
	return nil
}

func queryReserves(ctx context.Context, q StateQuerier, p *types.Pool) (*big.Int, *big.Int, error) {
	var doc json.RawMessage
	switch p.Protocol {
	case types.ProtocolWasmswap:
		if err := q.QuerySmart(ctx, p.Address, wasmswap.ReservesQuery(), &doc); err != nil {
			return nil, nil, err
		}
		return wasmswap.ParseReserves(doc)
	case types.ProtocolTerraswap, types.ProtocolWhiteWhale:
		if err := q.QuerySmart(ctx, p.Address, terraswap.ReservesQuery(), &doc); err != nil {
			return nil, nil, err
		}
		return terraswap.ParseReserves(doc)
	default:
		return nil, nil, fmt.Errorf("unknown protocol %q", p.Protocol)
	}
}
