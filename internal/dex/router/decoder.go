// Package router decodes multi-hop swap-operation messages. A router
// contract is not itself a pool: each hop names an offer/ask denom pair
// that is resolved to a concrete tracked pool through a pair index built
// once per router instance.
package router

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/devlongs/cosmos-backrunner/internal/dex"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Decoder resolves hop descriptors against the pools of one protocol.
type Decoder struct {
	address   string
	pairIndex map[string]string // sorted denom pair -> pool address
}

// New builds a router decoder for the given router contract, indexing every
// pool of the matching protocol by its denom pair.
func New(address string, protocol types.Protocol, pools []*types.Pool) *Decoder {
	idx := make(map[string]string, len(pools))
	for _, p := range pools {
		if p.Protocol != protocol {
			continue
		}
		idx[pairKey(p.Token1Denom, p.Token2Denom)] = p.Address
	}
	return &Decoder{address: address, pairIndex: idx}
}

// Address returns the router contract address.
func (d *Decoder) Address() string {
	return d.address
}

type operation struct {
	OfferAssetInfo dex.AssetInfo `json:"offer_asset_info"`
	AskAssetInfo   dex.AssetInfo `json:"ask_asset_info"`
}

type swapOperations struct {
	Operations []map[string]operation `json:"operations"`
}

type executePayload struct {
	ExecuteSwapOperations *swapOperations    `json:"execute_swap_operations"`
	Send                  *terraswapSendStub `json:"send"`
}

type terraswapSendStub struct {
	Amount json.RawMessage `json:"amount"`
	Msg    string          `json:"msg"`
}

// DecodeSwaps extracts one normalized swap event per hop. The first hop's
// input amount comes from the attached funds (or the send wrapper's
// amount); later hops are unresolved and chain to the previous hop's
// output during simulation. Hops whose denom pair has no tracked pool make
// the whole message undecodable (returns no swaps): a partial hop list
// cannot be simulated.
func (d *Decoder) DecodeSwaps(sender string, payload []byte, funds []types.Coin) ([]types.Swap, error) {
	var body executePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("router payload: %w", err)
	}

	ops := body.ExecuteSwapOperations
	firstAmount := func() (v []byte) {
		if len(funds) > 0 {
			return []byte(funds[0].Amount)
		}
		return nil
	}()

	// A cw20 send wrapper carries the operations in its embedded payload
	// and the first-hop amount on the wrapper.
	if ops == nil && body.Send != nil {
		embedded, err := base64.StdEncoding.DecodeString(body.Send.Msg)
		if err != nil {
			return nil, fmt.Errorf("router send msg: %w", err)
		}
		var inner struct {
			ExecuteSwapOperations *swapOperations `json:"execute_swap_operations"`
		}
		if err := json.Unmarshal(embedded, &inner); err != nil {
			return nil, fmt.Errorf("router send payload: %w", err)
		}
		ops = inner.ExecuteSwapOperations
		firstAmount = []byte(body.Send.Amount)
	}

	if ops == nil {
		return nil, nil
	}

	var swaps []types.Swap
	for i, op := range ops.Operations {
		hop, ok := singleOperation(op)
		if !ok {
			return nil, fmt.Errorf("router operation %d: unrecognized shape", i)
		}
		inputDenom := hop.OfferAssetInfo.Denom()
		outputDenom := hop.AskAssetInfo.Denom()
		pool, ok := d.pairIndex[pairKey(inputDenom, outputDenom)]
		if !ok {
			return nil, nil
		}

		swap := types.Swap{
			Sender:      sender,
			Pool:        pool,
			InputDenom:  inputDenom,
			OutputDenom: outputDenom,
		}
		if i == 0 && len(firstAmount) > 0 {
			amount, err := dex.ParseAmount(firstAmount)
			if err != nil {
				return nil, fmt.Errorf("router first hop amount: %w", err)
			}
			swap.InputAmount = amount
		}
		swaps = append(swaps, swap)
	}
	return swaps, nil
}

// singleOperation unwraps the per-protocol operation key (eg "terra_swap",
// "astro_swap") around a hop descriptor.
func singleOperation(op map[string]operation) (operation, bool) {
	for _, v := range op {
		return v, true
	}
	return operation{}, false
}

func pairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "/" + pair[1]
}
