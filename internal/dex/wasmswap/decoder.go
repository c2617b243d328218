// Package wasmswap implements the fee-on-input constant-product dialect:
// slot-addressed swap messages, pass-through (chained) swaps, and
// allowance-gated cw20 inputs.
package wasmswap

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/devlongs/cosmos-backrunner/internal/dex"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// DefaultLPFee and DefaultProtocolFee are used when the fee query is
// unavailable.
const (
	DefaultLPFee       = 0.003
	DefaultProtocolFee = 0.0
)

type swapMsg struct {
	InputToken  types.TokenSlot `json:"input_token"`
	InputAmount json.RawMessage `json:"input_amount"`
	MinOutput   json.RawMessage `json:"min_output"`
}

type passThroughSwapMsg struct {
	InputToken       types.TokenSlot `json:"input_token"`
	InputTokenAmount json.RawMessage `json:"input_token_amount"`
	OutputAMMAddress string          `json:"output_amm_address"`
	OutputMinToken   json.RawMessage `json:"output_min_token"`
}

type executePayload struct {
	Swap            *swapMsg            `json:"swap"`
	PassThroughSwap *passThroughSwapMsg `json:"pass_through_swap"`
}

// DecodeSwaps extracts normalized swap events from a wasmswap execute
// payload. A pass-through swap yields two events, the second with an
// unresolved input amount chained to the first leg's output; when the
// second pool is untracked only the first leg is returned. Unknown payload
// shapes yield no events.
func DecodeSwaps(pool *types.Pool, sender string, payload []byte, resolver dex.PoolResolver) ([]types.Swap, error) {
	var body executePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("wasmswap payload: %w", err)
	}

	switch {
	case body.Swap != nil:
		amount, err := dex.ParseAmount(body.Swap.InputAmount)
		if err != nil {
			return nil, fmt.Errorf("wasmswap swap amount: %w", err)
		}
		return []types.Swap{swapForSlot(pool, sender, body.Swap.InputToken, amount)}, nil

	case body.PassThroughSwap != nil:
		amount, err := dex.ParseAmount(body.PassThroughSwap.InputTokenAmount)
		if err != nil {
			return nil, fmt.Errorf("wasmswap pass_through amount: %w", err)
		}
		first := swapForSlot(pool, sender, body.PassThroughSwap.InputToken, amount)

		second, ok := resolver.Get(body.PassThroughSwap.OutputAMMAddress)
		if !ok {
			return []types.Swap{first}, nil
		}
		// The second leg's input denom is whichever side of the second pool
		// continues the first leg's output denom.
		slot := types.Token2
		if first.OutputDenom == second.Token1Denom {
			slot = types.Token1
		}
		return []types.Swap{first, swapForSlot(second, sender, slot, nil)}, nil

	default:
		return nil, nil
	}
}

func swapForSlot(pool *types.Pool, sender string, slot types.TokenSlot, amount *big.Int) types.Swap {
	inputDenom := pool.Token1Denom
	outputDenom := pool.Token2Denom
	if slot == types.Token2 {
		inputDenom, outputDenom = outputDenom, inputDenom
	}
	return types.Swap{
		Sender:      sender,
		Pool:        pool.Address,
		InputDenom:  inputDenom,
		InputAmount: amount,
		OutputDenom: outputDenom,
	}
}
