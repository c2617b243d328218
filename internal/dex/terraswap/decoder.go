// Package terraswap implements the fee-on-output constant-product dialect
// shared by terraswap-style AMMs (including the fee-splitting whitewhale
// variant): offer-asset swap messages and cw20 send wrappers that trigger a
// swap on receipt.
package terraswap

import (
	"encoding/json"
	"fmt"

	"github.com/devlongs/cosmos-backrunner/internal/dex"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Default fee parameters for pools whose config query is unavailable.
const (
	DefaultLPFee        = 0.003
	DefaultProtocolFee  = 0.0
	DefaultFeeFromInput = false
)

type offerAsset struct {
	Amount json.RawMessage `json:"amount"`
	Info   dex.AssetInfo   `json:"info"`
}

type swapMsg struct {
	OfferAsset offerAsset `json:"offer_asset"`
}

// SendMsg is the cw20 receive-hook wrapper: the trade is executed by the
// token contract forwarding tokens to the pool named in Contract.
type SendMsg struct {
	Amount   json.RawMessage `json:"amount"`
	Contract string          `json:"contract"`
	Msg      string          `json:"msg"` // base64 embedded execute payload
}

type executePayload struct {
	Swap *swapMsg `json:"swap"`
	Send *SendMsg `json:"send"`
}

// DecodeSwaps extracts normalized swap events from a terraswap execute
// payload.
//
// For a direct swap the target pool is the declared contract and the input
// denom comes from the offer asset. For a send wrapper the message's
// declared contract is the cw20 token itself: the target pool is the
// embedded contract field and the input denom is the sending token's
// address.
func DecodeSwaps(pool *types.Pool, sender, declaredContract string, payload []byte) ([]types.Swap, error) {
	var body executePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("terraswap payload: %w", err)
	}

	switch {
	case body.Swap != nil:
		amount, err := dex.ParseAmount(body.Swap.OfferAsset.Amount)
		if err != nil {
			return nil, fmt.Errorf("terraswap swap amount: %w", err)
		}
		inputDenom := body.Swap.OfferAsset.Info.Denom()
		return []types.Swap{{
			Sender:      sender,
			Pool:        pool.Address,
			InputDenom:  inputDenom,
			InputAmount: amount,
			OutputDenom: pool.OtherDenom(inputDenom),
		}}, nil

	case body.Send != nil:
		amount, err := dex.ParseAmount(body.Send.Amount)
		if err != nil {
			return nil, fmt.Errorf("terraswap send amount: %w", err)
		}
		inputDenom := declaredContract
		return []types.Swap{{
			Sender:      sender,
			Pool:        pool.Address,
			InputDenom:  inputDenom,
			InputAmount: amount,
			OutputDenom: pool.OtherDenom(inputDenom),
		}}, nil

	default:
		return nil, nil
	}
}
