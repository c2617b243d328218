package terraswap

import (
	"encoding/json"
	"math/big"

	"github.com/devlongs/cosmos-backrunner/internal/dex"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// swapHook is the embedded payload of a cw20 send wrapper: `{"swap":{}}`
// base64 encoded.
const swapHook = "eyJzd2FwIjp7fX0="

type offerSwap struct {
	OfferAsset struct {
		Amount string        `json:"amount"`
		Info   dex.AssetInfo `json:"info"`
	} `json:"offer_asset"`
}

type sendWrapper struct {
	Amount   string `json:"amount"`
	Contract string `json:"contract"`
	Msg      string `json:"msg"`
}

// SwapMsg builds the execute message for a native-input offer swap. The
// offered amount always travels as attached funds.
func SwapMsg(sender, contract string, inputAmount *big.Int, inputDenom string) types.MsgExecuteContract {
	var body struct {
		Swap offerSwap `json:"swap"`
	}
	body.Swap.OfferAsset.Amount = dex.FormatAmount(inputAmount)
	body.Swap.OfferAsset.Info = dex.NativeAssetInfo(inputDenom)
	payload, _ := json.Marshal(body)

	return types.MsgExecuteContract{
		Sender:   sender,
		Contract: contract,
		Msg:      json.RawMessage(payload),
		Funds:    []types.Coin{{Denom: inputDenom, Amount: dex.FormatAmount(inputAmount)}},
	}
}

// SendSwapMsg builds the cw20 send wrapper for a token-input swap: executed
// against the token contract, which forwards the amount to the pool with
// the swap hook attached.
func SendSwapMsg(sender, tokenContract, poolContract string, inputAmount *big.Int) types.MsgExecuteContract {
	var body struct {
		Send sendWrapper `json:"send"`
	}
	body.Send.Amount = dex.FormatAmount(inputAmount)
	body.Send.Contract = poolContract
	body.Send.Msg = swapHook
	payload, _ := json.Marshal(body)

	return types.MsgExecuteContract{
		Sender:   sender,
		Contract: tokenContract,
		Msg:      json.RawMessage(payload),
	}
}
