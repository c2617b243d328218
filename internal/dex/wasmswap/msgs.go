package wasmswap

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// SwapMsg builds the execute message for a slot-addressed swap. Native
// inputs travel as attached funds; cw20 inputs rely on a prior allowance
// grant.
func SwapMsg(sender, contract string, inputToken types.TokenSlot, inputAmount *big.Int, inputDenom string, minOutput *big.Int, native bool) types.MsgExecuteContract {
	payload := fmt.Sprintf(`{"swap":{"input_token":%q,"input_amount":%q,"min_output":%q}}`,
		inputToken, inputAmount.String(), minOutput.String())

	msg := types.MsgExecuteContract{
		Sender:   sender,
		Contract: contract,
		Msg:      json.RawMessage(payload),
	}
	if native {
		msg.Funds = []types.Coin{{Denom: inputDenom, Amount: inputAmount.String()}}
	}
	return msg
}

// IncreaseAllowanceMsg builds the cw20 allowance grant executed against the
// token contract before a cw20-input swap.
func IncreaseAllowanceMsg(sender, tokenContract string, amount *big.Int, spender string, expiration int64) types.MsgExecuteContract {
	payload := fmt.Sprintf(`{"increase_allowance":{"amount":%q,"spender":%q,"expires":{"at_height":%d}}}`,
		amount.String(), spender, expiration)

	return types.MsgExecuteContract{
		Sender:   sender,
		Contract: tokenContract,
		Msg:      json.RawMessage(payload),
	}
}
