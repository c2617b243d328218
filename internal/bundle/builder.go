// Package bundle assembles the backrun transaction: the ordered swap
// messages for a sized route, the profitability self-send, and the auction
// bid, signed and paired with the target transaction.
package bundle

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/devlongs/cosmos-backrunner/internal/chain"
	"github.com/devlongs/cosmos-backrunner/internal/dex/terraswap"
	"github.com/devlongs/cosmos-backrunner/internal/dex/wasmswap"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Builder turns sized routes into signed bundles.
type Builder struct {
	txb             chain.TxBuilder
	houseAddress    string
	feeDenom        string
	bidPercentage   float64
	gasLimit        int64
	gasFee          int64
	allowancePrefix []string
	allowanceExpiry int64
}

// Options carries the static parameters of bundle construction.
type Options struct {
	HouseAddress    string
	FeeDenom        string
	BidPercentage   float64
	GasLimit        int64
	GasFee          int64
	AllowancePrefix []string
	AllowanceExpiry int64
}

// NewBuilder creates a bundle builder signing through txb.
func NewBuilder(txb chain.TxBuilder, opts Options) *Builder {
	return &Builder{
		txb:             txb,
		houseAddress:    opts.HouseAddress,
		feeDenom:        opts.FeeDenom,
		bidPercentage:   opts.BidPercentage,
		gasLimit:        opts.GasLimit,
		gasFee:          opts.GasFee,
		allowancePrefix: opts.AllowancePrefix,
		allowanceExpiry: opts.AllowanceExpiry,
	}
}

// Bid is the auction payment for a route: the configured share of profit
// net of the gas fee, floored. Non-positive when the route isn't worth
// bidding on.
func (b *Builder) Bid(profit *big.Int) *big.Int {
	net := new(big.Int).Sub(profit, big.NewInt(b.gasFee))
	if net.Sign() <= 0 {
		return big.NewInt(0)
	}
	f, _ := new(big.Float).SetInt(net).Float64()
	return big.NewInt(int64(math.Floor(f * b.bidPercentage)))
}

// Build signs the backrun transaction for the route and pairs it with the
// target. accountBalance backs the profitability self-send: the whole
// balance is sent to self, so the transaction reverts unless the cycle
// returned at least what it spent.
func (b *Builder) Build(ctx context.Context, sender string, route *types.Route, accountBalance, bid *big.Int, targetTx []byte) (*types.Bundle, error) {
	msgs, err := b.Messages(sender, route, accountBalance, bid)
	if err != nil {
		return nil, err
	}

	fee := types.Coin{Denom: b.feeDenom, Amount: big.NewInt(b.gasFee).String()}
	arbTx, err := b.txb.BuildSignedTx(ctx, msgs, b.gasLimit, fee)
	if err != nil {
		return nil, fmt.Errorf("build backrun tx: %w", err)
	}
	return &types.Bundle{TargetTx: targetTx, ArbTx: arbTx}, nil
}

// Messages lays out the backrun transaction body: per-hop swap messages in
// route order (cw20 inputs preceded by an allowance grant), then the
// profitability self-send, then the auction bid.
func (b *Builder) Messages(sender string, route *types.Route, accountBalance, bid *big.Int) ([]types.ChainMsg, error) {
	var msgs []types.ChainMsg
	for _, hop := range route.Pools {
		hopMsgs, err := b.hopMessages(sender, hop)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, hopMsgs...)
	}

	msgs = append(msgs, types.MsgSend{
		FromAddress: sender,
		ToAddress:   sender,
		Amount:      []types.Coin{{Denom: b.feeDenom, Amount: accountBalance.String()}},
	})
	msgs = append(msgs, types.MsgSend{
		FromAddress: sender,
		ToAddress:   b.houseAddress,
		Amount:      []types.Coin{{Denom: b.feeDenom, Amount: bid.String()}},
	})
	return msgs, nil
}

func (b *Builder) hopMessages(sender string, hop *types.RoutePool) ([]types.ChainMsg, error) {
	if hop.AmountIn == nil || hop.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("hop through %s has no amount in", hop.Pool.Address)
	}
	cw20Input := b.isContractToken(hop.InputDenom)

	switch hop.Pool.Protocol {
	case types.ProtocolWasmswap:
		var msgs []types.ChainMsg
		if cw20Input {
			msgs = append(msgs, wasmswap.IncreaseAllowanceMsg(
				sender, hop.InputDenom, hop.AmountIn, hop.Pool.Address, b.allowanceExpiry))
		}
		msgs = append(msgs, wasmswap.SwapMsg(
			sender, hop.Pool.Address, hop.InputToken, hop.AmountIn, hop.InputDenom,
			big.NewInt(0), !cw20Input))
		return msgs, nil

	case types.ProtocolTerraswap, types.ProtocolWhiteWhale:
		if cw20Input {
			return []types.ChainMsg{terraswap.SendSwapMsg(
				sender, hop.InputDenom, hop.Pool.Address, hop.AmountIn)}, nil
		}
		return []types.ChainMsg{terraswap.SwapMsg(
			sender, hop.Pool.Address, hop.AmountIn, hop.InputDenom)}, nil

	default:
		return nil, fmt.Errorf("hop through %s: unknown protocol %q", hop.Pool.Address, hop.Pool.Protocol)
	}
}

// isContractToken distinguishes cw20 token addresses from native denoms by
// bech32 prefix.
func (b *Builder) isContractToken(denom string) bool {
	for _, prefix := range b.allowancePrefix {
		if strings.HasPrefix(denom, prefix) {
			return true
		}
	}
	return false
}
