// Package amm implements the constant-product (x*y=k) swap math shared by
// every tracked pool flavor. The two fee policies are not symmetric: pools
// that charge the fee on the input side retain the LP share of that fee in
// their input reserves, while pools that charge on the output side retain
// the LP share in their output reserves. Both behaviors match the on-chain
// contracts and must be applied exactly, because the reserves left behind
// feed the next swap in a chained simulation.
package amm

import (
	"errors"
	"math"
	"math/big"
)

// ErrNonPositiveAmount is returned when a swap is requested with a zero or
// negative input. Callers treat it as "no trade", not as a failure.
var ErrNonPositiveAmount = errors.New("amm: amount in must be greater than 0")

// Result holds the outcome of applying one swap to a pool's reserves.
type Result struct {
	AmountOut      *big.Int
	NewReservesIn  *big.Int
	NewReservesOut *big.Int
}

// Swap applies a constant-product swap of amountIn against the given
// reserves and returns the amount out plus the post-trade reserves.
//
// feeFromInput selects the fee policy: true deducts lpFee+protocolFee from
// the input before the invariant swap, false deducts it from the raw
// invariant output. All divisions truncate toward zero.
func Swap(reservesIn, reservesOut, amountIn *big.Int, lpFee, protocolFee float64, feeFromInput bool) (Result, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return Result{}, ErrNonPositiveAmount
	}

	totalFee := lpFee + protocolFee
	totalSwapFee := 1 - totalFee
	lpSwapFee := 1 - lpFee

	// The invariant product can exceed 2^53, so it is formed exactly and
	// rounded once when converted for the division below.
	k, _ := new(big.Float).SetInt(new(big.Int).Mul(reservesIn, reservesOut)).Float64()
	rin := toFloat(reservesIn)
	rout := toFloat(reservesOut)
	ain := toFloat(amountIn)

	if feeFromInput {
		amountInAfterFee := ain * totalSwapFee
		lpFeeAmount := 0.0
		if totalFee > 0 {
			lpFeeAmount = math.Floor((ain - math.Floor(amountInAfterFee)) * (lpFee / totalFee))
		}
		amountOut := math.Floor(rout - k/(rin+amountInAfterFee))
		newReservesIn := new(big.Int).Add(reservesIn, fromFloat(math.Floor(amountInAfterFee)))
		newReservesIn.Add(newReservesIn, fromFloat(lpFeeAmount))
		newReservesOut := new(big.Int).Sub(reservesOut, fromFloat(amountOut))
		return Result{
			AmountOut:      fromFloat(amountOut),
			NewReservesIn:  newReservesIn,
			NewReservesOut: newReservesOut,
		}, nil
	}

	// Fee on output: the raw invariant output leaves the pool, the LP share
	// of the fee stays in the output reserves, and the trader receives the
	// output discounted by the full fee.
	rawOut := math.Floor(rout - k/(rin+ain))
	newReservesIn := new(big.Int).Add(reservesIn, amountIn)
	newReservesOut := new(big.Int).Sub(reservesOut, fromFloat(math.Floor(rawOut*lpSwapFee)))
	return Result{
		AmountOut:      fromFloat(math.Floor(rawOut * totalSwapFee)),
		NewReservesIn:  newReservesIn,
		NewReservesOut: newReservesOut,
	}, nil
}

func toFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

func fromFloat(v float64) *big.Int {
	bi, _ := big.NewFloat(v).Int(nil)
	return bi
}
