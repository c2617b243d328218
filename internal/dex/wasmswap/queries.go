package wasmswap

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/devlongs/cosmos-backrunner/internal/dex"
)

// ReservesQuery returns the query document for pool reserves.
func ReservesQuery() []byte {
	return []byte(`{"info":{}}`)
}

// FeesQuery returns the query document for pool fees.
func FeesQuery() []byte {
	return []byte(`{"fee":{}}`)
}

type infoResponse struct {
	Token1Reserve string `json:"token1_reserve"`
	Token2Reserve string `json:"token2_reserve"`
}

type feeResponse struct {
	LPFeePercent       string `json:"lp_fee_percent"`
	ProtocolFeePercent string `json:"protocol_fee_percent"`
}

// ParseReserves parses the info query response into the two reserve values.
func ParseReserves(doc []byte) (*big.Int, *big.Int, error) {
	var info infoResponse
	if err := json.Unmarshal(doc, &info); err != nil {
		return nil, nil, fmt.Errorf("wasmswap info: %w", err)
	}
	r1, ok := new(big.Int).SetString(info.Token1Reserve, 10)
	if !ok {
		return nil, nil, fmt.Errorf("wasmswap info: invalid token1_reserve %q", info.Token1Reserve)
	}
	r2, ok := new(big.Int).SetString(info.Token2Reserve, 10)
	if !ok {
		return nil, nil, fmt.Errorf("wasmswap info: invalid token2_reserve %q", info.Token2Reserve)
	}
	return r1, r2, nil
}

// ParseFees parses the fee query response. Pools predating the fee split
// don't answer the query; those fall back to the default fee.
func ParseFees(doc []byte) (lpFee, protocolFee float64) {
	var fees feeResponse
	if err := json.Unmarshal(doc, &fees); err != nil {
		return DefaultLPFee, DefaultProtocolFee
	}
	lp, err1 := dex.ParsePercent(fees.LPFeePercent)
	protocol, err2 := dex.ParsePercent(fees.ProtocolFeePercent)
	if err1 != nil || err2 != nil {
		return DefaultLPFee, DefaultProtocolFee
	}
	return lp, protocol
}
