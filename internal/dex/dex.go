// Package dex holds the pieces shared by the per-protocol message dialects:
// pool resolution, wire amount parsing, and the CosmWasm asset-info shape.
package dex

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"

	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// PoolResolver resolves a contract address to a tracked pool. Satisfied by
// the registry.
type PoolResolver interface {
	Get(address string) (*types.Pool, bool)
}

// ParseAmount parses a wire amount that may be a quoted Uint128 string or a
// bare JSON number.
func ParseAmount(raw []byte) (*big.Int, error) {
	s := bytes.Trim(bytes.TrimSpace(raw), `"`)
	if len(s) == 0 {
		return nil, fmt.Errorf("empty amount")
	}
	v, ok := new(big.Int).SetString(string(s), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// AssetInfo is the CosmWasm asset descriptor: either a native denom or a
// cw20 token contract.
type AssetInfo struct {
	NativeToken *struct {
		Denom string `json:"denom"`
	} `json:"native_token,omitempty"`
	Token *struct {
		ContractAddr string `json:"contract_addr"`
	} `json:"token,omitempty"`
}

// Denom returns the denomination the asset info names: the native denom or
// the token contract address.
func (a AssetInfo) Denom() string {
	switch {
	case a.NativeToken != nil:
		return a.NativeToken.Denom
	case a.Token != nil:
		return a.Token.ContractAddr
	default:
		return ""
	}
}

// NativeAssetInfo builds an asset info for a native denom.
func NativeAssetInfo(denom string) AssetInfo {
	var a AssetInfo
	a.NativeToken = &struct {
		Denom string `json:"denom"`
	}{Denom: denom}
	return a
}

// FormatAmount renders an amount as the decimal string the contracts
// expect.
func FormatAmount(v *big.Int) string {
	return v.String()
}

// ParsePercent converts a percent string (e.g. "0.3") to a fraction.
func ParsePercent(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percent %q: %w", s, err)
	}
	return v / 100, nil
}
