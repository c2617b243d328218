package terraswap

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/devlongs/cosmos-backrunner/internal/dex"
)

// ReservesQuery returns the query document for pool reserves.
func ReservesQuery() []byte {
	return []byte(`{"pool":{}}`)
}

// ConfigQuery returns the query document for the loop-style commission
// rate.
func ConfigQuery() []byte {
	return []byte(`{"query_config":{}}`)
}

// WhiteWhaleConfigQuery returns the query document for the whitewhale
// split-fee config.
func WhiteWhaleConfigQuery() []byte {
	return []byte(`{"config":{}}`)
}

type poolResponse struct {
	Assets []struct {
		Amount string        `json:"amount"`
		Info   dex.AssetInfo `json:"info"`
	} `json:"assets"`
}

// ParseReserves parses the pool query response into the two reserve values,
// in asset order.
func ParseReserves(doc []byte) (*big.Int, *big.Int, error) {
	var pool poolResponse
	if err := json.Unmarshal(doc, &pool); err != nil {
		return nil, nil, fmt.Errorf("terraswap pool: %w", err)
	}
	if len(pool.Assets) != 2 {
		return nil, nil, fmt.Errorf("terraswap pool: expected 2 assets, got %d", len(pool.Assets))
	}
	r1, ok := new(big.Int).SetString(pool.Assets[0].Amount, 10)
	if !ok {
		return nil, nil, fmt.Errorf("terraswap pool: invalid asset amount %q", pool.Assets[0].Amount)
	}
	r2, ok := new(big.Int).SetString(pool.Assets[1].Amount, 10)
	if !ok {
		return nil, nil, fmt.Errorf("terraswap pool: invalid asset amount %q", pool.Assets[1].Amount)
	}
	return r1, r2, nil
}

// ParseConfigFee parses the loop-style commission rate into an LP fee.
func ParseConfigFee(doc []byte) (float64, error) {
	var cfg struct {
		CommissionRate string `json:"commission_rate"`
	}
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return 0, fmt.Errorf("terraswap config: %w", err)
	}
	fee, err := strconv.ParseFloat(cfg.CommissionRate, 64)
	if err != nil {
		return 0, fmt.Errorf("terraswap config: invalid commission_rate %q", cfg.CommissionRate)
	}
	return fee, nil
}

// ParseWhiteWhaleFees parses the whitewhale config into the LP and protocol
// fee shares.
func ParseWhiteWhaleFees(doc []byte) (lpFee, protocolFee float64, err error) {
	var cfg struct {
		PoolFees struct {
			SwapFee struct {
				Share string `json:"share"`
			} `json:"swap_fee"`
			ProtocolFee struct {
				Share string `json:"share"`
			} `json:"protocol_fee"`
		} `json:"pool_fees"`
	}
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return 0, 0, fmt.Errorf("whitewhale config: %w", err)
	}
	lp, err := strconv.ParseFloat(cfg.PoolFees.SwapFee.Share, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("whitewhale config: invalid swap_fee share: %w", err)
	}
	protocol, err := strconv.ParseFloat(cfg.PoolFees.ProtocolFee.Share, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("whitewhale config: invalid protocol_fee share: %w", err)
	}
	return lp, protocol, nil
}
