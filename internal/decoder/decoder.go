// Package decoder normalizes heterogeneous execute messages into swap
// events. Dispatch is two-step: resolve the message to a tracked contract
// (directly, or through a cw20 send wrapper), then decode with the dialect
// of the resolved pool's protocol.
package decoder

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/devlongs/cosmos-backrunner/internal/chain"
	"github.com/devlongs/cosmos-backrunner/internal/dex"
	"github.com/devlongs/cosmos-backrunner/internal/dex/router"
	"github.com/devlongs/cosmos-backrunner/internal/dex/terraswap"
	"github.com/devlongs/cosmos-backrunner/internal/dex/wasmswap"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Decoder combines the per-protocol dialect decoders.
type Decoder struct {
	pools   dex.PoolResolver
	routers map[string]*router.Decoder
}

// NewDecoder creates a unified decoder over the tracked pool set and any
// known router contracts.
func NewDecoder(pools dex.PoolResolver, routers ...*router.Decoder) *Decoder {
	byAddr := make(map[string]*router.Decoder, len(routers))
	for _, r := range routers {
		byAddr[r.Address()] = r
	}
	return &Decoder{pools: pools, routers: byAddr}
}

// DecodeMsg returns the swap events contained in one execute message. A
// message that doesn't resolve to a tracked contract is irrelevant, not an
// error: it yields no events.
func (d *Decoder) DecodeMsg(msg chain.DecodedMsg) ([]types.Swap, error) {
	if r, ok := d.routers[msg.Contract]; ok {
		return r.DecodeSwaps(msg.Sender, msg.Msg, msg.Funds)
	}

	pool, ok := d.pools.Get(msg.Contract)
	if !ok {
		// A cw20 send wrapper routes control through the token contract:
		// the pool is named inside the payload.
		embedded, found := sendTarget(msg.Msg)
		if !found {
			return nil, nil
		}
		pool, ok = d.pools.Get(embedded)
		if !ok {
			return nil, nil
		}
	}

	switch pool.Protocol {
	case types.ProtocolWasmswap:
		return wasmswap.DecodeSwaps(pool, msg.Sender, msg.Msg, d.pools)
	case types.ProtocolTerraswap, types.ProtocolWhiteWhale:
		return terraswap.DecodeSwaps(pool, msg.Sender, msg.Contract, msg.Msg)
	default:
		return nil, nil
	}
}

// DecodeTx decodes all messages of a pending transaction into swap events.
// Individual message decode failures are logged and skipped so one
// malformed message can't hide the others.
func (d *Decoder) DecodeTx(msgs []chain.DecodedMsg) []types.Swap {
	var swaps []types.Swap
	for _, msg := range msgs {
		decoded, err := d.DecodeMsg(msg)
		if err != nil {
			log.Debug().Err(err).Str("contract", msg.Contract).Msg("Failed to decode message")
			continue
		}
		swaps = append(swaps, decoded...)
	}
	return swaps
}

// sendTarget peeks at a payload for a send wrapper's embedded contract
// field.
func sendTarget(payload []byte) (string, bool) {
	var probe struct {
		Send *struct {
			Contract string `json:"contract"`
		} `json:"send"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil || probe.Send == nil || probe.Send.Contract == "" {
		return "", false
	}
	return probe.Send.Contract, true
}
