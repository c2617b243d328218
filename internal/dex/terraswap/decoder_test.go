package terraswap

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

func pool(address, denom1, denom2 string) *types.Pool {
	return &types.Pool{
		Address:        address,
		Protocol:       types.ProtocolTerraswap,
		Token1Denom:    denom1,
		Token2Denom:    denom2,
		Token1Reserves: big.NewInt(1000),
		Token2Reserves: big.NewInt(1000),
		LPFee:          DefaultLPFee,
	}
}

func TestDecodeSwapsNativeOffer(t *testing.T) {
	p := pool("terra1pool", "uluna", "terra1token")
	payload := []byte(`{"swap":{"offer_asset":{"amount":"2500","info":{"native_token":{"denom":"uluna"}}}}}`)

	swaps, err := DecodeSwaps(p, "terra1sender", "terra1pool", payload)
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	assert.Equal(t, "terra1pool", swaps[0].Pool)
	assert.Equal(t, "uluna", swaps[0].InputDenom)
	assert.Equal(t, "terra1token", swaps[0].OutputDenom)
	assert.Equal(t, big.NewInt(2500), swaps[0].InputAmount)
}

func TestDecodeSwapsTokenOffer(t *testing.T) {
	p := pool("terra1pool", "uluna", "terra1token")
	payload := []byte(`{"swap":{"offer_asset":{"amount":"77","info":{"token":{"contract_addr":"terra1token"}}}}}`)

	swaps, err := DecodeSwaps(p, "terra1sender", "terra1pool", payload)
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	assert.Equal(t, "terra1token", swaps[0].InputDenom)
	assert.Equal(t, "uluna", swaps[0].OutputDenom)
}

func TestDecodeSwapsSendWrapper(t *testing.T) {
	// The execute message targets the cw20 token contract; the pool is the
	// send wrapper's contract and the input denom is the token itself.
	p := pool("terra1pool", "uluna", "terra1token")
	payload := []byte(`{"send":{"amount":"900","contract":"terra1pool","msg":"eyJzd2FwIjp7fX0="}}`)

	swaps, err := DecodeSwaps(p, "terra1sender", "terra1token", payload)
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	assert.Equal(t, "terra1pool", swaps[0].Pool)
	assert.Equal(t, "terra1token", swaps[0].InputDenom)
	assert.Equal(t, "uluna", swaps[0].OutputDenom)
	assert.Equal(t, big.NewInt(900), swaps[0].InputAmount)
}

func TestDecodeSwapsIgnoresOtherPayloads(t *testing.T) {
	p := pool("terra1pool", "uluna", "terra1token")

	swaps, err := DecodeSwaps(p, "terra1sender", "terra1pool", []byte(`{"provide_liquidity":{}}`))
	require.NoError(t, err)
	assert.Empty(t, swaps)
}

func TestDecodeSwapsBadAmount(t *testing.T) {
	p := pool("terra1pool", "uluna", "terra1token")
	payload := []byte(`{"swap":{"offer_asset":{"amount":"","info":{"native_token":{"denom":"uluna"}}}}}`)

	_, err := DecodeSwaps(p, "terra1sender", "terra1pool", payload)
	assert.Error(t, err)
}
