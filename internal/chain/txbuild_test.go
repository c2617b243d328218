package chain

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

type recordingSigner struct {
	signed []byte
}

func (s *recordingSigner) Address() string    { return "juno1me" }
func (s *recordingSigner) PublicKey() []byte  { return []byte("pubkey-33-bytes") }
func (s *recordingSigner) Sign(b []byte) ([]byte, error) {
	s.signed = b
	return []byte("signature"), nil
}

type staticAccounts struct{}

func (staticAccounts) Account(context.Context, string) (uint64, uint64, error) {
	return 42, 7, nil
}

func TestBuildSignedTxRoundTripsThroughDecoder(t *testing.T) {
	signer := &recordingSigner{}
	b := NewProtoTxBuilder(signer, staticAccounts{}, "juno-1")

	msgs := []types.ChainMsg{
		types.MsgExecuteContract{
			Sender:   "juno1me",
			Contract: "juno1pool",
			Msg:      []byte(`{"swap":{"input_token":"Token1","input_amount":"5","min_output":"0"}}`),
			Funds:    []types.Coin{{Denom: "ujuno", Amount: "5"}},
		},
		types.MsgSend{
			FromAddress: "juno1me",
			ToAddress:   "juno1me",
			Amount:      []types.Coin{{Denom: "ujuno", Amount: "100"}},
		},
	}

	raw, err := b.BuildSignedTx(context.Background(), msgs,
		1_500_000, types.Coin{Denom: "ujuno", Amount: "3750"})
	require.NoError(t, err)
	require.NotEmpty(t, signer.signed)

	// The transaction must decode with the same envelope walker used on
	// mempool transactions; the bank send is skipped as a non-execute.
	txBytes, decoded, err := DecodeTx(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, txBytes)
	require.Len(t, decoded, 1)
	assert.Equal(t, "juno1me", decoded[0].Sender)
	assert.Equal(t, "juno1pool", decoded[0].Contract)
	assert.JSONEq(t, `{"swap":{"input_token":"Token1","input_amount":"5","min_output":"0"}}`, string(decoded[0].Msg))
	require.Len(t, decoded[0].Funds, 1)
	assert.Equal(t, types.Coin{Denom: "ujuno", Amount: "5"}, decoded[0].Funds[0])
}

func TestBuildSignedTxSignsOverSignDoc(t *testing.T) {
	signer := &recordingSigner{}
	b := NewProtoTxBuilder(signer, staticAccounts{}, "juno-1")

	msgs := []types.ChainMsg{types.MsgSend{
		FromAddress: "juno1me",
		ToAddress:   "juno1house",
		Amount:      []types.Coin{{Denom: "ujuno", Amount: "1"}},
	}}
	_, err := b.BuildSignedTx(context.Background(), msgs,
		200_000, types.Coin{Denom: "ujuno", Amount: "500"})
	require.NoError(t, err)

	// The sign doc binds chain id and account number.
	assert.Contains(t, string(signer.signed), "juno-1")
}

func TestBuildSignedTxRejectsUnknownMessage(t *testing.T) {
	b := NewProtoTxBuilder(&recordingSigner{}, staticAccounts{}, "juno-1")

	type mystery struct{ types.MsgSend }
	_, err := b.BuildSignedTx(context.Background(),
		[]types.ChainMsg{mystery{}}, 1, types.Coin{Denom: "ujuno", Amount: "1"})
	assert.Error(t, err)
}
