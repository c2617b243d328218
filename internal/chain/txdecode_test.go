package chain

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func encodeCoin(denom, amount string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, denom)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, amount)
	return b
}

func encodeExecuteContract(sender, contract, msg string, funds ...[]byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, sender)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, contract)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, msg)
	for _, f := range funds {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, f)
	}
	return b
}

func encodeAny(typeURL string, value []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, typeURL)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, value)
	return b
}

func encodeTx(anys ...[]byte) string {
	var body []byte
	for _, a := range anys {
		body = protowire.AppendTag(body, 1, protowire.BytesType)
		body = protowire.AppendBytes(body, a)
	}
	var tx []byte
	tx = protowire.AppendTag(tx, 1, protowire.BytesType)
	tx = protowire.AppendBytes(tx, body)
	return base64.StdEncoding.EncodeToString(tx)
}

func TestDecodeTxExecuteContract(t *testing.T) {
	raw := encodeTx(
		encodeAny(MsgExecuteContractURL, encodeExecuteContract(
			"juno1sender", "juno1pool",
			`{"swap":{"input_token":"Token1","input_amount":"1000","min_output":"1"}}`,
			encodeCoin("ujuno", "1000"),
		)),
	)

	txBytes, msgs, err := DecodeTx(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, txBytes)
	require.Len(t, msgs, 1)
	assert.Equal(t, "juno1sender", msgs[0].Sender)
	assert.Equal(t, "juno1pool", msgs[0].Contract)
	assert.JSONEq(t, `{"swap":{"input_token":"Token1","input_amount":"1000","min_output":"1"}}`, string(msgs[0].Msg))
	require.Len(t, msgs[0].Funds, 1)
	assert.Equal(t, "ujuno", msgs[0].Funds[0].Denom)
	assert.Equal(t, "1000", msgs[0].Funds[0].Amount)
}

func TestDecodeTxSkipsOtherMessageTypes(t *testing.T) {
	raw := encodeTx(
		encodeAny("/cosmos.bank.v1beta1.MsgSend", []byte{0x0a, 0x00}),
		encodeAny(MsgExecuteContractURL, encodeExecuteContract("juno1sender", "juno1pool", `{"swap":{}}`)),
	)

	_, msgs, err := DecodeTx(raw)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "juno1pool", msgs[0].Contract)
}

func TestDecodeTxRejectsGarbage(t *testing.T) {
	_, _, err := DecodeTx("not base64!!!")
	assert.Error(t, err)

	_, _, err = DecodeTx(base64.StdEncoding.EncodeToString([]byte{0xff, 0xff, 0xff}))
	assert.Error(t, err)
}
