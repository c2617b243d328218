package chain

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Message type URLs carried in the transaction body.
const (
	msgSendURL         = "/cosmos.bank.v1beta1.MsgSend"
	secp256k1PubKeyURL = "/cosmos.crypto.secp256k1.PubKey"
)

const signModeDirect = 1

// AccountInfoQuerier supplies the account number and sequence needed to
// sign. Satisfied by the chain client.
type AccountInfoQuerier interface {
	Account(ctx context.Context, address string) (accountNumber, sequence uint64, err error)
}

// ProtoTxBuilder assembles SIGN_MODE_DIRECT transactions on the protobuf
// wire format, signing with the configured signer.
type ProtoTxBuilder struct {
	signer   Signer
	accounts AccountInfoQuerier
	chainID  string
}

// NewProtoTxBuilder creates a tx builder for the given chain.
func NewProtoTxBuilder(signer Signer, accounts AccountInfoQuerier, chainID string) *ProtoTxBuilder {
	return &ProtoTxBuilder{signer: signer, accounts: accounts, chainID: chainID}
}

// BuildSignedTx encodes, signs, and serializes a transaction carrying msgs
// in order. The account sequence is fetched fresh per transaction.
func (b *ProtoTxBuilder) BuildSignedTx(ctx context.Context, msgs []types.ChainMsg, gasLimit int64, fee types.Coin) ([]byte, error) {
	accountNumber, sequence, err := b.accounts.Account(ctx, b.signer.Address())
	if err != nil {
		return nil, fmt.Errorf("fetch account info: %w", err)
	}

	body, err := encodeTxBody(msgs)
	if err != nil {
		return nil, err
	}
	authInfo := encodeAuthInfo(b.signer.PublicKey(), sequence, gasLimit, fee)

	signature, err := b.signer.Sign(encodeSignDoc(body, authInfo, b.chainID, accountNumber))
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	// TxRaw: body_bytes, auth_info_bytes, signatures.
	var raw []byte
	raw = protowire.AppendTag(raw, 1, protowire.BytesType)
	raw = protowire.AppendBytes(raw, body)
	raw = protowire.AppendTag(raw, 2, protowire.BytesType)
	raw = protowire.AppendBytes(raw, authInfo)
	raw = protowire.AppendTag(raw, 3, protowire.BytesType)
	raw = protowire.AppendBytes(raw, signature)
	return raw, nil
}

func encodeTxBody(msgs []types.ChainMsg) ([]byte, error) {
	var body []byte
	for _, msg := range msgs {
		var typeURL string
		var value []byte
		switch m := msg.(type) {
		case types.MsgSend:
			typeURL, value = msgSendURL, encodeMsgSend(m)
		case types.MsgExecuteContract:
			typeURL, value = MsgExecuteContractURL, encodeMsgExecuteContract(m)
		default:
			return nil, fmt.Errorf("unsupported message type %T", msg)
		}
		body = protowire.AppendTag(body, 1, protowire.BytesType)
		body = protowire.AppendBytes(body, encodeAnyMsg(typeURL, value))
	}
	return body, nil
}

func encodeAnyMsg(typeURL string, value []byte) []byte {
	var anyMsg []byte
	anyMsg = protowire.AppendTag(anyMsg, 1, protowire.BytesType)
	anyMsg = protowire.AppendString(anyMsg, typeURL)
	anyMsg = protowire.AppendTag(anyMsg, 2, protowire.BytesType)
	anyMsg = protowire.AppendBytes(anyMsg, value)
	return anyMsg
}

func encodeMsgSend(m types.MsgSend) []byte {
	var msg []byte
	msg = protowire.AppendTag(msg, 1, protowire.BytesType)
	msg = protowire.AppendString(msg, m.FromAddress)
	msg = protowire.AppendTag(msg, 2, protowire.BytesType)
	msg = protowire.AppendString(msg, m.ToAddress)
	for _, coin := range m.Amount {
		msg = protowire.AppendTag(msg, 3, protowire.BytesType)
		msg = protowire.AppendBytes(msg, encodeWireCoin(coin))
	}
	return msg
}

func encodeMsgExecuteContract(m types.MsgExecuteContract) []byte {
	var msg []byte
	msg = protowire.AppendTag(msg, 1, protowire.BytesType)
	msg = protowire.AppendString(msg, m.Sender)
	msg = protowire.AppendTag(msg, 2, protowire.BytesType)
	msg = protowire.AppendString(msg, m.Contract)
	msg = protowire.AppendTag(msg, 3, protowire.BytesType)
	msg = protowire.AppendBytes(msg, m.Msg)
	for _, coin := range m.Funds {
		msg = protowire.AppendTag(msg, 5, protowire.BytesType)
		msg = protowire.AppendBytes(msg, encodeWireCoin(coin))
	}
	return msg
}

func encodeWireCoin(coin types.Coin) []byte {
	var c []byte
	c = protowire.AppendTag(c, 1, protowire.BytesType)
	c = protowire.AppendString(c, coin.Denom)
	c = protowire.AppendTag(c, 2, protowire.BytesType)
	c = protowire.AppendString(c, coin.Amount)
	return c
}

func encodeAuthInfo(pubkey []byte, sequence uint64, gasLimit int64, fee types.Coin) []byte {
	// PubKey: key.
	var key []byte
	key = protowire.AppendTag(key, 1, protowire.BytesType)
	key = protowire.AppendBytes(key, pubkey)

	// ModeInfo: single{mode: SIGN_MODE_DIRECT}.
	var single []byte
	single = protowire.AppendTag(single, 1, protowire.VarintType)
	single = protowire.AppendVarint(single, signModeDirect)
	var modeInfo []byte
	modeInfo = protowire.AppendTag(modeInfo, 1, protowire.BytesType)
	modeInfo = protowire.AppendBytes(modeInfo, single)

	// SignerInfo: public_key, mode_info, sequence.
	var signerInfo []byte
	signerInfo = protowire.AppendTag(signerInfo, 1, protowire.BytesType)
	signerInfo = protowire.AppendBytes(signerInfo, encodeAnyMsg(secp256k1PubKeyURL, key))
	signerInfo = protowire.AppendTag(signerInfo, 2, protowire.BytesType)
	signerInfo = protowire.AppendBytes(signerInfo, modeInfo)
	signerInfo = protowire.AppendTag(signerInfo, 3, protowire.VarintType)
	signerInfo = protowire.AppendVarint(signerInfo, sequence)

	// Fee: amount, gas_limit.
	var feeBytes []byte
	feeBytes = protowire.AppendTag(feeBytes, 1, protowire.BytesType)
	feeBytes = protowire.AppendBytes(feeBytes, encodeWireCoin(fee))
	feeBytes = protowire.AppendTag(feeBytes, 2, protowire.VarintType)
	feeBytes = protowire.AppendVarint(feeBytes, uint64(gasLimit))

	var authInfo []byte
	authInfo = protowire.AppendTag(authInfo, 1, protowire.BytesType)
	authInfo = protowire.AppendBytes(authInfo, signerInfo)
	authInfo = protowire.AppendTag(authInfo, 2, protowire.BytesType)
	authInfo = protowire.AppendBytes(authInfo, feeBytes)
	return authInfo
}

func encodeSignDoc(body, authInfo []byte, chainID string, accountNumber uint64) []byte {
	var doc []byte
	doc = protowire.AppendTag(doc, 1, protowire.BytesType)
	doc = protowire.AppendBytes(doc, body)
	doc = protowire.AppendTag(doc, 2, protowire.BytesType)
	doc = protowire.AppendBytes(doc, authInfo)
	doc = protowire.AppendTag(doc, 3, protowire.BytesType)
	doc = protowire.AppendString(doc, chainID)
	doc = protowire.AppendTag(doc, 4, protowire.VarintType)
	doc = protowire.AppendVarint(doc, accountNumber)
	return doc
}
