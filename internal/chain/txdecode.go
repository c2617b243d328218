package chain

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// MsgExecuteContractURL is the only message type the decoder cares about.
const MsgExecuteContractURL = "/cosmwasm.wasm.v1.MsgExecuteContract"

// DecodedMsg is one message lifted out of a transaction body.
type DecodedMsg struct {
	TypeURL  string
	Sender   string
	Contract string
	Msg      []byte // inline JSON payload of a MsgExecuteContract
	Funds    []types.Coin
}

// DecodeTx decodes a base64 raw transaction into its execute-contract
// messages. Messages of other types are skipped, not errors.
//
// The envelope is walked at the protobuf wire level: Tx.body (field 1)
// holds TxBody.messages (repeated Any, field 1), each Any wrapping a
// type_url (field 1) and value (field 2).
func DecodeTx(raw string) ([]byte, []DecodedMsg, error) {
	txBytes, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decode tx base64: %w", err)
	}

	body, err := messageField(txBytes, 1) // Tx.body
	if err != nil {
		return nil, nil, fmt.Errorf("decode tx body: %w", err)
	}

	var msgs []DecodedMsg
	if err := eachMessageField(body, 1, func(anyBytes []byte) error { // TxBody.messages
		typeURL, value, err := decodeAny(anyBytes)
		if err != nil {
			return err
		}
		if typeURL != MsgExecuteContractURL {
			return nil
		}
		msg, err := decodeExecuteContract(value)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		return nil
	}); err != nil {
		return nil, nil, fmt.Errorf("decode tx messages: %w", err)
	}

	return txBytes, msgs, nil
}

// decodeAny splits a google.protobuf.Any into type_url and value.
func decodeAny(raw []byte) (string, []byte, error) {
	var typeURL string
	var value []byte
	err := walkFields(raw, func(num protowire.Number, body []byte) error {
		switch num {
		case 1:
			typeURL = string(body)
		case 2:
			value = body
		}
		return nil
	})
	return typeURL, value, err
}

// decodeExecuteContract decodes a cosmwasm MsgExecuteContract: sender (1),
// contract (2), msg (3), funds (5).
func decodeExecuteContract(raw []byte) (DecodedMsg, error) {
	msg := DecodedMsg{TypeURL: MsgExecuteContractURL}
	err := walkFields(raw, func(num protowire.Number, body []byte) error {
		switch num {
		case 1:
			msg.Sender = string(body)
		case 2:
			msg.Contract = string(body)
		case 3:
			msg.Msg = body
		case 5:
			coin, err := decodeCoin(body)
			if err != nil {
				return err
			}
			msg.Funds = append(msg.Funds, coin)
		}
		return nil
	})
	return msg, err
}

// decodeCoin decodes a cosmos Coin: denom (1), amount (2).
func decodeCoin(raw []byte) (types.Coin, error) {
	var coin types.Coin
	err := walkFields(raw, func(num protowire.Number, body []byte) error {
		switch num {
		case 1:
			coin.Denom = string(body)
		case 2:
			coin.Amount = string(body)
		}
		return nil
	})
	return coin, err
}

// messageField returns the first length-delimited field with the given
// number.
func messageField(raw []byte, want protowire.Number) ([]byte, error) {
	var found []byte
	err := walkFields(raw, func(num protowire.Number, body []byte) error {
		if num == want && found == nil {
			found = body
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("field %d not present", want)
	}
	return found, nil
}

// eachMessageField invokes fn for every length-delimited field with the
// given number.
func eachMessageField(raw []byte, want protowire.Number, fn func([]byte) error) error {
	return walkFields(raw, func(num protowire.Number, body []byte) error {
		if num == want {
			return fn(body)
		}
		return nil
	})
}

// walkFields iterates the top-level fields of a wire-encoded message,
// invoking fn for each length-delimited field and skipping scalars.
func walkFields(raw []byte, fn func(num protowire.Number, body []byte) error) error {
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return protowire.ParseError(n)
		}
		raw = raw[n:]
		if typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := fn(num, body); err != nil {
				return err
			}
			raw = raw[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, raw)
		if n < 0 {
			return protowire.ParseError(n)
		}
		raw = raw[n:]
	}
	return nil
}
