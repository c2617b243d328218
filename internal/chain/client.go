// Package chain wraps the node's Tendermint JSON-RPC surface: mempool
// listing, smart-contract state queries, and bank balance lookups. Wallet
// key management, transaction signing, and broadcast live behind the
// interfaces in this package and are provided by the caller.
package chain

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/devlongs/cosmos-backrunner/internal/config"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Signer produces signatures for transaction bytes. Implementations own the
// mnemonic/private key; this engine never sees it.
type Signer interface {
	Address() string
	PublicKey() []byte
	Sign(bytes []byte) ([]byte, error)
}

// TxBuilder assembles, signs, and serializes an arbitrage transaction from
// an ordered message list. Sequence numbers and fee/gas attachment are the
// implementation's concern.
type TxBuilder interface {
	BuildSignedTx(ctx context.Context, msgs []types.ChainMsg, gasLimit int64, fee types.Coin) ([]byte, error)
}

// Client is a thin Tendermint JSON-RPC client with retry logic.
type Client struct {
	httpc *http.Client
	cfg   config.ChainConfig
}

// NewClient creates a node RPC client.
func NewClient(cfg config.ChainConfig) *Client {
	return &Client{
		httpc: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:   cfg,
	}
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    string `json:"data"`
	} `json:"error"`
}

// UnconfirmedTxs lists pending transactions from the node mempool as
// base64-encoded raw transactions.
func (c *Client) UnconfirmedTxs(ctx context.Context) ([]string, error) {
	var result struct {
		Txs []string `json:"txs"`
	}
	if err := c.get(ctx, "unconfirmed_txs", url.Values{"limit": {"1000"}}, &result); err != nil {
		return nil, err
	}
	return result.Txs, nil
}

// QuerySmart performs a CosmWasm smart-contract state query and unmarshals
// the JSON response document into out.
func (c *Client) QuerySmart(ctx context.Context, contract string, query []byte, out any) error {
	// /cosmwasm.wasm.v1.Query/SmartContractState request: address, query_data.
	var req []byte
	req = protowire.AppendTag(req, 1, protowire.BytesType)
	req = protowire.AppendString(req, contract)
	req = protowire.AppendTag(req, 2, protowire.BytesType)
	req = protowire.AppendBytes(req, query)

	params := url.Values{
		"path": {`"/cosmwasm.wasm.v1.Query/SmartContractState"`},
		"data": {"0x" + hex.EncodeToString(req)},
	}

	var result struct {
		Response struct {
			Code  int    `json:"code"`
			Log   string `json:"log"`
			Value string `json:"value"`
		} `json:"response"`
	}
	if err := c.get(ctx, "abci_query", params, &result); err != nil {
		return err
	}
	if result.Response.Code != 0 {
		return fmt.Errorf("abci query failed for %s: %s", contract, result.Response.Log)
	}

	raw, err := base64.StdEncoding.DecodeString(result.Response.Value)
	if err != nil {
		return fmt.Errorf("decode abci query value: %w", err)
	}
	data, err := unwrapQueryResponse(raw)
	if err != nil {
		return fmt.Errorf("unwrap abci query value: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal contract state for %s: %w", contract, err)
	}
	return nil
}

// Balance returns the account balance for a denom via the bank query.
func (c *Client) Balance(ctx context.Context, address, denom string) (*big.Int, error) {
	// /cosmos.bank.v1beta1.Query/Balance request: address, denom.
	var req []byte
	req = protowire.AppendTag(req, 1, protowire.BytesType)
	req = protowire.AppendString(req, address)
	req = protowire.AppendTag(req, 2, protowire.BytesType)
	req = protowire.AppendString(req, denom)

	params := url.Values{
		"path": {`"/cosmos.bank.v1beta1.Query/Balance"`},
		"data": {"0x" + hex.EncodeToString(req)},
	}

	var result struct {
		Response struct {
			Code  int    `json:"code"`
			Log   string `json:"log"`
			Value string `json:"value"`
		} `json:"response"`
	}
	if err := c.get(ctx, "abci_query", params, &result); err != nil {
		return nil, err
	}
	if result.Response.Code != 0 {
		return nil, fmt.Errorf("balance query failed for %s: %s", address, result.Response.Log)
	}

	raw, err := base64.StdEncoding.DecodeString(result.Response.Value)
	if err != nil {
		return nil, fmt.Errorf("decode balance value: %w", err)
	}
	coin, err := unwrapBalanceResponse(raw)
	if err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(coin.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid balance amount %q", coin.Amount)
	}
	return amount, nil
}

// Account returns the account number and sequence for an address via the
// auth query. Both are needed to sign a transaction.
func (c *Client) Account(ctx context.Context, address string) (accountNumber, sequence uint64, err error) {
	// /cosmos.auth.v1beta1.Query/Account request: address.
	var req []byte
	req = protowire.AppendTag(req, 1, protowire.BytesType)
	req = protowire.AppendString(req, address)

	params := url.Values{
		"path": {`"/cosmos.auth.v1beta1.Query/Account"`},
		"data": {"0x" + hex.EncodeToString(req)},
	}

	var result struct {
		Response struct {
			Code  int    `json:"code"`
			Log   string `json:"log"`
			Value string `json:"value"`
		} `json:"response"`
	}
	if err := c.get(ctx, "abci_query", params, &result); err != nil {
		return 0, 0, err
	}
	if result.Response.Code != 0 {
		return 0, 0, fmt.Errorf("account query failed for %s: %s", address, result.Response.Log)
	}

	raw, err := base64.StdEncoding.DecodeString(result.Response.Value)
	if err != nil {
		return 0, 0, fmt.Errorf("decode account value: %w", err)
	}
	return unwrapAccountResponse(raw)
}

// get performs a GET against the RPC endpoint with retry, unmarshalling the
// JSON-RPC result into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	target := c.cfg.RPCURL
	if target == "" {
		return fmt.Errorf("chain rpc url not configured")
	}
	if target[len(target)-1] != '/' {
		target += "/"
	}
	target += endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var lastErr error
	for i := 0; i < c.cfg.RetryAttempts; i++ {
		if err := c.getOnce(ctx, target, out); err != nil {
			lastErr = err
			log.Warn().Err(err).Str("endpoint", endpoint).Int("attempt", i+1).Msg("RPC request failed, retrying...")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("rpc %s failed after %d attempts: %w", endpoint, c.cfg.RetryAttempts, lastErr)
}

func (c *Client) getOnce(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env rpcEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("malformed rpc response: %w", err)
	}
	if env.Error != nil {
		return fmt.Errorf("rpc error %d: %s %s", env.Error.Code, env.Error.Message, env.Error.Data)
	}
	return json.Unmarshal(env.Result, out)
}

// unwrapQueryResponse extracts the data field of a
// SmartContractStateResponse.
func unwrapQueryResponse(raw []byte) ([]byte, error) {
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		raw = raw[n:]
		if num == 1 && typ == protowire.BytesType {
			data, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			return data, nil
		}
		n = protowire.ConsumeFieldValue(num, typ, raw)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		raw = raw[n:]
	}
	return nil, fmt.Errorf("empty smart query response")
}

// unwrapAccountResponse digs the account number and sequence out of a
// QueryAccountResponse: an Any wrapping a BaseAccount.
func unwrapAccountResponse(raw []byte) (accountNumber, sequence uint64, err error) {
	var anyValue []byte
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return 0, 0, protowire.ParseError(n)
		}
		raw = raw[n:]
		if num == 1 && typ == protowire.BytesType {
			anyValue, n = protowire.ConsumeBytes(raw)
			if n < 0 {
				return 0, 0, protowire.ParseError(n)
			}
			break
		}
		n = protowire.ConsumeFieldValue(num, typ, raw)
		if n < 0 {
			return 0, 0, protowire.ParseError(n)
		}
		raw = raw[n:]
	}
	if anyValue == nil {
		return 0, 0, fmt.Errorf("empty account response")
	}

	// Unwrap the Any to the BaseAccount bytes.
	var account []byte
	rest := anyValue
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			return 0, 0, protowire.ParseError(n)
		}
		rest = rest[n:]
		if num == 2 && typ == protowire.BytesType {
			account, n = protowire.ConsumeBytes(rest)
			if n < 0 {
				return 0, 0, protowire.ParseError(n)
			}
			break
		}
		n = protowire.ConsumeFieldValue(num, typ, rest)
		if n < 0 {
			return 0, 0, protowire.ParseError(n)
		}
		rest = rest[n:]
	}
	if account == nil {
		return 0, 0, fmt.Errorf("account response missing account")
	}

	for len(account) > 0 {
		num, typ, n := protowire.ConsumeTag(account)
		if n < 0 {
			return 0, 0, protowire.ParseError(n)
		}
		account = account[n:]
		switch {
		case num == 3 && typ == protowire.VarintType:
			accountNumber, n = protowire.ConsumeVarint(account)
		case num == 4 && typ == protowire.VarintType:
			sequence, n = protowire.ConsumeVarint(account)
		default:
			n = protowire.ConsumeFieldValue(num, typ, account)
		}
		if n < 0 {
			return 0, 0, protowire.ParseError(n)
		}
		account = account[n:]
	}
	return accountNumber, sequence, nil
}

// unwrapBalanceResponse extracts the balance coin of a QueryBalanceResponse.
func unwrapBalanceResponse(raw []byte) (types.Coin, error) {
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return types.Coin{}, protowire.ParseError(n)
		}
		raw = raw[n:]
		if num == 1 && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return types.Coin{}, protowire.ParseError(n)
			}
			return decodeCoin(body)
		}
		n = protowire.ConsumeFieldValue(num, typ, raw)
		if n < 0 {
			return types.Coin{}, protowire.ParseError(n)
		}
		raw = raw[n:]
	}
	return types.Coin{}, fmt.Errorf("empty balance response")
}
