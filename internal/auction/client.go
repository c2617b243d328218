// Package auction submits backrun bundles to the block-builder auction and
// drives the retry state machine over its result codes.
package auction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/devlongs/cosmos-backrunner/internal/chain"
	"github.com/devlongs/cosmos-backrunner/internal/config"
)

// Result codes returned by the auction RPC.
const (
	CodeSuccess         = 0
	CodeNotAuctionVal   = 4
	CodeDeliverTxFailed = 8
)

// Result is the auction's verdict on a submitted bundle.
type Result struct {
	Code              int    `json:"code"`
	Error             string `json:"error"`
	AuctionFee        string `json:"auction_fee"`
	BundleSize        string `json:"bundle_size"`
	DesiredHeight     string `json:"desired_height"`
	SimulationSuccess bool   `json:"simulation_success"`
}

// Client submits transaction bundles to the auction.
type Client interface {
	SendBundle(ctx context.Context, txs [][]byte) (*Result, error)
}

// HTTPClient is the JSON-RPC auction client. Each bundle is signed as a
// whole (signature over the concatenated transactions) so the auction can
// attribute it to the bidder.
type HTTPClient struct {
	httpc  *http.Client
	signer chain.Signer
	cfg    config.AuctionConfig
}

// NewHTTPClient creates an auction client signing bundles with signer.
func NewHTTPClient(cfg config.AuctionConfig, signer chain.Signer) *HTTPClient {
	return &HTTPClient{
		httpc:  &http.Client{Timeout: cfg.SubmitTimeout},
		signer: signer,
		cfg:    cfg,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result *Result `json:"result"`
}

// SendBundle signs and posts the bundle, returning the auction's result.
func (c *HTTPClient) SendBundle(ctx context.Context, txs [][]byte) (*Result, error) {
	var joined []byte
	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		joined = append(joined, tx...)
		encoded = append(encoded, base64.StdEncoding.EncodeToString(tx))
	}
	signature, err := c.signer.Sign(joined)
	if err != nil {
		return nil, fmt.Errorf("sign bundle: %w", err)
	}

	method := "broadcast_bundle_async"
	if c.cfg.Sync {
		method = "broadcast_bundle_sync"
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params: []any{
			encoded,
			strconv.FormatInt(c.cfg.DesiredHeight, 10),
			base64.StdEncoding.EncodeToString(c.signer.PublicKey()),
			signature,
		},
		ID: 1,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RPCURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send bundle: %w", err)
	}
	defer resp.Body.Close()

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode auction response: %w", err)
	}
	if envelope.Result == nil {
		return nil, fmt.Errorf("auction response missing result")
	}
	return envelope.Result, nil
}
