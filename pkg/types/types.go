package types

import (
	"encoding/json"
	"math/big"
)

// Protocol identifies the AMM flavor of a pool, which determines both the
// fee policy applied by the swap math and the message dialect the decoder
// uses.
type Protocol string

const (
	// ProtocolWasmswap is the constant-product AMM that charges fees on the
	// input side and uses Token1/Token2 slot addressing in its messages.
	ProtocolWasmswap Protocol = "wasmswap"
	// ProtocolTerraswap is the constant-product AMM that charges fees on the
	// output side and uses offer/ask asset addressing.
	ProtocolTerraswap Protocol = "terraswap"
	// ProtocolWhiteWhale is terraswap-shaped but splits the fee between LPs
	// and the protocol treasury; fees are looked up per pool.
	ProtocolWhiteWhale Protocol = "whitewhale"
)

// TokenSlot names one of the two token positions of a pool. The values are
/// wire values: wasmswap swap messages address tokens by slot.
type TokenSlot string

const (
	Token1 TokenSlot = "Token1"
	Token2 TokenSlot = "Token2"
)

// Other returns the opposite slot.
func (s TokenSlot) Other() TokenSlot {
	if s == Token1 {
		return Token2
	}
	return Token1
}

// Pool is a tracked liquidity venue. Reserves are mutated by refresh jobs
// and by transaction simulation against deep copies; a pool with a zero
// reserve on either side is excluded from route generation.
type Pool struct {
	Address        string
	Protocol       Protocol
	Token1Denom    string
	Token2Denom    string
	Token1Reserves *big.Int
	Token2Reserves *big.Int
	LPFee          float64
	ProtocolFee    float64
	FeeFromInput   bool
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	cp := *p
	cp.Token1Reserves = new(big.Int).Set(p.Token1Reserves)
	cp.Token2Reserves = new(big.Int).Set(p.Token2Reserves)
	return &cp
}

// OtherDenom returns the pool denom that is not the given one.
func (p *Pool) OtherDenom(denom string) string {
	if p.Token1Denom == denom {
		return p.Token2Denom
	}
	return p.Token1Denom
}

// SlotFor returns the token slot holding the given denom.
func (p *Pool) SlotFor(denom string) TokenSlot {
	if p.Token1Denom == denom {
		return Token1
	}
	return Token2
}

// HasZeroReserves reports whether either side of the pool is empty.
func (p *Pool) HasZeroReserves() bool {
	return p.Token1Reserves == nil || p.Token2Reserves == nil ||
		p.Token1Reserves.Sign() == 0 || p.Token2Reserves.Sign() == 0
}

// Swap is a normalized trade intent extracted from a decoded message.
// InputAmount is nil when the swap is the second leg of a chained swap and
// resolves to the prior leg's output during simulation.
type Swap struct {
	Sender      string
	Pool        string
	InputDenom  string
	InputAmount *big.Int
	OutputDenom string
}

// Resolved reports whether the input amount is known.
func (s *Swap) Resolved() bool {
	return s.InputAmount != nil
}

// PendingTransaction is a raw mempool transaction together with the swap
// events decoded from it. Short-lived: one arbitrage-decision cycle.
type PendingTransaction struct {
	Raw     string // base64 as listed by the node
	TxBytes []byte
	Sender  string
	Swaps   []Swap
	Routes  []*Route // candidate routes, populated by the engine
}

// RoutePool is one hop of an ordered cyclic route: a pool snapshot plus the
// direction the arbitrage trade flows through it.
type RoutePool struct {
	Pool           *Pool
	InputDenom     string
	OutputDenom    string
	InputToken     TokenSlot
	InputReserves  *big.Int
	OutputReserves *big.Int
	AmountIn       *big.Int
	AmountOut      *big.Int
}

// Route is an ordered three-pool cycle starting and ending in the arb denom.
// Pool snapshots are deep copies; a Route is owned by a single decision
// cycle and never shared.
type Route struct {
	Pools           [3]*RoutePool
	OptimalAmountIn *big.Int
	AmountIn        *big.Int
	Profit          *big.Int
}

// Coin is an amount of a denom, stringly typed as on the wire.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// ChainMsg is one message of the arbitrage transaction. The concrete set is
// closed: bank sends and contract executions.
type ChainMsg interface {
	chainMsg()
}

// MsgSend is a bank transfer, used for the auction bid and for the
// profitability self-send.
type MsgSend struct {
	FromAddress string
	ToAddress   string
	Amount      []Coin
}

func (MsgSend) chainMsg() {}

// MsgExecuteContract is a CosmWasm contract execution with an inline JSON
// payload.
type MsgExecuteContract struct {
	Sender   string
	Contract string
	Msg      json.RawMessage
	Funds    []Coin
}

func (MsgExecuteContract) chainMsg() {}

// Bundle pairs the target transaction with the signed arbitrage transaction
// for atomic submission to the block-builder auction. Consumed exactly once.
type Bundle struct {
	TargetTx []byte
	ArbTx    []byte
}

// Txs returns the full bundle in submission order.
func (b *Bundle) Txs() [][]byte {
	return [][]byte{b.TargetTx, b.ArbTx}
}

// ArbOnly returns the resubmission bundle used when the target is presumed
// already included.
func (b *Bundle) ArbOnly() [][]byte {
	return [][]byte{b.ArbTx}
}
