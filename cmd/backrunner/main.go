package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/devlongs/cosmos-backrunner/internal/auction"
	"github.com/devlongs/cosmos-backrunner/internal/bundle"
	"github.com/devlongs/cosmos-backrunner/internal/chain"
	"github.com/devlongs/cosmos-backrunner/internal/config"
	"github.com/devlongs/cosmos-backrunner/internal/decoder"
	"github.com/devlongs/cosmos-backrunner/internal/dex/router"
	"github.com/devlongs/cosmos-backrunner/internal/engine"
	"github.com/devlongs/cosmos-backrunner/internal/mempool"
	"github.com/devlongs/cosmos-backrunner/internal/output"
	"github.com/devlongs/cosmos-backrunner/internal/registry"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Backrunner is the main arbitrage engine: it watches the mempool, sizes
// cyclic routes against a simulated post-trade state, and submits backrun
// bundles to the block-builder auction.
type Backrunner struct {
	cfg       *config.Config
	client    *chain.Client
	signer    *chain.LocalSigner
	store     *registry.Store
	registry  *registry.Registry
	decoder   *decoder.Decoder
	watcher   *mempool.Watcher
	engine    *engine.Engine
	builder   *bundle.Builder
	submitter *auction.Submitter
	logger    *output.Logger

	gasFee      int64
	balance     *big.Int
	needBalance bool
	nextRefresh time.Time
}

// NewBackrunner creates a backrunner from configuration. The pool catalog
// and decoders are loaded in Start.
func NewBackrunner(cfg *config.Config) (*Backrunner, error) {
	lgr := output.NewLogger(cfg.Logging)

	signer, err := chain.NewLocalSigner(cfg.Chain.SignerAddress, cfg.Chain.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("load signer: %w", err)
	}

	store, err := registry.OpenStore(cfg.Bot.ContractsFile)
	if err != nil {
		return nil, fmt.Errorf("open pool catalog: %w", err)
	}

	b := &Backrunner{
		cfg:    cfg,
		client: chain.NewClient(cfg.Chain),
		signer: signer,
		store:  store,
		logger: lgr,
		gasFee: cfg.Chain.GasFee(),
	}

	// The watcher and tx builder go through the Backrunner so a rebuilt
	// chain client is picked up without rewiring them.
	b.watcher = mempool.New(b, cfg.Bot.SeenCapacity)
	b.engine = engine.New(cfg.Bot.ArbDenom)

	txb := chain.NewProtoTxBuilder(signer, b, cfg.Chain.ChainID)
	b.builder = bundle.NewBuilder(txb, bundle.Options{
		HouseAddress:    cfg.Auction.HouseAddress,
		FeeDenom:        cfg.Chain.FeeDenom,
		BidPercentage:   cfg.Auction.BidPercentage,
		GasLimit:        cfg.Chain.GasLimit,
		GasFee:          b.gasFee,
		AllowancePrefix: cfg.Bot.AllowancePrefix,
		AllowanceExpiry: cfg.Bot.AllowanceExpiry,
	})
	b.submitter = auction.NewSubmitter(
		auction.NewHTTPClient(cfg.Auction, signer),
		cfg.Auction.RetryDelay,
		cfg.Auction.MaxRetryAttempts,
	)

	return b, nil
}

// UnconfirmedTxs lists the node's pending transactions through the current
// chain client.
func (b *Backrunner) UnconfirmedTxs(ctx context.Context) ([]string, error) {
	return b.client.UnconfirmedTxs(ctx)
}

// Account queries account number and sequence through the current chain
// client.
func (b *Backrunner) Account(ctx context.Context, address string) (uint64, uint64, error) {
	return b.client.Account(ctx, address)
}

// Start loads the pool catalog, refreshes on-chain state, and runs the
// polling loop until the context is canceled.
func (b *Backrunner) Start(ctx context.Context) error {
	log.Info().Msg("Starting backrunner...")

	reg, err := b.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load pool catalog: %w", err)
	}
	if len(reg.Pools()) == 0 {
		return fmt.Errorf("pool catalog %s has no pools", b.cfg.Bot.ContractsFile)
	}
	b.registry = reg

	if err := reg.RefreshFees(ctx, b.client, b.cfg.Bot.RefreshWorkers); err != nil {
		b.logger.LogError(err, "refreshing fees")
	}
	if err := reg.RefreshReserves(ctx, b.client, b.cfg.Bot.RefreshWorkers); err != nil {
		b.logger.LogError(err, "refreshing reserves")
	}
	reg.GenerateCyclicRoutes(b.cfg.Bot.ArbDenom)
	if err := b.store.Save(ctx, reg); err != nil {
		b.logger.LogError(err, "persisting pool catalog")
	}

	routers := make([]*router.Decoder, 0, len(b.cfg.Bot.Routers))
	for _, rc := range b.cfg.Bot.Routers {
		routers = append(routers, router.New(rc.Address, types.Protocol(rc.Protocol), reg.Pools()))
	}
	b.decoder = decoder.NewDecoder(reg, routers...)

	if err := b.refreshBalance(ctx); err != nil {
		return err
	}

	log.Info().
		Int("pools", len(reg.Pools())).
		Int("routers", len(routers)).
		Str("arbDenom", b.cfg.Bot.ArbDenom).
		Str("balance", b.balance.String()).
		Msg("Backrunner initialized")

	ticker := time.NewTicker(b.cfg.Bot.PollInterval)
	defer ticker.Stop()

	// Stats ticker (every 30 seconds)
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down backrunner...")
			return ctx.Err()

		case <-statsTicker.C:
			b.logger.LogStats()

		case <-ticker.C:
			if err := b.processCycle(ctx); err != nil {
				b.logger.LogError(err, "processing mempool")
			}
		}
	}
}

// processCycle runs one poll iteration: refresh account balance when a
// bundle landed, refresh pool reserves, then evaluate fresh mempool
// transactions.
func (b *Backrunner) processCycle(ctx context.Context) error {
	if b.needBalance {
		if err := b.refreshBalance(ctx); err != nil {
			b.logger.LogError(err, "refreshing balance")
		}
	}
	b.refreshReserves(ctx)

	txs, err := b.watcher.Poll(ctx)
	if err != nil {
		return err
	}
	for _, raw := range txs {
		b.processTx(ctx, raw)
	}
	return nil
}

// processTx decodes one pending transaction and, if it moves a tracked
// pool, sizes and submits the best backrun bundle against it.
func (b *Backrunner) processTx(ctx context.Context, raw string) {
	txBytes, msgs, err := chain.DecodeTx(raw)
	if err != nil {
		log.Debug().Err(err).Msg("Skipping undecodable transaction")
		return
	}

	tx := &types.PendingTransaction{Raw: raw, TxBytes: txBytes}
	if len(msgs) > 0 {
		tx.Sender = msgs[0].Sender
	}
	tx.Swaps = b.decoder.DecodeTx(msgs)
	b.logger.LogScanned(tx)
	if len(tx.Swaps) == 0 {
		return
	}

	route := b.engine.BestRoute(b.registry, tx, b.balance, b.gasFee)
	if route == nil {
		return
	}

	bid := b.builder.Bid(route.Profit)
	if bid.Sign() <= 0 {
		return
	}

	bndl, err := b.builder.Build(ctx, b.signer.Address(), route, b.balance, bid, txBytes)
	if err != nil {
		b.logger.LogError(err, "building bundle")
		return
	}

	outcome := b.submitter.Submit(ctx, bndl)
	b.logger.LogSubmission(route, bid, outcome)
	if outcome == auction.Success {
		b.needBalance = true
	}
}

// refreshBalance re-queries the arb denom balance. On failure the chain
// client is rebuilt and the stale balance kept until the next attempt.
func (b *Backrunner) refreshBalance(ctx context.Context) error {
	balance, err := b.client.Balance(ctx, b.signer.Address(), b.cfg.Bot.ArbDenom)
	if err != nil {
		b.client = chain.NewClient(b.cfg.Chain)
		return fmt.Errorf("query %s balance: %w", b.cfg.Bot.ArbDenom, err)
	}
	b.balance = balance
	b.needBalance = false
	return nil
}

// refreshReserves runs the batch reserve refresh, backing off after a
// failed batch so a flapping node isn't hammered every poll.
func (b *Backrunner) refreshReserves(ctx context.Context) {
	if time.Now().Before(b.nextRefresh) {
		return
	}
	if err := b.registry.RefreshReserves(ctx, b.client, b.cfg.Bot.RefreshWorkers); err != nil {
		b.logger.LogError(err, "refreshing reserves")
		b.nextRefresh = time.Now().Add(b.cfg.Bot.RefreshBackoff)
		return
	}
	b.nextRefresh = time.Time{}
}

// Close shuts down the backrunner
func (b *Backrunner) Close() {
	if err := b.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close pool catalog")
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Create backrunner
	backrunner, err := NewBackrunner(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create backrunner")
	}
	defer backrunner.Close()

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	// Start the backrunner
	if err := backrunner.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Backrunner error")
	}

	log.Info().Msg("Backrunner stopped")
}
