package output

import (
	"math/big"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/devlongs/cosmos-backrunner/internal/auction"
	"github.com/devlongs/cosmos-backrunner/internal/config"
	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Logger handles output formatting and run statistics
type Logger struct {
	stats *Stats
}

// Stats tracks backrunning statistics
type Stats struct {
	TxsScanned       uint64
	SwapsDecoded     uint64
	RoutesEvaluated  uint64
	BundlesSubmitted uint64
	BundlesLanded    uint64
	TotalProfit      *big.Int
	TotalBids        *big.Int
	StartTime        time.Time
}

// NewLogger creates a logger and configures the global zerolog output
func NewLogger(cfg config.LoggingConfig) *Logger {
	switch cfg.Format {
	case "json":
		// Default JSON output
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	switch cfg.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}

	return &Logger{
		stats: &Stats{
			TotalProfit: big.NewInt(0),
			TotalBids:   big.NewInt(0),
			StartTime:   time.Now(),
		},
	}
}

// LogScanned records one processed mempool transaction
func (l *Logger) LogScanned(tx *types.PendingTransaction) {
	l.stats.TxsScanned++
	l.stats.SwapsDecoded += uint64(len(tx.Swaps))
	l.stats.RoutesEvaluated += uint64(len(tx.Routes))

	if len(tx.Swaps) > 0 {
		log.Debug().
			Str("sender", tx.Sender).
			Int("swaps", len(tx.Swaps)).
			Int("routes", len(tx.Routes)).
			Msg("Decoded mempool transaction")
	}
}

// LogSubmission records a bundle submission and its outcome
func (l *Logger) LogSubmission(route *types.Route, bid *big.Int, outcome auction.Outcome) {
	l.stats.BundlesSubmitted++
	if outcome == auction.Success {
		l.stats.BundlesLanded++
		l.stats.TotalProfit.Add(l.stats.TotalProfit, route.Profit)
		l.stats.TotalBids.Add(l.stats.TotalBids, bid)
	}

	log.Info().
		Str("outcome", outcome.String()).
		Str("profit", route.Profit.String()).
		Str("bid", bid.String()).
		Str("path", buildPathString(route)).
		Msg("Bundle submitted")
}

// LogStats logs current statistics
func (l *Logger) LogStats() {
	elapsed := time.Since(l.stats.StartTime)

	log.Info().
		Uint64("txsScanned", l.stats.TxsScanned).
		Uint64("swapsDecoded", l.stats.SwapsDecoded).
		Uint64("routesEvaluated", l.stats.RoutesEvaluated).
		Uint64("bundlesSubmitted", l.stats.BundlesSubmitted).
		Uint64("bundlesLanded", l.stats.BundlesLanded).
		Str("totalProfit", l.stats.TotalProfit.String()).
		Str("totalBids", l.stats.TotalBids.String()).
		Dur("uptime", elapsed).
		Msg("Backrunner stats")
}

// LogError logs an error
func (l *Logger) LogError(err error, context string) {
	log.Error().
		Err(err).
		Str("context", context).
		Msg("Error occurred")
}

// GetStats returns current statistics
func (l *Logger) GetStats() *Stats {
	return l.stats
}

// buildPathString creates a human-readable denom flow for a route
func buildPathString(route *types.Route) string {
	path := ""
	for i, hop := range route.Pools {
		if hop == nil {
			return path
		}
		if i == 0 {
			path = hop.InputDenom
		}
		path += " -> " + hop.OutputDenom
	}
	return path
}
