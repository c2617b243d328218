package auction

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Outcome is the terminal state of one bundle submission.
type Outcome int

const (
	// Failed: the auction rejected the bundle or the transport gave out.
	Failed Outcome = iota
	// Success: the bundle simulated successfully and was accepted. The
	// caller should refresh its account balance before the next trade.
	Success
	// GaveUp: the retryable condition never cleared within the attempt
	// budget.
	GaveUp
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case GaveUp:
		return "gave up"
	default:
		return "failed"
	}
}

// Submitter drives a bundle through the auction's retry protocol.
type Submitter struct {
	client      Client
	retryDelay  time.Duration
	maxAttempts int
}

// NewSubmitter creates a submitter with a bounded retry budget.
func NewSubmitter(client Client, retryDelay time.Duration, maxAttempts int) *Submitter {
	return &Submitter{
		client:      client,
		retryDelay:  retryDelay,
		maxAttempts: maxAttempts,
	}
}

// Submit sends the full bundle once and then, while the auction reports a
// retryable condition, resends the arbitrage transaction alone. The target
// is presumed included once the first submission reached the auction, so
// resending it would only double-execute it.
func (s *Submitter) Submit(ctx context.Context, bundle *types.Bundle) Outcome {
	result, err := s.client.SendBundle(ctx, bundle.Txs())
	if err != nil {
		log.Error().Err(err).Msg("Failed to submit bundle")
		return Failed
	}
	log.Info().Int("code", result.Code).Str("error", result.Error).Msg("Auction response")

	switch result.Code {
	case CodeSuccess:
		return Success
	case CodeNotAuctionVal, CodeDeliverTxFailed:
		return s.resendUntilSettled(ctx, bundle)
	default:
		return Failed
	}
}

func (s *Submitter) resendUntilSettled(ctx context.Context, bundle *types.Bundle) Outcome {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Failed
		case <-time.After(s.retryDelay):
		}

		result, err := s.client.SendBundle(ctx, bundle.ArbOnly())
		if err != nil {
			log.Error().Err(err).Int("attempt", attempt).Msg("Failed to resend bundle")
			return Failed
		}
		log.Info().Int("code", result.Code).Int("attempt", attempt).Msg("Auction retry response")

		switch result.Code {
		case CodeSuccess:
			return Success
		case CodeNotAuctionVal:
			// Not the auction proposer this block; try the next one.
		default:
			return Failed
		}
	}
	log.Warn().Int("attempts", s.maxAttempts).Msg("Giving up on bundle resubmission")
	return GaveUp
}
