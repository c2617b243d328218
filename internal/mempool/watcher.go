// Package mempool polls the node's unconfirmed transaction set and hands
// previously unseen transactions downstream.
package mempool

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// TxSource lists the node's pending transactions. Satisfied by the chain
// client.
type TxSource interface {
	UnconfirmedTxs(ctx context.Context) ([]string, error)
}

// Watcher tracks which pending transactions have already been processed.
type Watcher struct {
	source TxSource
	seen   *seenSet
}

// New creates a watcher remembering the last capacity transaction hashes.
func New(source TxSource, capacity int) *Watcher {
	return &Watcher{
		source: source,
		seen:   newSeenSet(capacity),
	}
}

// Poll fetches the current unconfirmed set and returns the transactions not
// seen in a previous poll, in mempool order.
func (w *Watcher) Poll(ctx context.Context) ([]string, error) {
	txs, err := w.source.UnconfirmedTxs(ctx)
	if err != nil {
		return nil, err
	}

	var fresh []string
	for _, raw := range txs {
		if w.seen.add(txHash(raw)) {
			fresh = append(fresh, raw)
		}
	}
	return fresh, nil
}

func txHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// seenSet is a fixed-capacity set with FIFO eviction: once full, admitting
// a new hash forgets the oldest one instead of dropping the whole history.
type seenSet struct {
	members map[string]struct{}
	order   []string
	next    int
}

func newSeenSet(capacity int) *seenSet {
	if capacity <= 0 {
		capacity = 1
	}
	return &seenSet{
		members: make(map[string]struct{}, capacity),
		order:   make([]string, capacity),
	}
}

// add returns true when the hash was not already present.
func (s *seenSet) add(hash string) bool {
	if _, ok := s.members[hash]; ok {
		return false
	}
	if evicted := s.order[s.next]; evicted != "" {
		delete(s.members, evicted)
	}
	s.members[hash] = struct{}{}
	s.order[s.next] = hash
	s.next = (s.next + 1) % len(s.order)
	return true
}
