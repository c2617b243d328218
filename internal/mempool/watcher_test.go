package mempool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	batches [][]string
	err     error
	calls   int
}

func (f *fakeSource) UnconfirmedTxs(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.batches) {
		return nil, nil
	}
	batch := f.batches[f.calls]
	f.calls++
	return batch, nil
}

func TestPollReturnsOnlyFreshTxs(t *testing.T) {
	src := &fakeSource{batches: [][]string{
		{"txA", "txB"},
		{"txB", "txC"},
	}}
	w := New(src, 100)
	ctx := context.Background()

	fresh, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"txA", "txB"}, fresh)

	fresh, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"txC"}, fresh)
}

func TestPollPropagatesTransportError(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	w := New(src, 100)

	_, err := w.Poll(context.Background())
	assert.Error(t, err)
}

func TestSeenSetEvictsOldestAtCapacity(t *testing.T) {
	s := newSeenSet(3)
	assert.True(t, s.add("a"))
	assert.True(t, s.add("b"))
	assert.True(t, s.add("c"))
	assert.False(t, s.add("a"))

	// Admitting a fourth member forgets only the oldest.
	assert.True(t, s.add("d"))
	assert.True(t, s.add("a"))
	assert.False(t, s.add("c"))
	assert.False(t, s.add("d"))
}

func TestSeenSetLargeChurn(t *testing.T) {
	s := newSeenSet(10)
	for i := 0; i < 1000; i++ {
		require.True(t, s.add(fmt.Sprintf("tx%d", i)))
	}
	// The most recent window is still remembered.
	for i := 990; i < 1000; i++ {
		assert.False(t, s.add(fmt.Sprintf("tx%d", i)))
	}
	assert.Len(t, s.members, 10)
}
