package updates

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencerStrictlyIncreasing(t *testing.T) {
	var s Sequencer
	prev := SequenceID(0)
	for i := 0; i < 100; i++ {
		id := s.Next()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestSequencerZeroNeverIssued(t *testing.T) {
	var s Sequencer
	assert.Equal(t, SequenceID(1), s.Next(), "first id must be 1 so zero means never-updated")
}

func TestSequencerConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 500

	var s Sequencer
	var wg sync.WaitGroup
	results := make([][]SequenceID, producers)

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			ids := make([]SequenceID, 0, perProducer)
			for i := 0; i < perProducer; i++ {
				ids = append(ids, s.Next())
			}
			results[p] = ids
		}(p)
	}
	wg.Wait()

	var all []SequenceID
	for _, ids := range results {
		all = append(all, ids...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	require.Len(t, all, producers*perProducer)
	for i := 1; i < len(all); i++ {
		require.NotEqual(t, all[i-1], all[i], "ids must never be reused")
	}
}
