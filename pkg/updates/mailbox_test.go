package updates

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxFIFO(t *testing.T) {
	m := NewMailbox()
	for i := 1; i <= 5; i++ {
		m.Append(Update{Category: CategoryArea, Seq: SequenceID(i)})
	}

	for i := 1; i <= 5; i++ {
		u, ok := m.TryTake()
		require.True(t, ok)
		assert.Equal(t, SequenceID(i), u.Seq)
	}

	_, ok := m.TryTake()
	assert.False(t, ok, "mailbox should be empty")
}

func TestMailboxHasMore(t *testing.T) {
	m := NewMailbox()
	assert.False(t, m.HasMore())

	m.Append(Update{Category: CategoryBearing, Seq: 1})
	assert.True(t, m.HasMore())
	assert.Equal(t, 1, m.Len())

	_, ok := m.TryTake()
	require.True(t, ok)
	assert.False(t, m.HasMore())
}

func TestMailboxTakeBlocksUntilAppend(t *testing.T) {
	m := NewMailbox()
	ctx := context.Background()

	go func() {
		time.Sleep(20 * time.Millisecond)
		m.Append(Update{Category: CategorySources, Seq: 42})
	}()

	u, err := m.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, SequenceID(42), u.Seq)
}

func TestMailboxTakeHonorsContext(t *testing.T) {
	m := NewMailbox()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Take(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMailboxReadyWakesConsumer(t *testing.T) {
	m := NewMailbox()

	m.Append(Update{Category: CategoryConfig, Seq: 1})

	select {
	case <-m.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready signal never arrived")
	}

	u, ok := m.TryTake()
	require.True(t, ok)
	assert.Equal(t, SequenceID(1), u.Seq)

	// Queue is drained: no stale signal may remain.
	select {
	case <-m.Ready():
		t.Fatal("stale ready signal after queue drained")
	default:
	}
}

func TestMailboxReadyPersistsWhileNonEmpty(t *testing.T) {
	m := NewMailbox()
	m.Append(Update{Seq: 1})
	m.Append(Update{Seq: 2})

	_, ok := m.TryTake()
	require.True(t, ok)

	// One update still queued, so the signal must be re-armed.
	select {
	case <-m.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready signal lost while queue non-empty")
	}
}

func TestMailboxConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 200

	m := NewMailbox()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				m.Append(Update{Category: CategoryBearing, Seq: SequenceID(i)})
			}
		}()
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := m.TryTake(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, producers*perProducer, count)
}
