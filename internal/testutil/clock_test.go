package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_Sequence(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())

	// Independent clocks replay the same sequence.
	assert.Equal(t, int64(1), NewDeterministicClock().Next())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock()
	const goroutines = 50
	const calls = 40

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				v := clock.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, goroutines*calls)
	for i := int64(1); i <= goroutines*calls; i++ {
		assert.True(t, seen[i], "missing value %d", i)
	}
}

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("")
	assert.Equal(t, "run-0001", g.Generate())
	assert.Equal(t, "run-0002", g.Generate())

	g = NewSequentialIDs("deep")
	assert.Equal(t, "deep-0001", g.Generate())
}

func TestNewStore(t *testing.T) {
	s := NewStore(t)
	n, err := s.MaxSeq(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
