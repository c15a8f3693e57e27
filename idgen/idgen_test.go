package idgen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialGeneratorStartsAtOne(t *testing.T) {
	g := New()

	assert.Equal(t, ID(1), g.Generate())
	assert.Equal(t, ID(2), g.Generate())
}

func TestSequentialGeneratorIsUniqueUnderConcurrency(t *testing.T) {
	g := New()

	const workers, perWorker = 8, 100

	var (
		mu   sync.Mutex
		seen = make(map[ID]struct{})
		wg   sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := g.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
}

func TestRunIDsDiffer(t *testing.T) {
	a, b := RunID(), RunID()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
