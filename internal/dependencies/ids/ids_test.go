package ids

import (
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsValidULID(t *testing.T) {
	id := New().NewID()

	_, err := ulid.ParseStrict(id)
	require.NoError(t, err)
}

func TestNewIDIsMonotonic(t *testing.T) {
	g := New()
	prev := g.NewID()
	for i := 0; i < 100; i++ {
		next := g.NewID()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestNewIDUniqueAcrossGoroutines(t *testing.T) {
	g := New()
	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := g.NewID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 400)
}
