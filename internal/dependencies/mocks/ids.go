package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/codeduel-go/internal/dependencies/ids"
)

// MockIDs hands out predictable sequential ids
type MockIDs struct {
	mu     sync.Mutex
	prefix string
	next   int
}

var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a generator producing prefix-1, prefix-2, ...
func NewMockIDs(prefix string) *MockIDs {
	return &MockIDs{prefix: prefix}
}

// NewID returns the next sequential id
func (g *MockIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next)
}
