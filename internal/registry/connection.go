package registry

import (
	"sync"
	"time"

	"github.com/mcoot/codeduel-go/internal/model"
)

// Connection is the registry's handle for one transport session
type Connection struct {
	id          string
	connectedAt time.Time

	mu      sync.Mutex
	role    model.Role
	binding *Binding
	send    chan []byte
	closed  bool
}

// ID returns the connection id
func (c *Connection) ID() string {
	return c.id
}

// Role returns the role of the current binding, or the role given at registration
func (c *Connection) Role() model.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.binding != nil {
		return c.binding.Role
	}
	return c.role
}

// Binding returns the current lobby binding, if any
func (c *Connection) Binding() (Binding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.binding == nil {
		return Binding{}, false
	}
	return *c.binding, true
}

// Send queues a message without blocking. It returns false if the queue is
// full or the connection is closed.
func (c *Connection) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Outbound is drained by the transport writer; it is closed on unregister
func (c *Connection) Outbound() <-chan []byte {
	return c.send
}

func (c *Connection) setBinding(b *Binding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binding = b
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
