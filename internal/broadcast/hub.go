package broadcast

import (
	"log/slog"
	"sync"

	"github.com/mcoot/codeduel-go/internal/metrics"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/registry"
)

const hubQueueSize = 256

// outbound carries the recipients resolved at publish time, so a connection
// bound just before a publish sees the event and one unbound after it still does
type outbound struct {
	kind    model.EventKind
	data    []byte
	targets []*registry.Connection
}

// Hub delivers one lobby's events in publish order
type Hub struct {
	lobbyID model.LobbyID
	metrics *metrics.Metrics
	logger  *slog.Logger

	queue    chan outbound
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func newHub(lobbyID model.LobbyID, m *metrics.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		lobbyID: lobbyID,
		metrics: m,
		logger:  logger.With(slog.String("lobby_id", string(lobbyID))),
		queue:   make(chan outbound, hubQueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run starts the hub's delivery loop
func (h *Hub) Run() {
	defer close(h.stopped)
	for {
		select {
		case msg := <-h.queue:
			h.deliver(msg)
		case <-h.done:
			// Flush what was queued before close so final events still go out
			for {
				select {
				case msg := <-h.queue:
					h.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (h *Hub) deliver(msg outbound) {
	sent, dropped := 0, 0
	for _, c := range msg.targets {
		if c.Send(msg.data) {
			sent++
			continue
		}
		dropped++
		h.metrics.MessagesDropped.WithLabelValues("connection").Inc()
		h.logger.Warn("message dropped - connection buffer full",
			slog.String("conn_id", c.ID()),
			slog.String("event", string(msg.kind)))
	}
	if dropped > 0 {
		h.logger.Warn("broadcast partial failure",
			slog.String("event", string(msg.kind)),
			slog.Int("sent", sent),
			slog.Int("dropped", dropped))
	}
}

// enqueue adds a message without blocking the caller
func (h *Hub) enqueue(msg outbound) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.queue <- msg:
	default:
		h.metrics.MessagesDropped.WithLabelValues("hub").Inc()
		h.logger.Warn("broadcast dropped - hub queue full", slog.String("event", string(msg.kind)))
	}
}

// Close stops the hub after flushing queued messages
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Wait blocks until the delivery loop has exited
func (h *Hub) Wait() {
	<-h.stopped
}

// HubManager owns one hub per lobby plus the global hub
type HubManager struct {
	metrics     *metrics.Metrics
	logger      *slog.Logger
	lobbyExists func(model.LobbyID) bool

	mu     sync.RWMutex
	hubs   map[model.LobbyID]*Hub
	global *Hub
}

// HubOption configures a HubManager
type HubOption func(*HubManager)

// WithLobbyCheck stops hubs being created for lobbies that exists reports
// as gone. Lobbies must be deleted before their hub is removed.
func WithLobbyCheck(exists func(model.LobbyID) bool) HubOption {
	return func(m *HubManager) {
		m.lobbyExists = exists
	}
}

// NewHubManager creates a HubManager and starts the global hub
func NewHubManager(m *metrics.Metrics, logger *slog.Logger, opts ...HubOption) *HubManager {
	mgr := &HubManager{
		metrics: m,
		logger:  logger.With(slog.String("component", "broadcast")),
		hubs:    make(map[model.LobbyID]*Hub),
	}
	for _, opt := range opts {
		opt(mgr)
	}
	mgr.global = newHub("", m, mgr.logger)
	go mgr.global.Run()
	return mgr
}

// GetOrCreateHub returns the hub for a lobby, creating one if it doesn't
// exist. It returns nil for a lobby that has already been deleted.
func (m *HubManager) GetOrCreateHub(lobbyID model.LobbyID) *Hub {
	m.mu.RLock()
	hub, ok := m.hubs[lobbyID]
	m.mu.RUnlock()
	if ok {
		return hub
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if hub, ok := m.hubs[lobbyID]; ok {
		return hub
	}
	// Checked under the lock: a delete seen as not yet happened is followed
	// by a RemoveHub that will find this hub
	if m.lobbyExists != nil && !m.lobbyExists(lobbyID) {
		return nil
	}
	hub = newHub(lobbyID, m.metrics, m.logger)
	m.hubs[lobbyID] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a lobby, or nil if it doesn't exist
func (m *HubManager) GetHub(lobbyID model.LobbyID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[lobbyID]
}

// RemoveHub closes a lobby's hub once its queue is flushed
func (m *HubManager) RemoveHub(lobbyID model.LobbyID) {
	m.mu.Lock()
	hub, ok := m.hubs[lobbyID]
	delete(m.hubs, lobbyID)
	m.mu.Unlock()

	if ok {
		hub.Close()
		m.logger.Debug("hub removed", slog.String("lobby_id", string(lobbyID)))
	}
}

// deliverDetached sends msg from the caller's goroutine for a lobby without a hub
func (m *HubManager) deliverDetached(lobbyID model.LobbyID, msg outbound) {
	h := &Hub{
		lobbyID: lobbyID,
		metrics: m.metrics,
		logger:  m.logger.With(slog.String("lobby_id", string(lobbyID))),
	}
	h.deliver(msg)
}

// HubCount returns the number of lobby hubs
func (m *HubManager) HubCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hubs)
}

// Close stops every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	hubs := m.hubs
	m.hubs = make(map[model.LobbyID]*Hub)
	m.mu.Unlock()

	for _, hub := range hubs {
		hub.Close()
	}
	m.global.Close()
}
