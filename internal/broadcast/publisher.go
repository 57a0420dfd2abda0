package broadcast

import (
	"log/slog"

	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/protocol"
	"github.com/mcoot/codeduel-go/internal/registry"
)

// Publisher is what services use to emit events
type Publisher interface {
	// Publish queues an event for the audience of one lobby, in call order
	Publish(lobbyID model.LobbyID, kind model.EventKind, payload any, audience registry.Audience)
	// PublishGlobal queues an event for every connection
	PublishGlobal(kind model.EventKind, payload any)
	// Reply sends to one connection. With a lobby id it is queued behind that
	// lobby's earlier events; without one it is written straight to the connection.
	Reply(lobbyID model.LobbyID, connID string, kind model.EventKind, payload any)
	// CloseLobby flushes and drops a deleted lobby's hub
	CloseLobby(lobbyID model.LobbyID)
}

// Broadcaster implements Publisher on top of the HubManager
type Broadcaster struct {
	hubs     *HubManager
	registry *registry.Registry
	logger   *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubs *HubManager, reg *registry.Registry, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubs:     hubs,
		registry: reg,
		logger:   logger.With(slog.String("component", "broadcaster")),
	}
}

func (b *Broadcaster) Publish(lobbyID model.LobbyID, kind model.EventKind, payload any, audience registry.Audience) {
	data, ok := b.encode(kind, payload)
	if !ok {
		return
	}
	targets := b.registry.ConnectionsFor(lobbyID, audience)
	if len(targets) == 0 {
		return
	}
	b.dispatch(lobbyID, outbound{kind: kind, data: data, targets: targets})
}

func (b *Broadcaster) PublishGlobal(kind model.EventKind, payload any) {
	data, ok := b.encode(kind, payload)
	if !ok {
		return
	}
	targets := b.registry.All()
	if len(targets) == 0 {
		return
	}
	b.hubs.global.enqueue(outbound{kind: kind, data: data, targets: targets})
}

func (b *Broadcaster) Reply(lobbyID model.LobbyID, connID string, kind model.EventKind, payload any) {
	if connID == "" {
		return
	}
	c, err := b.registry.Lookup(connID)
	if err != nil {
		b.logger.Debug("reply to unknown connection",
			slog.String("conn_id", connID),
			slog.String("event", string(kind)))
		return
	}
	data, ok := b.encode(kind, payload)
	if !ok {
		return
	}
	if lobbyID != "" {
		b.dispatch(lobbyID, outbound{kind: kind, data: data, targets: []*registry.Connection{c}})
		return
	}
	if !c.Send(data) {
		b.hubs.metrics.MessagesDropped.WithLabelValues("connection").Inc()
		b.logger.Warn("reply dropped - connection buffer full",
			slog.String("conn_id", connID),
			slog.String("event", string(kind)))
	}
}

func (b *Broadcaster) CloseLobby(lobbyID model.LobbyID) {
	b.hubs.RemoveHub(lobbyID)
}

// dispatch queues msg on the lobby's hub. A lobby deleted while the publish
// was in flight has no hub left, so the message goes out directly.
func (b *Broadcaster) dispatch(lobbyID model.LobbyID, msg outbound) {
	if hub := b.hubs.GetOrCreateHub(lobbyID); hub != nil {
		hub.enqueue(msg)
		return
	}
	b.hubs.deliverDetached(lobbyID, msg)
}

func (b *Broadcaster) encode(kind model.EventKind, payload any) ([]byte, bool) {
	data, err := protocol.Encode(kind, payload)
	if err != nil {
		b.logger.Error("failed to encode event",
			slog.String("event", string(kind)),
			slog.Any("error", err))
		return nil, false
	}
	return data, true
}
