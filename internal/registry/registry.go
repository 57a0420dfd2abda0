package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/codeduel-go/internal/model"
)

// AudienceKind selects which connections of a lobby receive an event
type AudienceKind string

const (
	AudienceAll         AudienceKind = "all"
	AudiencePlayers     AudienceKind = "players"
	AudienceSpectators  AudienceKind = "spectators"
	AudienceParticipant AudienceKind = "participant"
)

// Audience is an AudienceKind plus the target for single-participant delivery
type Audience struct {
	Kind        AudienceKind
	Participant model.ParticipantID
}

var (
	Everyone   = Audience{Kind: AudienceAll}
	Players    = Audience{Kind: AudiencePlayers}
	Spectators = Audience{Kind: AudienceSpectators}
)

// Only targets a single participant
func Only(id model.ParticipantID) Audience {
	return Audience{Kind: AudienceParticipant, Participant: id}
}

// Matches reports whether a connection bound as b belongs to the audience
func (a Audience) Matches(b Binding) bool {
	switch a.Kind {
	case AudienceAll:
		return true
	case AudiencePlayers:
		return b.Role == model.RolePlayer
	case AudienceSpectators:
		return b.Role == model.RoleSpectator
	case AudienceParticipant:
		return b.ParticipantID == a.Participant
	default:
		return false
	}
}

// Binding associates a connection with a lobby seat
type Binding struct {
	LobbyID       model.LobbyID
	ParticipantID model.ParticipantID
	Role          model.Role
}

// DisconnectHandler is told about a bound connection whose transport went away
type DisconnectHandler func(connID string, b Binding)

// Registry tracks live connections and which lobby each is bound to
type Registry struct {
	mu           sync.RWMutex
	conns        map[string]*Connection
	byLobby      map[model.LobbyID]map[string]*Connection
	onDisconnect DisconnectHandler
	sendBuffer   int
	logger       *slog.Logger
}

// New creates a Registry whose connections buffer up to sendBuffer outbound messages
func New(sendBuffer int, logger *slog.Logger) *Registry {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Registry{
		conns:      make(map[string]*Connection),
		byLobby:    make(map[model.LobbyID]map[string]*Connection),
		sendBuffer: sendBuffer,
		logger:     logger.With(slog.String("component", "registry")),
	}
}

// SetDisconnectHandler installs the callback run by Unregister for bound connections
func (r *Registry) SetDisconnectHandler(h DisconnectHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDisconnect = h
}

// Register adds a connection. Role may be empty until the connection joins a lobby.
func (r *Registry) Register(connID string, role model.Role) *Connection {
	c := &Connection{
		id:          connID,
		role:        role,
		send:        make(chan []byte, r.sendBuffer),
		connectedAt: time.Now(),
	}

	r.mu.Lock()
	if old, ok := r.conns[connID]; ok {
		r.removeLocked(old)
	}
	r.conns[connID] = c
	total := len(r.conns)
	r.mu.Unlock()

	r.logger.Debug("connection registered",
		slog.String("conn_id", connID),
		slog.Int("total_connections", total))
	return c
}

// Lookup returns the connection with the given id
func (r *Registry) Lookup(connID string) (*Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return nil, model.ErrConnectionNotFound
	}
	return c, nil
}

// Bind attaches a connection to a lobby seat, replacing any previous binding
func (r *Registry) Bind(connID string, lobbyID model.LobbyID, participantID model.ParticipantID, role model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		r.logger.Warn("bind on unknown connection", slog.String("conn_id", connID))
		return model.ErrConnectionNotFound
	}

	if prev, bound := c.Binding(); bound {
		r.detachLocked(prev.LobbyID, connID)
	}

	c.setBinding(&Binding{LobbyID: lobbyID, ParticipantID: participantID, Role: role})
	set, ok := r.byLobby[lobbyID]
	if !ok {
		set = make(map[string]*Connection)
		r.byLobby[lobbyID] = set
	}
	set[connID] = c
	return nil
}

// Unbind detaches a connection from its lobby and returns the old binding.
// It does not run the disconnect handler.
func (r *Registry) Unbind(connID string) (Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		r.logger.Warn("unbind on unknown connection", slog.String("conn_id", connID))
		return Binding{}, model.ErrConnectionNotFound
	}
	b, bound := c.Binding()
	if !bound {
		return Binding{}, model.ErrNotInLobby
	}
	r.detachLocked(b.LobbyID, connID)
	c.setBinding(nil)
	return b, nil
}

// UnbindLobby detaches every connection bound to a lobby and returns their ids
func (r *Registry) UnbindLobby(lobbyID model.LobbyID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.byLobby[lobbyID]
	ids := make([]string, 0, len(set))
	for id, c := range set {
		c.setBinding(nil)
		ids = append(ids, id)
	}
	delete(r.byLobby, lobbyID)
	return ids
}

// Unregister removes a connection after transport loss. A bound connection is
// reported to the disconnect handler so its seat is released.
func (r *Registry) Unregister(connID string) error {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("unregister on unknown connection", slog.String("conn_id", connID))
		return model.ErrConnectionNotFound
	}
	b, bound := c.Binding()
	r.removeLocked(c)
	handler := r.onDisconnect
	total := len(r.conns)
	r.mu.Unlock()

	r.logger.Debug("connection unregistered",
		slog.String("conn_id", connID),
		slog.Duration("connection_duration", time.Since(c.connectedAt)),
		slog.Int("total_connections", total))

	if bound && handler != nil {
		handler(connID, b)
	}
	return nil
}

// ConnectionsFor returns the connections bound to a lobby that match the audience
func (r *Registry) ConnectionsFor(lobbyID model.LobbyID, audience Audience) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byLobby[lobbyID]
	out := make([]*Connection, 0, len(set))
	for _, c := range set {
		if b, ok := c.Binding(); ok && audience.Matches(b) {
			out = append(out, c)
		}
	}
	return out
}

// All returns every registered connection
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Count returns the number of registered connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) removeLocked(c *Connection) {
	if b, ok := c.Binding(); ok {
		r.detachLocked(b.LobbyID, c.id)
	}
	delete(r.conns, c.id)
	c.close()
}

func (r *Registry) detachLocked(lobbyID model.LobbyID, connID string) {
	set, ok := r.byLobby[lobbyID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.byLobby, lobbyID)
	}
}
