// Package ws is the WebSocket transport. Each connection gets a read pump
// that decodes and dispatches commands and a write pump that drains the
// connection's outbound queue and keeps the peer alive with pings.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/codeduel-go/internal/api/apierr"
	"github.com/mcoot/codeduel-go/internal/broadcast"
	"github.com/mcoot/codeduel-go/internal/dependencies/clock"
	"github.com/mcoot/codeduel-go/internal/dependencies/ids"
	"github.com/mcoot/codeduel-go/internal/metrics"
	"github.com/mcoot/codeduel-go/internal/registry"
	"github.com/mcoot/codeduel-go/internal/services/attack"
	"github.com/mcoot/codeduel-go/internal/services/match"
	"github.com/mcoot/codeduel-go/internal/services/matchmaking"
	"github.com/mcoot/codeduel-go/internal/services/relay"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 128 * 1024
)

// Services are the command handlers a connection dispatches to
type Services struct {
	Matchmaking *matchmaking.Service
	Engine      *match.Engine
	Attacks     *attack.Service
	Relay       *relay.Service
}

// Server upgrades HTTP requests and runs the connection pumps
type Server struct {
	registry *registry.Registry
	pub      broadcast.Publisher
	services Services
	ids      ids.Generator
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*websocket.Conn

	// in-flight submissions
	grading sync.WaitGroup
}

// NewServer creates a WebSocket server. An empty allowedOrigins accepts
// same-host origins only; "*" accepts any origin.
func NewServer(
	reg *registry.Registry,
	pub broadcast.Publisher,
	services Services,
	idGen ids.Generator,
	clk clock.Clock,
	allowedOrigins []string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Server {
	return &Server{
		registry: reg,
		pub:      pub,
		services: services,
		ids:      idGen,
		clock:    clk,
		metrics:  m,
		logger:   logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		conns: make(map[string]*websocket.Conn),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}

	connID := s.ids.NewID()
	c := s.registry.Register(connID, "")
	s.mu.Lock()
	s.conns[connID] = conn
	s.mu.Unlock()
	s.metrics.Connections.Inc()

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{conn: c, ctx: ctx, grading: make(chan struct{}, 1)}

	go s.writePump(conn, c)
	s.readPump(conn, sess)

	cancel()
	s.mu.Lock()
	delete(s.conns, connID)
	s.mu.Unlock()
	s.metrics.Connections.Dec()
	if err := s.registry.Unregister(connID); err != nil {
		s.logger.Debug("unregister after close failed",
			slog.String("conn_id", connID),
			slog.Any("error", err))
	}
}

// Close drops every open connection. Their read pumps then run the usual
// disconnect path.
func (s *Server) Close() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for _, conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// Wait blocks until in-flight submissions have been graded and applied
func (s *Server) Wait() {
	s.grading.Wait()
}

func (s *Server) readPump(conn *websocket.Conn, sess *session) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket closed unexpectedly",
					slog.String("conn_id", sess.conn.ID()),
					slog.Any("error", err))
			}
			return
		}
		s.dispatch(sess, raw)
	}
}

func (s *Server) writePump(conn *websocket.Conn, c *registry.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Registry closed the queue
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// recoverPanic reports a handler panic to the client instead of killing the connection
func (s *Server) recoverPanic(connID string) {
	if r := recover(); r != nil {
		s.logger.Error("panic recovered",
			slog.Any("error", r),
			slog.String("stack", string(debug.Stack())),
			slog.String("conn_id", connID))
		s.sendError(connID, false, apierr.NewInternalError())
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") {
			return true
		}
		if len(allowed) > 0 {
			return slices.Contains(allowed, origin)
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	}
}
