package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/protocol"
)

const sessionWriteWait = 10 * time.Second

// Session is a WebSocket connection to the duel server
type Session struct {
	conn   *websocket.Conn
	events chan protocol.Envelope

	writeMu sync.Mutex
	once    sync.Once
}

// Dial opens a session. Events arrive on Events until the connection drops.
func Dial(ctx context.Context, wsURL string) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", wsURL, err)
	}

	s := &Session{
		conn:   conn,
		events: make(chan protocol.Envelope, 64),
	}
	go s.readLoop()
	return s, nil
}

func (s *Session) readLoop() {
	defer close(s.events)
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		s.events <- env
	}
}

// Events returns the inbound event stream
func (s *Session) Events() <-chan protocol.Envelope {
	return s.events
}

// Send writes one command frame
func (s *Session) Send(cmd protocol.Command) error {
	raw, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(sessionWriteWait))
	return s.conn.WriteMessage(websocket.TextMessage, raw)
}

// Close sends a close frame and drops the connection
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

// EventError turns error and join_error events into a Go error
func EventError(env protocol.Envelope) error {
	if env.Event != string(model.EventError) && env.Event != string(model.EventJoinError) {
		return nil
	}
	var payload model.ErrorPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return fmt.Errorf("%s: %s", env.Event, string(env.Data))
	}
	return fmt.Errorf("%s (%s)", payload.Message, payload.Code)
}
