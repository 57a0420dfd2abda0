package mocks

import (
	"sync"

	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/registry"
)

// PublishedEvent is one call recorded by MockPublisher
type PublishedEvent struct {
	LobbyID  model.LobbyID
	ConnID   string
	Kind     model.EventKind
	Payload  any
	Audience registry.Audience
	Global   bool
}

// MockPublisher records every publish call in order
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	closed []model.LobbyID
}

// NewMockPublisher creates an empty MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Publish(lobbyID model.LobbyID, kind model.EventKind, payload any, audience registry.Audience) {
	p.record(PublishedEvent{LobbyID: lobbyID, Kind: kind, Payload: payload, Audience: audience})
}

func (p *MockPublisher) PublishGlobal(kind model.EventKind, payload any) {
	p.record(PublishedEvent{Kind: kind, Payload: payload, Global: true})
}

func (p *MockPublisher) Reply(lobbyID model.LobbyID, connID string, kind model.EventKind, payload any) {
	p.record(PublishedEvent{LobbyID: lobbyID, ConnID: connID, Kind: kind, Payload: payload})
}

func (p *MockPublisher) CloseLobby(lobbyID model.LobbyID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, lobbyID)
}

func (p *MockPublisher) record(e PublishedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

// Events returns a copy of everything recorded so far
func (p *MockPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

// Kinds returns the recorded event kinds in order
func (p *MockPublisher) Kinds() []model.EventKind {
	events := p.Events()
	kinds := make([]model.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

// OfKind returns the recorded events of one kind
func (p *MockPublisher) OfKind(kind model.EventKind) []PublishedEvent {
	var out []PublishedEvent
	for _, e := range p.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Closed returns the lobbies passed to CloseLobby
func (p *MockPublisher) Closed() []model.LobbyID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.LobbyID, len(p.closed))
	copy(out, p.closed)
	return out
}

// Reset forgets recorded calls
func (p *MockPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
	p.closed = nil
}

// MockRecorder collects match records handed to match history
type MockRecorder struct {
	mu      sync.Mutex
	matches []model.MatchRecord
}

func (r *MockRecorder) RecordMatch(rec model.MatchRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, rec)
}

// Matches returns the recorded match results
func (r *MockRecorder) Matches() []model.MatchRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.MatchRecord, len(r.matches))
	copy(out, r.matches)
	return out
}
