package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mcoot/codeduel-go/internal/protocol"
)

// DefaultWait bounds how long helpers wait for asynchronous delivery
const DefaultWait = 2 * time.Second

// NextEnvelope reads the next frame from an outbound queue or fails the test
func NextEnvelope(t testing.TB, ch <-chan []byte) protocol.Envelope {
	t.Helper()
	select {
	case raw, ok := <-ch:
		if !ok {
			t.Fatalf("outbound queue closed")
		}
		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode frame %q: %v", raw, err)
		}
		return env
	case <-time.After(DefaultWait):
		t.Fatalf("timed out waiting for event")
	}
	return protocol.Envelope{}
}

// WaitForEvent skips frames until one with the given event name arrives
func WaitForEvent(t testing.TB, ch <-chan []byte, event string) protocol.Envelope {
	t.Helper()
	deadline := time.After(DefaultWait)
	for {
		select {
		case raw, ok := <-ch:
			if !ok {
				t.Fatalf("outbound queue closed waiting for %s", event)
			}
			var env protocol.Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				t.Fatalf("decode frame %q: %v", raw, err)
			}
			if env.Event == event {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", event)
		}
	}
}

// Drain collects event names that arrive within the wait window
func Drain(ch <-chan []byte, wait time.Duration) []string {
	var names []string
	timeout := time.After(wait)
	for {
		select {
		case raw, ok := <-ch:
			if !ok {
				return names
			}
			var env protocol.Envelope
			if json.Unmarshal(raw, &env) == nil {
				names = append(names, env.Event)
			}
		case <-timeout:
			return names
		}
	}
}

// DecodeData unmarshals an envelope's data into T or fails the test
func DecodeData[T any](t testing.TB, env protocol.Envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode %s data: %v", env.Event, err)
	}
	return v
}
