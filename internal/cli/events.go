package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mcoot/codeduel-go/internal/protocol"
)

// StreamedEvent is one server event as printed with --output json
type StreamedEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PrintEvent writes one event line in the configured format
func (o *Output) PrintEvent(env protocol.Envelope) {
	now := time.Now()

	if o.format == "json" {
		jsonData, _ := json.Marshal(StreamedEvent{
			Time:  now,
			Event: env.Event,
			Data:  env.Data,
		})
		_, _ = fmt.Fprintln(o.out, string(jsonData))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	displayData := string(env.Data)
	if len(displayData) > 100 && !o.verbose {
		displayData = displayData[:100] + "..."
	}
	displayData = strings.ReplaceAll(displayData, "\n", " ")
	_, _ = fmt.Fprintf(o.out, "[%s] %s: %s\n", timestamp, env.Event, displayData)
}
