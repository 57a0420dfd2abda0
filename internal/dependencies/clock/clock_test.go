package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/codeduel-go/internal/dependencies/clock"
	"github.com/mcoot/codeduel-go/internal/dependencies/mocks"
)

func TestElapsed(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		since    time.Time
		advance  time.Duration
		expected time.Duration
	}{
		{name: "zero start", since: time.Time{}, advance: time.Minute, expected: 0},
		{name: "elapsed", since: start, advance: 90 * time.Second, expected: 90 * time.Second},
		{name: "future start clamps", since: start.Add(time.Hour), advance: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mocks.NewMockClock(start)
			c.Advance(tt.advance)
			assert.Equal(t, tt.expected, clock.Elapsed(c, tt.since))
		})
	}
}
