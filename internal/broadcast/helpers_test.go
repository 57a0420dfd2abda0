package broadcast

import (
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mcoot/codeduel-go/internal/metrics"
)

func testCounter(m *metrics.Metrics, stage string) float64 {
	return testutil.ToFloat64(m.MessagesDropped.WithLabelValues(stage))
}
