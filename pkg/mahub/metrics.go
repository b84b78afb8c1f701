// ABOUTME: Prometheus collectors for the hub client
// ABOUTME: Counts commands, pending requests, reconnects and routed events
package mahub

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Resonate-Protocol/mahub-go/pkg/protocol"
)

const metricsNamespace = "mahub"

// Metrics holds the client's collectors
type Metrics struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	pending         prometheus.Gauge
	reconnects      prometheus.Counter
	eventsTotal     *prometheus.CounterVec
}

// NewMetrics registers the client collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_total",
			Help:      "Total number of commands sent to the hub by outcome",
		}, []string{"command", "status"}),

		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "command_duration_seconds",
			Help:      "Time from sending a command to its resolution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"command"}),

		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pending_commands",
			Help:      "Number of commands awaiting a response",
		}),

		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reconnects_total",
			Help:      "Total number of reconnection attempts",
		}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Total number of events received by name",
		}, []string{"event"}),
	}
}

// commandStatus maps an outcome to a low-cardinality label
func commandStatus(err error) string {
	var timeoutErr *protocol.CommandTimeoutError
	var serverErr *protocol.ServerError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &serverErr):
		return "server_error"
	case errors.Is(err, protocol.ErrNotConnected):
		return "not_connected"
	default:
		return "error"
	}
}
