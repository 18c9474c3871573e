package eventlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/obsremote/obsrelay/internal/event"
	"github.com/obsremote/obsrelay/internal/metrics"
)

// NATS mirrors every appended event to a NATS subject as JSON.
// Publishing is buffered by the NATS client, so Append does not block on the
// network; failures are logged and counted.
type NATS struct {
	conn    *nats.Conn
	subject string
	failed  prometheus.Counter
}

// NewNATS connects to url with automatic reconnection. Extra options are
// appended to the defaults.
func NewNATS(url, subject string, opts ...nats.Option) (*NATS, error) {
	defaults := []nats.Option{
		nats.Name("obsrelay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("eventlog: connecting to NATS at %s: %w", url, err)
	}
	return &NATS{
		conn:    nc,
		subject: subject,
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "nats",
			Name:      "failed_total",
			Help:      "Events that could not be mirrored to NATS.",
		}),
	}, nil
}

// Append publishes ev to the configured subject.
func (n *NATS) Append(ev event.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		n.failed.Inc()
		slog.Warn("eventlog: nats encode failed", "type", ev.Type, "err", err)
		return
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		n.failed.Inc()
		slog.Warn("eventlog: nats publish failed", "subject", n.subject, "err", err)
	}
}

// Failed returns the number of events that could not be published.
func (n *NATS) Failed() uint64 { return uint64(metrics.Value(n.failed)) }

// Describe implements prometheus.Collector.
func (n *NATS) Describe(ch chan<- *prometheus.Desc) { n.failed.Describe(ch) }

// Collect implements prometheus.Collector.
func (n *NATS) Collect(ch chan<- prometheus.Metric) { n.failed.Collect(ch) }

// Flush waits until buffered publishes reach the server.
func (n *NATS) Flush() error { return n.conn.Flush() }

// Close drains pending publishes and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
