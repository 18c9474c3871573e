package ws

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/obsremote/obsrelay/internal/event"
	"github.com/obsremote/obsrelay/internal/metrics"
)

const (
	dropOversize     = "oversize"
	dropBackpressure = "backpressure"
)

type hubStats struct {
	peers               prometheus.GaugeFunc
	connections         prometheus.Counter
	disconnects         prometheus.Counter
	authFailures        prometheus.Counter
	rejectedStopping    prometheus.Counter
	invalid             prometheus.Counter
	idlePings           prometheus.Counter
	events              *prometheus.CounterVec
	dropped             *prometheus.CounterVec
	droppedOversize     prometheus.Counter
	droppedBackpressure prometheus.Counter
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: metrics.Namespace, Name: name, Help: help})
}

func newHubStats(peers func() float64) *hubStats {
	s := &hubStats{
		peers: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metrics.Namespace, Name: "peers", Help: "Currently connected peers.",
		}, peers),
		connections:      counter("connections_total", "Peers admitted."),
		disconnects:      counter("disconnects_total", "Peers removed from the registry."),
		authFailures:     counter("auth_failures_total", "WebSocket connections rejected by the token check."),
		rejectedStopping: counter("rejected_stopping_total", "WebSocket connections refused while the hub shuts down."),
		invalid:          counter("invalid_frames_total", "Frames answered with a negative ack."),
		idlePings:        counter("idle_pings_total", "Liveness pings requested for idle peers."),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace, Name: "events_total", Help: "Events accepted for broadcast.",
		}, []string{"source"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace, Name: "dropped_frames_total", Help: "Frames not delivered.",
		}, []string{"reason"}),
	}
	for _, src := range []event.Source{event.SourceWS, event.SourceREST, event.SourceGRPC} {
		s.events.WithLabelValues(string(src))
	}
	s.droppedOversize = s.dropped.WithLabelValues(dropOversize)
	s.droppedBackpressure = s.dropped.WithLabelValues(dropBackpressure)
	return s
}

func (s *hubStats) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		s.peers, s.connections, s.disconnects, s.authFailures, s.rejectedStopping,
		s.invalid, s.idlePings, s.events, s.dropped,
	}
}

func (s *hubStats) countSource(src event.Source) {
	switch src {
	case event.SourceWS, event.SourceREST, event.SourceGRPC:
		s.events.WithLabelValues(string(src)).Inc()
	}
}

func (s *hubStats) countEvent(ev event.Event) {
	src, _ := ev.Fields[event.KeySource].(string)
	s.countSource(event.Source(src))
}

// Describe implements prometheus.Collector.
func (h *Hub) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range h.stats.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (h *Hub) Collect(ch chan<- prometheus.Metric) {
	for _, c := range h.stats.collectors() {
		c.Collect(ch)
	}
}
