// Package metrics wires the Prometheus client for obsrelay.
//
// There is no global registry: the server builds one with NewRegistry, each
// component (hub, event log, NATS mirror) implements prometheus.Collector
// over its own counters, and Handler is mounted at /metrics. Value reads a
// counter back for components that also report stats in-process.
package metrics
