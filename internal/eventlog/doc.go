// Package eventlog persists enriched events on a best-effort basis.
//
// Sink.Append never blocks and never reports failure to the caller: logging
// must not affect delivery or connection handling. DailyFile appends one JSON
// object per line to <dir>/events-YYYY-MM-DD.jsonl (UTC day at append time)
// through a single writer goroutine. NATS mirrors events to a subject for
// external consumers. Multi fans one event out to several sinks and Nop
// discards everything.
package eventlog
