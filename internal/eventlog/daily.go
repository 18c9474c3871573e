package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/obsremote/obsrelay/internal/event"
	"github.com/obsremote/obsrelay/internal/metrics"
)

// DefaultQueueSize is the number of pending records buffered before Append
// starts dropping.
const DefaultQueueSize = 1024

const dayLayout = "2006-01-02"

type record struct {
	day  string
	line []byte
}

// Stats counts what happened to appended records.
type Stats struct {
	Written uint64
	Dropped uint64
	Failed  uint64
}

// DailyFile appends events to one JSONL file per UTC day.
// Append is safe for concurrent use; Run owns the file handle.
type DailyFile struct {
	dir   string
	queue chan record
	now   func() time.Time // injectable for deterministic tests

	written prometheus.Counter
	dropped prometheus.Counter
	failed  prometheus.Counter

	// owned by Run
	day string
	f   *os.File
}

// NewDailyFile creates dir if needed and returns a sink writing into it.
// queueSize <= 0 selects DefaultQueueSize.
func NewDailyFile(dir string, queueSize int) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("eventlog: create dir %q: %w", dir, err)
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &DailyFile{
		dir:     dir,
		queue:   make(chan record, queueSize),
		now:     time.Now,
		written: counter("written_total", "Event records appended to the daily log."),
		dropped: counter("dropped_total", "Event records dropped because the write queue was full."),
		failed:  counter("failed_total", "Event records lost to encode, open or write errors."),
	}, nil
}

// Dir returns the directory files are written to.
func (d *DailyFile) Dir() string { return d.dir }

// PathFor returns the file that records appended on day t go to.
func (d *DailyFile) PathFor(t time.Time) string {
	return d.pathForDay(t.UTC().Format(dayLayout))
}

func (d *DailyFile) pathForDay(day string) string {
	return filepath.Join(d.dir, "events-"+day+".jsonl")
}

// Append encodes ev and queues it for the writer. A full queue drops the record.
func (d *DailyFile) Append(ev event.Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		d.failed.Inc()
		slog.Warn("eventlog: encode failed", "type", ev.Type, "err", err)
		return
	}
	rec := record{day: d.now().UTC().Format(dayLayout), line: append(line, '\n')}
	select {
	case d.queue <- rec:
	default:
		d.dropped.Inc()
		slog.Debug("eventlog: queue full, record dropped", "type", ev.Type)
	}
}

// Run writes queued records until ctx is cancelled, then drains what is
// already queued and closes the current file.
func (d *DailyFile) Run(ctx context.Context) {
	defer d.closeFile()
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case rec := <-d.queue:
					d.write(rec)
				default:
					return
				}
			}
		case rec := <-d.queue:
			d.write(rec)
		}
	}
}

// Stats returns a snapshot of the record counters.
func (d *DailyFile) Stats() Stats {
	return Stats{
		Written: uint64(metrics.Value(d.written)),
		Dropped: uint64(metrics.Value(d.dropped)),
		Failed:  uint64(metrics.Value(d.failed)),
	}
}

// Describe implements prometheus.Collector.
func (d *DailyFile) Describe(ch chan<- *prometheus.Desc) {
	d.written.Describe(ch)
	d.dropped.Describe(ch)
	d.failed.Describe(ch)
}

// Collect implements prometheus.Collector.
func (d *DailyFile) Collect(ch chan<- prometheus.Metric) {
	d.written.Collect(ch)
	d.dropped.Collect(ch)
	d.failed.Collect(ch)
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "eventlog",
		Name:      name,
		Help:      help,
	})
}

func (d *DailyFile) write(rec record) {
	if rec.day != d.day || d.f == nil {
		d.closeFile()
		path := d.pathForDay(rec.day)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			d.failed.Inc()
			slog.Warn("eventlog: open failed", "path", path, "err", err)
			return
		}
		d.f = f
		d.day = rec.day
	}
	if _, err := d.f.Write(rec.line); err != nil {
		d.failed.Inc()
		slog.Warn("eventlog: write failed", "day", d.day, "err", err)
		d.closeFile()
		return
	}
	d.written.Inc()
}

func (d *DailyFile) closeFile() {
	if d.f == nil {
		return
	}
	if err := d.f.Close(); err != nil {
		slog.Warn("eventlog: close failed", "day", d.day, "err", err)
	}
	d.f = nil
	d.day = ""
}
