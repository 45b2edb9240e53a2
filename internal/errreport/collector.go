package errreport

import (
	"log/slog"
	"sync"

	"github.com/vmunix/pixport/internal/events"
	"github.com/vmunix/pixport/internal/importer"
)

// Collector is a bus observer that turns failure events into Records.
type Collector struct {
	env Environment
	log *slog.Logger

	mu      sync.Mutex
	records []*Record
}

// NewCollector creates a collector stamping records with appVersion.
func NewCollector(appVersion string, log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{env: Snapshot(appVersion), log: log}
}

// Update implements events.Observer.
func (c *Collector) Update(source any, e events.Event) {
	switch ev := e.(type) {
	case *events.MissingLibrary:
		c.log.Warn("missing library", "file", ev.Subject(), "error", ev.Message)
	case *events.FileException:
		c.log.Error("file exception", "file", ev.Subject(), "format", ev.Format, "error", ev.Message)
		c.add(ev.EventType(), ev.Subject(), ev.UsedFiles, ev.Format, ev.Message)
	case *events.InternalException:
		c.log.Error("internal exception", "file", ev.Subject(), "format", ev.Format, "error", ev.Message)
		c.add(ev.EventType(), ev.Subject(), ev.UsedFiles, ev.Format, ev.Message)
	case *events.UnknownFormat:
		// Recorded only for files the coordinator tried to import.
		if _, ok := source.(*importer.Coordinator); ok {
			c.add(ev.EventType(), ev.Subject(), []string{ev.Subject()}, "", ev.Message)
		}
		c.log.Debug("unknown format", "file", ev.Subject())
	}
}

func (c *Collector) add(eventType, file string, used []string, format, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, newRecord(eventType, file, used, format, msg, c.env))
}

// Records returns a copy of every collected record.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	for i, r := range c.records {
		out[i] = *r
	}
	return out
}

// Len returns the number of collected records.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// pending returns the records still awaiting submission.
func (c *Collector) pending() []*Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Record
	for _, r := range c.records {
		if r.Status == StatusPending {
			out = append(out, r)
		}
	}
	return out
}

func (c *Collector) setStatus(r *Record, s Status, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r.Status = s
	if reply != "" {
		r.Reply = reply
	}
}
