// Package metrics provides a lightweight in-process metrics collector for
// the relay, without requiring the heavy prometheus/client_golang
// dependency. Counters are surfaced through the /status admin command.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the global metrics collector.
var Collector = NewMetricsCollector()

// MetricsCollector aggregates named counters.
type MetricsCollector struct {
	counters  sync.Map // name -> *Counter
	startTime time.Time
}

// NewMetricsCollector creates a new collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add increments the counter by n.
func (c *Counter) Add(n int64) { c.value.Add(n) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Counter returns or creates a counter with the given name.
func (c *MetricsCollector) Counter(name, help string) *Counter {
	if v, ok := c.counters.Load(name); ok {
		return v.(*Counter)
	}
	ctr := &Counter{name: name, help: help}
	actual, _ := c.counters.LoadOrStore(name, ctr)
	return actual.(*Counter)
}

// Sample is one counter reading.
type Sample struct {
	Name  string
	Value int64
}

// Snapshot returns all counters sorted by name.
func (c *MetricsCollector) Snapshot() []Sample {
	var samples []Sample
	c.counters.Range(func(_, value any) bool {
		ctr := value.(*Counter)
		samples = append(samples, Sample{Name: ctr.name, Value: ctr.Value()})
		return true
	})
	sort.Slice(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples
}

// Pre-defined metrics used across the relay.
var (
	MessagesForwarded = Collector.Counter("maxgram_messages_forwarded_total", "Messages relayed to Telegram")
	MessagesDeduped   = Collector.Counter("maxgram_messages_deduped_total", "Duplicate messages skipped")
	MessagesSkipped   = Collector.Counter("maxgram_messages_skipped_total", "Messages skipped (paused, unmonitored chat, removed)")
	SendFailures      = Collector.Counter("maxgram_send_failures_total", "Telegram API calls that returned an error")
)
