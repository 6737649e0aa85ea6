// Package stats tracks recent external renderer latencies.
package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
}

// Snapshot is a point-in-time aggregate of latency samples.
type Snapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// Latency keeps samples for one renderer within a rolling window.
type Latency struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewLatency(maxAge time.Duration) *Latency {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Latency{
		samples: make([]sample, 0, 64),
		maxAge:  maxAge,
	}
}

func (s *Latency) Record(d time.Duration) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{timestamp: now, durationMs: ms})
}

func (s *Latency) Snapshot() Snapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return Snapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

func (s *Latency) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	keep := s.samples[:0]
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			keep = append(keep, sm)
		}
	}
	s.samples = keep
}

// Registry holds one Latency per renderer name.
type Registry struct {
	mu     sync.Mutex
	maxAge time.Duration
	byName map[string]*Latency
}

func NewRegistry(maxAge time.Duration) *Registry {
	return &Registry{maxAge: maxAge, byName: make(map[string]*Latency)}
}

// For returns the Latency for name, creating it on first use.
func (r *Registry) For(name string) *Latency {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byName[name]
	if !ok {
		l = NewLatency(r.maxAge)
		r.byName[name] = l
	}
	return l
}

// Snapshot returns a snapshot per renderer name.
func (r *Registry) Snapshot() map[string]Snapshot {
	r.mu.Lock()
	names := make(map[string]*Latency, len(r.byName))
	for k, v := range r.byName {
		names[k] = v
	}
	r.mu.Unlock()

	out := make(map[string]Snapshot, len(names))
	for k, v := range names {
		out[k] = v.Snapshot()
	}
	return out
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
