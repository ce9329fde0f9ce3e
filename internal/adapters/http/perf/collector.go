package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes what a timing entry measured.
type EntryKind uint8

const (
	KindRequest EntryKind = iota // one HTTP request
	KindQuery                    // one database call
	KindDrop                     // one drop applied to a routine tree
)

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Path       string // HTTP route, SQL verb, or drop outcome
	StatusCode int    // HTTP status (0 otherwise)
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer for timing entries.
// When full, oldest entries are overwritten. Aggregation happens only on read.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	count   atomic.Int64
}

// NewCollector creates a collector with the given ring buffer capacity.
// PRE: none; size <= 0 selects DefaultRingSize
// POST: Returns a ready-to-use collector with pre-allocated storage
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{entries: make([]Entry, size)}
}

// Record appends an entry to the ring buffer. A nil collector discards it.
// PRE: none
// POST: Entry stored; if buffer full, oldest entry overwritten
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % len(c.entries)
	c.mu.Unlock()
	c.count.Add(1)
}

// TotalRecorded returns the total number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	if c == nil {
		return 0
	}
	return c.count.Load()
}

// Snapshot holds aggregated performance data computed on read.
type Snapshot struct {
	TotalRecorded  int64      `json:"total_recorded"`
	Requests       Latency    `json:"requests"`
	Drops          Latency    `json:"drops"`
	SlowestPaths   []PathStat `json:"slowest_paths"`
	SlowestQueries []PathStat `json:"slowest_queries"`
	DropOutcomes   []PathStat `json:"drop_outcomes"`
}

// Latency summarises the duration distribution of one entry kind.
type Latency struct {
	Count int     `json:"count"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// PathStat aggregates timing for a single path, verb or outcome.
type PathStat struct {
	Path    string  `json:"path"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	Count   int     `json:"count"`
	TotalMs float64 `json:"total_ms"`
}

// kindStats accumulates entries of one kind during a snapshot.
type kindStats struct {
	durations []float64
	paths     map[string]*PathStat
}

func (k *kindStats) add(e Entry) {
	k.durations = append(k.durations, e.DurationMs)
	if k.paths == nil {
		k.paths = make(map[string]*PathStat)
	}
	s, ok := k.paths[e.Path]
	if !ok {
		s = &PathStat{Path: e.Path}
		k.paths[e.Path] = s
	}
	s.Count++
	s.TotalMs += e.DurationMs
	s.MaxMs = math.Max(s.MaxMs, e.DurationMs)
}

func (k *kindStats) latency() Latency {
	l := Latency{Count: len(k.durations)}
	if l.Count == 0 {
		return l
	}
	sort.Float64s(k.durations)
	l.P50Ms = percentile(k.durations, 50)
	l.P95Ms = percentile(k.durations, 95)
	l.P99Ms = percentile(k.durations, 99)
	return l
}

// Snapshot computes aggregated stats over entries recorded at or after since.
// It sorts, so it belongs on admin reads only.
// PRE: topN > 0
// POST: Returns percentiles per kind and top-N lists by average duration
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, len(c.entries))
	copy(buf, c.entries)
	c.mu.Unlock()

	stats := map[EntryKind]*kindStats{
		KindRequest: {},
		KindQuery:   {},
		KindDrop:    {},
	}
	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		if k, ok := stats[e.Kind]; ok {
			k.add(e)
		}
	}

	return Snapshot{
		TotalRecorded:  c.TotalRecorded(),
		Requests:       stats[KindRequest].latency(),
		Drops:          stats[KindDrop].latency(),
		SlowestPaths:   topByAvg(stats[KindRequest].paths, topN),
		SlowestQueries: topByAvg(stats[KindQuery].paths, topN),
		DropOutcomes:   topByAvg(stats[KindDrop].paths, topN),
	}
}

// percentile returns the p-th percentile from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// topByAvg returns the top n stats sorted by average duration, slowest first.
func topByAvg(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs != list[j].AvgMs {
			return list[i].AvgMs > list[j].AvgMs
		}
		return list[i].Path < list[j].Path
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
