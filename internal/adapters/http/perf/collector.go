package perf

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize bounds how many timings the server keeps in memory.
const DefaultRingSize = 4096

// EntryKind distinguishes request timings from query timings.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is one timing sample.
type Entry struct {
	Kind       EntryKind
	Path       string // "POST /signup" or "SELECT signup"
	StatusCode int    // 0 for queries
	DurationMs float64
	Timestamp  time.Time
}

// Collector keeps the most recent entries in a fixed ring.
// Record never blocks on aggregation; Snapshot does the work.
type Collector struct {
	mu    sync.Mutex
	ring  []Entry
	next  int
	total atomic.Int64
}

// NewCollector creates a collector holding up to size entries.
// PRE: size > 0, otherwise DefaultRingSize is used
// POST: Returns an empty collector
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{ring: make([]Entry, size)}
}

// Record stores e, overwriting the oldest entry once the ring is full.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.ring[c.next] = e
	c.next++
	if c.next == len(c.ring) {
		c.next = 0
	}
	c.mu.Unlock()
	c.total.Add(1)
}

// TotalRecorded is the number of entries ever recorded, including overwritten ones.
func (c *Collector) TotalRecorded() int64 {
	return c.total.Load()
}

// entriesSince copies the live entries stamped at or after since.
func (c *Collector) entriesSince(since time.Time) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, 0, len(c.ring))
	for _, e := range c.ring {
		if !e.Timestamp.IsZero() && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

// Latency summarises a set of durations.
type Latency struct {
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
	MaxMs float64 `json:"max_ms"`
}

// PathStat aggregates the samples of one route or statement label.
type PathStat struct {
	Path    string  `json:"path"`
	Count   int     `json:"count"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	TotalMs float64 `json:"total_ms"`
}

// Snapshot is the aggregated view served on /admin/perf.
type Snapshot struct {
	Since          time.Time  `json:"since"`
	TotalRecorded  int64      `json:"total_recorded"`
	Requests       int        `json:"requests"`
	Queries        int        `json:"queries"`
	ClientErrors   int        `json:"client_errors"`
	ServerErrors   int        `json:"server_errors"`
	RequestLatency Latency    `json:"request_latency"`
	QueryLatency   Latency    `json:"query_latency"`
	SlowestPaths   []PathStat `json:"slowest_paths"`
	SlowestQueries []PathStat `json:"slowest_queries"`
}

// Snapshot aggregates the entries recorded since the given time.
// PRE: topN >= 0
// POST: Slowest lists hold at most topN items, slowest average first
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	snap := Snapshot{Since: since, TotalRecorded: c.TotalRecorded()}
	routes := make(map[string]*PathStat)
	queries := make(map[string]*PathStat)
	var requestMs, queryMs []float64

	for _, e := range c.entriesSince(since) {
		switch e.Kind {
		case KindRequest:
			snap.Requests++
			switch {
			case e.StatusCode >= 500:
				snap.ServerErrors++
			case e.StatusCode >= 400:
				snap.ClientErrors++
			}
			requestMs = append(requestMs, e.DurationMs)
			addSample(routes, e)
		case KindQuery:
			snap.Queries++
			queryMs = append(queryMs, e.DurationMs)
			addSample(queries, e)
		}
	}

	snap.RequestLatency = summarize(requestMs)
	snap.QueryLatency = summarize(queryMs)
	snap.SlowestPaths = slowest(routes, topN)
	snap.SlowestQueries = slowest(queries, topN)
	return snap
}

func addSample(stats map[string]*PathStat, e Entry) {
	s, ok := stats[e.Path]
	if !ok {
		s = &PathStat{Path: e.Path}
		stats[e.Path] = s
	}
	s.Count++
	s.TotalMs += e.DurationMs
	s.MaxMs = max(s.MaxMs, e.DurationMs)
	s.AvgMs = s.TotalMs / float64(s.Count)
}

func summarize(ms []float64) Latency {
	if len(ms) == 0 {
		return Latency{}
	}
	slices.Sort(ms)
	return Latency{
		P50Ms: percentile(ms, 50),
		P95Ms: percentile(ms, 95),
		P99Ms: percentile(ms, 99),
		MaxMs: ms[len(ms)-1],
	}
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func slowest(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		list = append(list, *s)
	}
	slices.SortFunc(list, func(a, b PathStat) int {
		if c := cmp.Compare(b.AvgMs, a.AvgMs); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
