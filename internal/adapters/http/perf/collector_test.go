package perf

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func request(path string, status int, ms float64, at time.Time) Entry {
	return Entry{Kind: KindRequest, Path: path, StatusCode: status, DurationMs: ms, Timestamp: at}
}

func query(label string, ms float64, at time.Time) Entry {
	return Entry{Kind: KindQuery, Path: label, DurationMs: ms, Timestamp: at}
}

// TestCollector_Snapshot verifies counts and per-path aggregation.
func TestCollector_Snapshot(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()
	c.Record(request("GET /", 200, 10, now))
	c.Record(request("GET /", 200, 30, now))
	c.Record(request("POST /signup", 400, 5, now))
	c.Record(request("POST /signup", 303, 7, now))
	c.Record(request("GET /admin", 500, 80, now))
	c.Record(query("SELECT signup", 2, now))
	c.Record(query("INSERT signup", 4, now))

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRecorded != 7 || snap.Requests != 5 || snap.Queries != 2 {
		t.Errorf("counts = %d/%d/%d, want 7/5/2", snap.TotalRecorded, snap.Requests, snap.Queries)
	}
	if snap.ClientErrors != 1 || snap.ServerErrors != 1 {
		t.Errorf("errors = %d client, %d server, want 1 and 1", snap.ClientErrors, snap.ServerErrors)
	}
	want := []string{"GET /admin", "GET /", "POST /signup"}
	if len(snap.SlowestPaths) != len(want) {
		t.Fatalf("SlowestPaths = %+v", snap.SlowestPaths)
	}
	for i, path := range want {
		if snap.SlowestPaths[i].Path != path {
			t.Errorf("SlowestPaths[%d] = %q, want %q", i, snap.SlowestPaths[i].Path, path)
		}
	}
	if home := snap.SlowestPaths[1]; home.Count != 2 || home.AvgMs != 20 || home.MaxMs != 30 || home.TotalMs != 40 {
		t.Errorf("GET / stats = %+v", home)
	}
	if len(snap.SlowestQueries) != 2 || snap.SlowestQueries[0].Path != "INSERT signup" {
		t.Errorf("SlowestQueries = %+v", snap.SlowestQueries)
	}
	if snap.QueryLatency.MaxMs != 4 {
		t.Errorf("QueryLatency.MaxMs = %v, want 4", snap.QueryLatency.MaxMs)
	}
}

// TestCollector_RingKeepsNewest verifies old entries are overwritten.
func TestCollector_RingKeepsNewest(t *testing.T) {
	c := NewCollector(3)
	now := time.Now()
	c.Record(request("GET /old", 200, 1, now))
	c.Record(request("GET /old", 200, 1, now))
	for range 3 {
		c.Record(request("GET /", 200, 1, now))
	}

	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Path != "GET /" || snap.SlowestPaths[0].Count != 3 {
		t.Errorf("SlowestPaths = %+v, want only GET / x3", snap.SlowestPaths)
	}
}

// TestCollector_RequestLatency verifies interpolated percentiles over 1..100 ms.
func TestCollector_RequestLatency(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()
	for i := 100; i >= 1; i-- {
		c.Record(request("GET /", 200, float64(i), now))
	}

	lat := c.Snapshot(now.Add(-time.Minute), 1).RequestLatency
	checks := []struct {
		name      string
		got, want float64
	}{
		{"p50", lat.P50Ms, 50.5},
		{"p95", lat.P95Ms, 95.05},
		{"p99", lat.P99Ms, 99.01},
		{"max", lat.MaxMs, 100},
	}
	for _, tc := range checks {
		if diff := tc.got - tc.want; diff > 0.001 || diff < -0.001 {
			t.Errorf("%s = %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}

// TestCollector_SinceAndTopN verifies the window and the list cap.
func TestCollector_SinceAndTopN(t *testing.T) {
	c := NewCollector(50)
	now := time.Now()
	c.Record(request("GET /yesterday", 200, 900, now.Add(-24*time.Hour)))
	for i := range 5 {
		c.Record(request(fmt.Sprintf("GET /p%d", i), 200, float64(i), now))
	}

	snap := c.Snapshot(now.Add(-time.Hour), 2)
	if snap.Requests != 5 {
		t.Errorf("Requests = %d, want 5 (old entry outside window)", snap.Requests)
	}
	if len(snap.SlowestPaths) != 2 || snap.SlowestPaths[0].Path != "GET /p4" || snap.SlowestPaths[1].Path != "GET /p3" {
		t.Errorf("SlowestPaths = %+v, want p4 then p3", snap.SlowestPaths)
	}
}

// TestCollector_Empty verifies an unused collector yields zero values.
func TestCollector_Empty(t *testing.T) {
	snap := NewCollector(0).Snapshot(time.Time{}, 5)
	if snap.Requests != 0 || snap.RequestLatency != (Latency{}) || len(snap.SlowestPaths) != 0 {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
}

// TestCollector_ConcurrentRecord verifies Record is safe across goroutines.
func TestCollector_ConcurrentRecord(t *testing.T) {
	c := NewCollector(64)
	now := time.Now()
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				c.Record(request("POST /signup", 303, float64(g*i%7), now))
				if i%10 == 0 {
					c.Snapshot(now.Add(-time.Minute), 3)
				}
			}
		}()
	}
	wg.Wait()
	if c.TotalRecorded() != 800 {
		t.Errorf("TotalRecorded = %d, want 800", c.TotalRecorded())
	}
}

func BenchmarkCollector_Record(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	e := request("POST /signup", 303, 3, time.Now())
	for b.Loop() {
		c.Record(e)
	}
}
