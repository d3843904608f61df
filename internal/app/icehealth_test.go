package app

import (
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/beacon/internal/domain"
)

var testDefaults = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302"}},
	{URLs: []string{"stun:stun1.l.google.com:19302"}},
}

func TestRecommendFallsBackWhenEmpty(t *testing.T) {
	t.Parallel()

	s := NewHealthStore()
	got := s.Recommend(testDefaults)
	if len(got) != len(testDefaults) {
		t.Fatalf("expected default list, got %v", got)
	}
}

func TestRecommendRequiresMajoritySuccessRate(t *testing.T) {
	t.Parallel()

	s := NewHealthStore()
	// 3/4 success: qualifies.
	for i := 0; i < 3; i++ {
		s.Record("stun:a", true)
	}
	s.Record("stun:a", false)

	got := s.Recommend(testDefaults)
	if len(got) != 1 || got[0].URLs[0] != "stun:a" {
		t.Fatalf("expected stun:a recommended, got %v", got)
	}

	// One more failure drops the rate to 3/5 = 0.6, still above the
	// bar; two more make it 3/6 = 0.5, which must be excluded because
	// the threshold is strict.
	s.Record("stun:a", false)
	if got := s.Recommend(testDefaults); len(got) != 1 {
		t.Fatalf("rate 0.6 must still qualify, got %v", got)
	}
	s.Record("stun:a", false)
	got = s.Recommend(testDefaults)
	if len(got) != len(testDefaults) {
		t.Fatalf("rate 0.5 must not qualify, expected fallback, got %v", got)
	}
}

func TestRecommendExcludesStaleRecords(t *testing.T) {
	t.Parallel()

	s := NewHealthStore()
	s.servers["stun:old"] = domain.ServerHealth{
		Success:     10,
		LastUpdated: time.Now().Add(-2 * time.Hour),
	}
	s.servers["stun:fresh"] = domain.ServerHealth{
		Success:     1,
		LastUpdated: time.Now(),
	}

	got := s.Recommend(testDefaults)
	if len(got) != 1 || got[0].URLs[0] != "stun:fresh" {
		t.Fatalf("expected only the fresh record, got %v", got)
	}
}

func TestRecommendSortsByRawSuccessCount(t *testing.T) {
	t.Parallel()

	s := NewHealthStore()
	now := time.Now()
	// stun:b has the better rate but fewer successes; ordering is by
	// absolute success count.
	s.servers["stun:a"] = domain.ServerHealth{Success: 9, Failure: 3, LastUpdated: now}
	s.servers["stun:b"] = domain.ServerHealth{Success: 4, Failure: 0, LastUpdated: now}
	s.servers["stun:c"] = domain.ServerHealth{Success: 6, Failure: 1, LastUpdated: now}

	got := s.Recommend(testDefaults)
	want := []string{"stun:a", "stun:c", "stun:b"}
	if len(got) != len(want) {
		t.Fatalf("expected %d servers, got %v", len(want), got)
	}
	for i, url := range want {
		if got[i].URLs[0] != url {
			t.Fatalf("position %d: expected %s, got %s", i, url, got[i].URLs[0])
		}
	}
}

func TestRecordCreatesAndAccumulates(t *testing.T) {
	t.Parallel()

	s := NewHealthStore()
	s.Record("stun:a", true)
	s.Record("stun:a", true)
	s.Record("stun:a", false)

	snap := s.Snapshot()
	h, ok := snap["stun:a"]
	if !ok {
		t.Fatal("expected record for stun:a")
	}
	if h.Success != 2 || h.Failure != 1 {
		t.Fatalf("unexpected counters %+v", h)
	}
	if h.LastUpdated.IsZero() {
		t.Fatal("lastUpdated must be stamped")
	}
	if rate := h.SuccessRate(); rate < 0.66 || rate > 0.67 {
		t.Fatalf("unexpected success rate %f", rate)
	}
}

func TestSuccessRateZeroWithoutAttempts(t *testing.T) {
	t.Parallel()

	var h domain.ServerHealth
	if h.SuccessRate() != 0 {
		t.Fatal("rate must be 0 with no attempts")
	}
}
