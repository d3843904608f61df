package app

import (
	"sort"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/beacon/internal/domain"
)

const (
	// healthWindow is how fresh a record must be to count.
	healthWindow = time.Hour
	// minSuccessRate must be strictly exceeded for a server to qualify.
	minSuccessRate = 0.5
)

// HealthStore tracks client-reported reachability of ICE servers,
// process-wide. Records are never evicted; the table grows with every
// distinct URL ever reported.
type HealthStore struct {
	mu      sync.Mutex
	servers map[string]domain.ServerHealth
}

func NewHealthStore() *HealthStore {
	return &HealthStore{servers: make(map[string]domain.ServerHealth)}
}

// Record bumps the matching counter for the URL, creating the record
// on first sight.
func (s *HealthStore) Record(url string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.servers[url]
	if success {
		h.Success++
	} else {
		h.Failure++
	}
	h.LastUpdated = time.Now()
	s.servers[url] = h
}

// Recommend ranks known servers by health and returns descriptors for
// those updated within the last hour with a success rate above 0.5,
// ordered by descending raw success count. Falls back to defaults when
// nothing qualifies. Ordering is by absolute success count, not rate;
// see DESIGN.md before changing it.
func (s *HealthStore) Recommend(defaults []webrtc.ICEServer) []webrtc.ICEServer {
	s.mu.Lock()
	defer s.mu.Unlock()

	type scored struct {
		url    string
		health domain.ServerHealth
	}
	qualified := make([]scored, 0, len(s.servers))
	for url, h := range s.servers {
		if time.Since(h.LastUpdated) >= healthWindow {
			continue
		}
		if h.SuccessRate() <= minSuccessRate {
			continue
		}
		qualified = append(qualified, scored{url: url, health: h})
	}
	if len(qualified) == 0 {
		return defaults
	}
	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].health.Success > qualified[j].health.Success
	})
	out := make([]webrtc.ICEServer, 0, len(qualified))
	for _, q := range qualified {
		out = append(out, webrtc.ICEServer{URLs: []string{q.url}})
	}
	log.Debug().Str("module", "app.icehealth").Int("qualified", len(out)).Msg("health-based ice servers")
	return out
}

// Snapshot copies the whole table for diagnostics.
func (s *HealthStore) Snapshot() map[string]domain.ServerHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.ServerHealth, len(s.servers))
	for url, h := range s.servers {
		out[url] = h
	}
	return out
}
