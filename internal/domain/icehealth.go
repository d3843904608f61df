package domain

import "time"

// ServerHealth accumulates client-reported STUN/TURN reachability for a
// single ICE server URL. Counters are cumulative over process lifetime.
type ServerHealth struct {
	Success     int       `json:"success"`
	Failure     int       `json:"failure"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SuccessRate is success/(success+failure), 0 when nothing was attempted.
func (h ServerHealth) SuccessRate() float64 {
	total := h.Success + h.Failure
	if total == 0 {
		return 0
	}
	return float64(h.Success) / float64(total)
}
