// Package domain contains entity without logic, just meta-data
package domain

import "time"

type RoomID string

type Room struct {
	ID        RoomID
	CreatedAt time.Time
}

// ConnectionStatus is the last reported link state between two peers
// of a room. One entry per unordered pair, overwritten on each report.
// Peers carries the two ids of the pair; the composite key cannot be
// split back into them because the ids themselves may contain the
// separator (uuids do).
type ConnectionStatus struct {
	Peers     [2]ConnID
	Status    string
	UpdatedAt time.Time
}

// SortedPair orders a peer pair lexicographically so that (A,B) and
// (B,A) refer to the same link.
func SortedPair(a, b ConnID) (ConnID, ConnID) {
	if b < a {
		return b, a
	}
	return a, b
}

// StatusKey builds the order-independent key for a peer pair:
// the two ids sorted lexicographically, joined with "-".
func StatusKey(a, b ConnID) string {
	a, b = SortedPair(a, b)
	return string(a) + "-" + string(b)
}
