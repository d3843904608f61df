package core

import "github.com/dkeye/beacon/internal/domain"

// Frame is a marshaled signaling payload ready for the wire.
type Frame []byte

// SignalConnection abstracts a single client's messaging endpoint.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Transport is the room-scoped pub/sub substrate the relay runs on.
// Sends are fire-and-forget: delivery failures never surface to the
// caller, backpressure drops are the adapter's problem.
type Transport interface {
	JoinGroup(id domain.ConnID, group domain.RoomID)
	LeaveGroup(id domain.ConnID, group domain.RoomID)
	SendToGroup(group domain.RoomID, event string, payload any)
	SendToConn(id domain.ConnID, event string, payload any)

	// GroupMembers snapshots the connections subscribed to a group.
	GroupMembers(group domain.RoomID) []domain.ConnID
	// GroupsOf snapshots the groups a connection is subscribed to.
	GroupsOf(id domain.ConnID) []domain.RoomID
	// Conns snapshots every live connection id.
	Conns() []domain.ConnID
	ConnCount() int
}
