package model

import "time"

// PresenceChangeKind identifies the registry mutation behind a change
type PresenceChangeKind string

const (
	PresenceRegistered   PresenceChangeKind = "registered"
	PresenceUnregistered PresenceChangeKind = "unregistered"
)

// PresenceChange is emitted once per successful registry mutation.
// Snapshot is the full post-mutation state in snapshot order.
type PresenceChange struct {
	Seq          uint64
	Kind         PresenceChangeKind
	ConnectionID ConnectionID
	Evicted      ConnectionID // empty unless a registration evicted a prior connection
	Timestamp    time.Time
	Snapshot     []Presence
}

// Identities returns the identities in the change's snapshot, in order
func (c PresenceChange) Identities() []Identity {
	ids := make([]Identity, len(c.Snapshot))
	for i, p := range c.Snapshot {
		ids[i] = p.Identity
	}
	return ids
}

// ConnectionIDs returns the connections present after the change
func (c PresenceChange) ConnectionIDs() []ConnectionID {
	ids := make([]ConnectionID, len(c.Snapshot))
	for i, p := range c.Snapshot {
		ids[i] = p.ConnectionID
	}
	return ids
}
