package types

import "github.com/google/uuid"

// EndpointID identifies a single compute endpoint in [0, N).
type EndpointID uint64

// UID tags a message for log correlation. It plays no role in any
// protocol invariant -- two otherwise-identical messages with
// different UIDs are still the same message as far as the protocol
// is concerned.
type UID string

// NewUID generates a fresh correlation identifier.
func NewUID() UID {
	return UID(uuid.New().String())
}
