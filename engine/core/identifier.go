package core

import "sync/atomic"

// InvalidID marks an unassigned identifier.
const InvalidID uint32 = 0

var lastID atomic.Uint32

// IdentifierAquireNewID hands out process-wide unique, never reused ids.
// Zero is reserved for InvalidID.
func IdentifierAquireNewID() uint32 {
	return lastID.Add(1)
}
