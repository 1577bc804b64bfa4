// Package dtlog is an observability-only decision log. It records terminal
// 3PC transitions (commit/abort) for operational visibility and postmortem
// reconstruction. Per the protocol it is never consulted to decide
// liveness, safety, or recovery — a room that cannot write to its dtlog
// still commits or aborts exactly as if the log did not exist.
package dtlog

import "context"

// Entry is one terminal transition recorded for a commit round.
type Entry struct {
	ID         string // uuid, assigned by the room's recordDecision
	RoomID     string
	CommitIter int
	Decision   string // "commit" or "abort"
	Update     string // human-readable rendering of the update that round carried
	AtMs       int64
}

// Log appends decision entries best-effort. Append must never block the
// caller's protocol logic; implementations that can fail (network,
// database) should do so asynchronously and only log the failure.
type Log interface {
	Append(ctx context.Context, e Entry)
	Close() error
}
