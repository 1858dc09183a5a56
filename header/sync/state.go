package sync

import (
	"errors"
	"fmt"
	"time"
)

// ErrStalled is returned by SyncWait once the Syncer stalled.
var ErrStalled = errors.New("header/sync: syncer stalled")

// State of the Syncer's state machine.
type State uint8

const (
	// Bootstrapping waits for peers and learns the network head.
	Bootstrapping State = iota
	// Backfilling requests historical headers up to the network head.
	Backfilling
	// Following appends headers announced by gossip.
	Following
	// Stalled is terminal. The Reason tells why.
	Stalled
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Backfilling:
		return "backfilling"
	case Following:
		return "following"
	case Stalled:
		return "stalled"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// StallReason tells why the Syncer stalled.
type StallReason uint8

const (
	NotStalled StallReason = iota
	// NoPeers means discovery failed permanently.
	NoPeers
	// Unreachable means every known peer failed to serve the next range.
	Unreachable
	// Unverifiable means there is no genesis to anchor the chain to.
	Unverifiable
	// StoreFailure means the store failed to persist a valid header.
	StoreFailure
)

func (r StallReason) String() string {
	switch r {
	case NotStalled:
		return ""
	case NoPeers:
		return "no peers"
	case Unreachable:
		return "unreachable"
	case Unverifiable:
		return "unverifiable"
	case StoreFailure:
		return "store failure"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// Status is a snapshot of the Syncer's progress.
type Status struct {
	State  State
	Reason StallReason
	// Height is the height of the local contiguous head.
	Height uint64
	// RemoteHeight is the highest network head known so far.
	RemoteHeight uint64
	// Since is when the Syncer entered the State.
	Since time.Time
	// Err is the error the Syncer stalled with, if any.
	Err error
}

// Synced reports whether the local head caught up with the known network head.
func (s Status) Synced() bool {
	return s.State == Following && s.Height >= s.RemoteHeight
}

func (s Status) String() string {
	if s.State == Stalled {
		return fmt.Sprintf("%s(%s) at %d/%d since %s", s.State, s.Reason, s.Height, s.RemoteHeight, s.Since)
	}
	return fmt.Sprintf("%s at %d/%d since %s", s.State, s.Height, s.RemoteHeight, s.Since)
}
