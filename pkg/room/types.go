package room

import "fmt"

// Role is the 3PC role a replica is currently announcing via heartbeats.
type Role int

const (
	RoleParticipant Role = iota
	RoleCoordinator
	RoleObserver
)

func (r Role) String() string {
	switch r {
	case RoleParticipant:
		return "participant"
	case RoleCoordinator:
		return "coordinator"
	case RoleObserver:
		return "observer"
	default:
		return "unknown"
	}
}

// ParseRole parses the role token carried on the wire ("coordinator",
// "participant", "observer").
func ParseRole(s string) (Role, error) {
	switch s {
	case "coordinator":
		return RoleCoordinator, nil
	case "participant":
		return RoleParticipant, nil
	case "observer":
		return RoleObserver, nil
	default:
		return 0, fmt.Errorf("room: unknown role %q", s)
	}
}

// UpdateKind distinguishes the two update shapes a master may submit.
type UpdateKind int

const (
	UpdateAdd UpdateKind = iota
	UpdateDelete
)

// Update is either Add(name, url) or Delete(name). URL is unused for
// UpdateDelete.
type Update struct {
	Kind UpdateKind
	Name string
	URL  string
}

func (u Update) String() string {
	switch u.Kind {
	case UpdateAdd:
		return fmt.Sprintf("add %s %s", u.Name, u.URL)
	case UpdateDelete:
		return fmt.Sprintf("delete %s", u.Name)
	default:
		return "update(?)"
	}
}

// Decision is the terminal outcome of a 3PC round.
type Decision int

const (
	DecisionCommit Decision = iota
	DecisionAbort
)

func (d Decision) String() string {
	if d == DecisionCommit {
		return "commit"
	}
	return "abort"
}

// Vote is a participant's response to a VoteReq.
type Vote int

const (
	VoteYes Vote = iota
	VoteNo
)

func (v Vote) String() string {
	if v == VoteYes {
		return "yes"
	}
	return "no"
}

// CommitState is the state a replica reports during the termination
// protocol's StateReq/StateReqReply exchange.
type CommitState int

const (
	StateAborted CommitState = iota
	StateUncertain
	StateCommittable
	StateCommitted
)

func (s CommitState) String() string {
	switch s {
	case StateAborted:
		return "aborted"
	case StateUncertain:
		return "uncertain"
	case StateCommittable:
		return "committable"
	case StateCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// ParseCommitState parses the token from a "state <...>" wire line.
func ParseCommitState(s string) (CommitState, error) {
	switch s {
	case "aborted":
		return StateAborted, nil
	case "uncertain":
		return StateUncertain, nil
	case "committable":
		return StateCommittable, nil
	case "committed":
		return StateCommitted, nil
	default:
		return 0, fmt.Errorf("room: unknown commit state %q", s)
	}
}
