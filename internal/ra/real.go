// Completion: 100% - Real register state machine complete
package ra

// RealID indexes the real register arena of a Machine
type RealID int16

// NoReal marks the absence of a real register
const NoReal RealID = -1

// RegState is the allocation state of a real register
type RegState uint8

const (
	Free RegState = iota
	Assigned
	Blocked
	Unlatched
	Locked
)

func (s RegState) String() string {
	switch s {
	case Free:
		return "free"
	case Assigned:
		return "assigned"
	case Blocked:
		return "blocked"
	case Unlatched:
		return "unlatched"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// canTransition reports whether a checked state change from -> to is legal
func canTransition(from, to RegState) bool {
	if from == Locked || to == Locked {
		return false
	}
	if from == to {
		return from != Blocked
	}
	switch from {
	case Free:
		return to == Assigned
	case Assigned:
		return to == Free || to == Unlatched || to == Blocked
	case Unlatched:
		return to == Assigned || to == Free
	case Blocked:
		return to == Assigned || to == Free
	}
	return false
}

// RealRegister is a physical register of the target
type RealRegister struct {
	ID    RealID
	Kind  Kind
	Index uint
	Name  string

	State  RegState
	Weight int
	Virt   VirtID

	EverAssigned bool
	Preserved    bool
	Zero         bool
}

// Mask returns the register's bit within its kind
func (r *RealRegister) Mask() uint64 {
	return 1 << r.Index
}

func (r *RealRegister) setState(to RegState) {
	if !canTransition(r.State, to) {
		protocolf("illegal state change of %s: %s -> %s", r.Name, r.State, to)
	}
	r.State = to
}

// ensureBlocked blocks r unless it already is
func (r *RealRegister) ensureBlocked() {
	if r.State != Blocked {
		r.setState(Blocked)
	}
}
