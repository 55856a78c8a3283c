package order

// Role identifies what an order does for the position. Closed enum so a
// switch over roles is exhaustive.
type Role int

const (
	RoleEntry Role = iota
	RoleStop
	RoleTarget
)

func (r Role) String() string {
	switch r {
	case RoleEntry:
		return "ENTRY"
	case RoleStop:
		return "STOP"
	case RoleTarget:
		return "TARGET"
	default:
		return "UNKNOWN"
	}
}

// Status represents order lifecycle.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusFilled    Status = "FILLED"
	StatusCancelled Status = "CANCELLED"
)

// Handle is an opaque reference owned by the execution gateway. The bundle
// stores it as a back-reference only and never mutates order content through
// it; all changes go through Gateway calls.
type Handle any

// TrackedOrder is one live order backing the position.
type TrackedOrder struct {
	ID     string
	Role   Role
	Tag    string // caller-supplied label, not guaranteed unique
	Handle Handle
	Status Status
}

// Active reports whether the order is still working at the gateway.
func (o TrackedOrder) Active() bool { return o.Status == StatusActive }
