package allocation

// State represents the current lifecycle State of an allocation
type State string

const (
	StateRegistered State = "registered"
	StateActive     State = "active"
	StatePaused     State = "paused"
	StateCompleted  State = "completed"
	StateRemoved    State = "removed"
)

// IsTerminal reports whether no further releases can ever happen for the
// given state.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateRemoved
}
