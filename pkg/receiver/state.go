package receiver

// State represents the lifecycle state of a Receiver.
type State int

const (
	// StateInitialized means the receiver is created but not started.
	StateInitialized State = iota

	// StateRunning means the receiver is advertising and correlating DACP
	// services.
	StateRunning

	// StateStopped means the receiver has been shut down.
	StateStopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "Initialized"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
