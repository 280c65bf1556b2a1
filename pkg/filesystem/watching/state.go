package watching

// State is the lifecycle state of a watcher.
type State uint8

const (
	// StateIdle indicates that no session is running.
	StateIdle State = iota
	// StateStarting indicates that a session is being established.
	StateStarting
	// StateActive indicates that a session is running and delivering
	// notifications.
	StateActive
	// StatePaused indicates that a session is running but notifications are
	// suppressed.
	StatePaused
	// StateStopping indicates that a session is being torn down.
	StateStopping
)

// String provides a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateActive:
		return "Active"
	case StatePaused:
		return "Paused"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// running indicates whether or not the state corresponds to a running session.
func (s State) running() bool {
	return s == StateActive || s == StatePaused
}

// Status is a snapshot of a watcher's status.
type Status struct {
	// State is the lifecycle state.
	State State
	// Root is the watch root of the current session, if any.
	Root string
	// Backend is the resolved backend of the current session, if any.
	Backend Backend
	// Watches is the number of directories currently watched.
	Watches int
}
