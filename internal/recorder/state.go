package recorder

// State is the recorder lifecycle state.
type State string

// Recorder states.
const (
	StateIdle      State = "idle"      // No session
	StateStarting  State = "starting"  // Start in progress
	StateRecording State = "recording" // Session committed
	StateStopping  State = "stopping"  // Stop in progress
)

// Busy reports whether a lifecycle operation is in flight.
func (s State) Busy() bool {
	return s == StateStarting || s == StateStopping
}
