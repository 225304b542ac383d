package timeclock

// State is the controller's position in the clock-in/clock-out cycle
type State int

const (
	// StateIdle means no session is open and clock-in is offered
	StateIdle State = iota
	// StateLocationNotSet means the user has no assigned location; display only
	StateLocationNotSet
	// StateAwaitingCapture means the fence check passed and a selfie is needed
	StateAwaitingCapture
	// StateSubmitting means a clock-in request is in flight
	StateSubmitting
	// StateOpen means a session is confirmed open and the timer is running
	StateOpen
	// StateClosingOut means a clock-out request is in flight
	StateClosingOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocationNotSet:
		return "location_not_set"
	case StateAwaitingCapture:
		return "awaiting_capture"
	case StateSubmitting:
		return "submitting"
	case StateOpen:
		return "open"
	case StateClosingOut:
		return "closing_out"
	default:
		return "unknown"
	}
}

// Busy reports whether a request is in flight in this state
func (s State) Busy() bool {
	return s == StateSubmitting || s == StateClosingOut
}
