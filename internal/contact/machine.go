package contact

// Status is the submission lifecycle state of a form.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Event drives a Status transition.
type Event int

const (
	// EventSubmit fires when a submission passes gating.
	EventSubmit Event = iota
	// EventSucceeded fires when the channel accepted the submission.
	EventSucceeded
	// EventFailed fires on channel failure or timeout.
	EventFailed
	// EventDisplayElapsed fires when the outcome has been shown long enough.
	EventDisplayElapsed
)

func (e Event) String() string {
	switch e {
	case EventSubmit:
		return "submit"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventDisplayElapsed:
		return "display_elapsed"
	}
	return "unknown"
}

// Transition returns the state that follows s on e. The second result is
// false, and s is returned unchanged, when e is not valid in s.
func Transition(s Status, e Event) (Status, bool) {
	switch {
	case s == StatusIdle && e == EventSubmit:
		return StatusSubmitting, true
	case s == StatusSubmitting && e == EventSucceeded:
		return StatusSuccess, true
	case s == StatusSubmitting && e == EventFailed:
		return StatusError, true
	case (s == StatusSuccess || s == StatusError) && e == EventDisplayElapsed:
		return StatusIdle, true
	}
	return s, false
}
