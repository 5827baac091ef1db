package session

import "fmt"

// Phase is the lifecycle position of the session.
type Phase int

const (
	Uninitialized Phase = iota
	Restoring
	Anonymous
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Restoring:
		return "restoring"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

type event string

const (
	eventRestore    event = "restore"
	eventResolved   event = "resolved"
	eventUnresolved event = "unresolved"
	eventLogin      event = "login"
	eventLogout     event = "logout"
	eventRejected   event = "rejected"
)

// transitions lists every valid move; anything else is refused.
var transitions = map[Phase]map[event]Phase{
	Uninitialized: {eventRestore: Restoring},
	Restoring:     {eventResolved: Authenticated, eventUnresolved: Anonymous},
	Anonymous:     {eventLogin: Authenticated},
	Authenticated: {eventLogout: Anonymous, eventRejected: Anonymous},
}

func next(from Phase, ev event) (Phase, error) {
	to, ok := transitions[from][ev]
	if !ok {
		return from, &TransitionError{From: from, Event: string(ev)}
	}
	return to, nil
}

// TransitionError reports an operation attempted in a phase that does not
// allow it, for example logging in twice.
type TransitionError struct {
	From  Phase
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session: %s not allowed while %s", e.Event, e.From)
}
