package conversation

// State is the lifecycle position of a session channel.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAuthenticated
	StateReceiving
	StateClosed
	StateErrored
)

var stateNames = map[State]string{
	StateIdle:          "idle",
	StateConnecting:    "connecting",
	StateAuthenticated: "authenticated",
	StateReceiving:     "receiving",
	StateClosed:        "closed",
	StateErrored:       "errored",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrored
}
