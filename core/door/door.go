package door

// Command is a button-press request received on the command topic.
type Command int

const (
	CommandOpen Command = iota
	CommandClose
)

// String returns the wire payload for the command.
func (c Command) String() string {
	switch c {
	case CommandOpen:
		return "OPEN"
	case CommandClose:
		return "CLOSE"
	default:
		return "unknown"
	}
}

// ParseCommand decodes a command payload. The match is exact and
// case-sensitive; anything else is not a command.
func ParseCommand(payload string) (Command, bool) {
	switch payload {
	case "OPEN":
		return CommandOpen, true
	case "CLOSE":
		return CommandClose, true
	default:
		return 0, false
	}
}

// State is a door position as announced on the status topic. The zero value
// is StateUnknown: a door is unknown until something is observed.
type State int

const (
	StateUnknown State = iota
	StateClosed
	StateOpen
	StateClosing
	StateOpening
)

// String returns the wire payload for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateOpening:
		return "opening"
	default:
		return "unknown"
	}
}

// ParseState decodes a status payload.
func ParseState(payload string) (State, bool) {
	switch payload {
	case "closed":
		return StateClosed, true
	case "open":
		return StateOpen, true
	case "closing":
		return StateClosing, true
	case "opening":
		return StateOpening, true
	case "unknown":
		return StateUnknown, true
	default:
		return 0, false
	}
}

// Moving reports whether the door is travelling between settled positions.
func (s State) Moving() bool {
	return s == StateClosing || s == StateOpening
}

// Cycle returns the two statuses announced for a command: the transitional
// one published immediately and the settled one published after the travel
// interval.
func (c Command) Cycle() (moving, settled State) {
	if c == CommandClose {
		return StateClosing, StateClosed
	}
	return StateOpening, StateOpen
}
