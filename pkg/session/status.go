package session

// Status is the lifecycle state of the current session.
type Status int

const (
	Idle Status = iota
	Streaming
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Done reports whether s is a terminal state.
func (s Status) Done() bool {
	return s == Completed || s == Failed
}

// Mode selects the kind of generation request.
type Mode int

const (
	ModeCreate Mode = iota
	ModeAdjust
)

func (m Mode) String() string {
	if m == ModeAdjust {
		return "adjust"
	}
	return "create"
}
