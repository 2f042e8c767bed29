package train

// State of a training run
type State int32

const (
	Initializing State = iota
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Reason a run terminated
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMaxSteps
	ReasonCancelled
	ReasonFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMaxSteps:
		return "max steps reached"
	case ReasonCancelled:
		return "cancelled"
	case ReasonFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result summarizes a run
type Result struct {
	StartStep      int
	CompletedSteps int
	// LastCheckpoint is the step of the last checkpoint exported by this run, 0 if none
	LastCheckpoint int
	Reason         Reason
}

// Steps returns the number of steps executed by this run
func (r Result) Steps() int {
	return r.CompletedSteps - r.StartStep
}
