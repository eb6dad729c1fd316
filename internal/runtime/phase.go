package runtime

// Phase is the lifecycle position of a single run.
// A run moves NotStarted → Ready → Stepping → TornDown and is never re-entered.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseReady
	PhaseStepping
	PhaseTornDown
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseReady:
		return "ready"
	case PhaseStepping:
		return "stepping"
	case PhaseTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}
