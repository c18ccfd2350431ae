package plinstall

// Outcome is the terminal state of one resolution pass.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeNotFound
	OutcomeAborted
	OutcomeInstalled
	OutcomeDuplicateSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not-found"
	case OutcomeAborted:
		return "aborted"
	case OutcomeInstalled:
		return "installed"
	case OutcomeDuplicateSkipped:
		return "duplicate-skipped"
	default:
		return "failed"
	}
}

// State is a step of the resolution state machine, used for logging.
type State string

const (
	StateSearching  State = "SEARCHING"
	StateCollected  State = "COLLECTED"
	StateConfirming State = "CONFIRMING"
	StateInstalling State = "INSTALLING"
)

// Result describes how a pass ended.
type Result struct {
	Outcome   Outcome
	Candidate Candidate
	FinalPath string
}

// outcomeFor derives the terminal outcome from the error that ended a pass.
func outcomeFor(err error) Outcome {
	switch GetErrorCode(err) {
	case ErrNotFound:
		return OutcomeNotFound
	case ErrCancelled:
		return OutcomeAborted
	default:
		return OutcomeFailed
	}
}
