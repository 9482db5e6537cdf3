package cleaner

// DeleteOutcome is what happened to a single delete attempt.
type DeleteOutcome int

const (
	// OutcomeNone means no transport call was made.
	OutcomeNone DeleteOutcome = iota
	// OutcomeDeleted means the transport deleted the message.
	OutcomeDeleted
	// OutcomeSkipped means the transport reported a benign failure.
	OutcomeSkipped
	// OutcomeFailed means the transport failed and the error was returned.
	OutcomeFailed
)

func (o DeleteOutcome) String() string {
	switch o {
	case OutcomeDeleted:
		return "deleted"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// DeleteResult describes one delete attempt.
type DeleteResult struct {
	ID      MessageID
	Outcome DeleteOutcome
	// Err is the transport error for skipped and failed attempts.
	Err error
}

// PurgeReport lists the delete attempts made by Purge, oldest first.
type PurgeReport struct {
	Results []DeleteResult
}

// Deleted returns how many messages the transport deleted.
func (r PurgeReport) Deleted() int { return r.count(OutcomeDeleted) }

// Skipped returns how many deletes ended in a benign failure.
func (r PurgeReport) Skipped() int { return r.count(OutcomeSkipped) }

// Failed returns how many deletes failed. Purge stops at the first one.
func (r PurgeReport) Failed() int { return r.count(OutcomeFailed) }

func (r PurgeReport) count(o DeleteOutcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}
