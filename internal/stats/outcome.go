// Package stats resolves a classified session against a timeline snapshot.
// Handlers are pure: snapshot in, outcome out. Fetching, persistence and
// scheduling live with the caller.
package stats

// OutcomeKind is the verdict of a single resolution attempt.
type OutcomeKind int

const (
	// OutcomeInProgress means the statistic cannot be settled yet; poll again.
	OutcomeInProgress OutcomeKind = iota
	// OutcomeClosed carries a settled result.
	OutcomeClosed
	// OutcomeNotProcessable means the label or snapshot can never yield a
	// result; the session is terminal.
	OutcomeNotProcessable
	// OutcomeNotAvailable means required data was missing this attempt. The
	// condition may clear on a later poll.
	OutcomeNotAvailable
)

// Outcome is what a handler returns. A Closed outcome carries either a
// numeric Value (Valid true) or a preformatted Text result for the few
// statistics that settle as descriptive strings.
type Outcome struct {
	Kind   OutcomeKind
	Value  float64
	Valid  bool
	Text   string
	Reason string
}

func Closed(v float64) Outcome {
	return Outcome{Kind: OutcomeClosed, Value: v, Valid: true}
}

func ClosedText(s string) Outcome {
	return Outcome{Kind: OutcomeClosed, Text: s}
}

func InProgress() Outcome {
	return Outcome{Kind: OutcomeInProgress}
}

func NotProcessable(reason string) Outcome {
	return Outcome{Kind: OutcomeNotProcessable, Reason: reason}
}

func NotAvailable(reason string) Outcome {
	return Outcome{Kind: OutcomeNotAvailable, Reason: reason}
}
