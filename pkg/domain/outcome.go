package domain

// OutcomeKind classifies what the user is shown after a submission.
type OutcomeKind string

const (
	OutcomeWarning OutcomeKind = "warning" // Local validation failed, no call made
	OutcomeInfo    OutcomeKind = "info"    // Service answered with an empty list
	OutcomeSuccess OutcomeKind = "success" // Service answered with at least one action
	OutcomeError   OutcomeKind = "error"   // Service call failed
)

// User-facing messages.
const (
	MessageEmptyProcedure = "Please enter some reaction procedure text first."
	MessageNoSteps        = "No protocol steps extracted. Please verify the input format."
	MessageStepsHeader    = "Extracted Protocol Steps:"
	MessageServiceError   = "Error calling IBM RXN API: "
)

// Outcome is the result of one submission as presented to the user.
// Steps is only populated for OutcomeSuccess.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Message string      `json:"message"`
	Steps   []Step      `json:"steps,omitempty"`
}

// Failed reports whether the outcome represents a warning or an error.
func (o Outcome) Failed() bool {
	return o.Kind == OutcomeWarning || o.Kind == OutcomeError
}
