package domain

// ActionList is the ordered sequence of synthesis actions returned by the
// extraction service. Entries are opaque and pre-formatted.
type ActionList []string

// Step is a display projection of a single action.
type Step struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Steps numbers the actions from 1 in list order.
// An empty list yields nil, so callers can distinguish "nothing extracted".
func (l ActionList) Steps() []Step {
	if len(l) == 0 {
		return nil
	}
	steps := make([]Step, len(l))
	for i, action := range l {
		steps[i] = Step{Number: i + 1, Text: action}
	}
	return steps
}

// ExtractionRequest is the payload handed to the extraction service.
type ExtractionRequest struct {
	Paragraph  string
	Credential Credential
}
