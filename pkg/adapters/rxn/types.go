package rxn

import (
	"bytes"
	"encoding/json"

	"github.com/aretw0/synthex/pkg/domain"
)

type paragraphRequest struct {
	Paragraph string `json:"paragraph"`
}

type actionsPayload struct {
	Actions domain.ActionList `json:"actions"`
}

// paragraphResponse matches {"actions": [...]} and {"payload": {"actions": [...]}}.
type paragraphResponse struct {
	Actions domain.ActionList `json:"actions"`
	Payload *actionsPayload   `json:"payload"`

	// hasEmptyActions records an explicit "actions": null.
	hasEmptyActions bool
}

// UnmarshalJSON tells an explicit null actions field apart from a missing one.
func (r *paragraphResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["actions"]; ok {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			r.hasEmptyActions = true
		} else if err := json.Unmarshal(v, &r.Actions); err != nil {
			return err
		}
	}
	if v, ok := raw["payload"]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		r.Payload = &actionsPayload{}
		if err := json.Unmarshal(v, r.Payload); err != nil {
			return err
		}
	}
	return nil
}

type errorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}
