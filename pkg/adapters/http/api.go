package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/aretw0/synthex/pkg/domain"
)

// ExtractRequest is the body of POST /api/v1/extract.
type ExtractRequest struct {
	Procedure string  `json:"procedure"`
	SessionID *string `json:"session_id,omitempty"`
}

// SessionView is the public projection of a session. The credential is
// reduced to a flag.
type SessionView struct {
	ID            string               `json:"id"`
	Page          domain.Page          `json:"page"`
	Theme         domain.Theme         `json:"theme"`
	HasCredential bool                 `json:"has_credential"`
	Status        domain.SessionStatus `json:"status"`
	LastOutcome   *domain.Outcome      `json:"last_outcome,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewSessionView projects sess for API responses.
func NewSessionView(sess *domain.Session) SessionView {
	return SessionView{
		ID:            sess.ID,
		Page:          sess.Page,
		Theme:         sess.Theme,
		HasCredential: !sess.Credential.IsZero(),
		Status:        sess.Status,
		LastOutcome:   sess.LastOutcome,
		UpdatedAt:     sess.UpdatedAt,
	}
}

// StatusFor maps an outcome to its HTTP status code.
func StatusFor(o domain.Outcome) int {
	switch o.Kind {
	case domain.OutcomeWarning:
		return http.StatusUnprocessableEntity
	case domain.OutcomeError:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

// Extract handles POST /api/v1/extract.
func (s *Server) Extract(w http.ResponseWriter, r *http.Request) {
	var body ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		s.logger.Warn("Extract: Invalid request body", "error", err)
		return
	}

	var outcome domain.Outcome
	if body.SessionID != nil && *body.SessionID != "" {
		sessionID, err := parseSessionID(*body.SessionID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request: " + err.Error()})
			return
		}
		outcome, err = s.submit(r.Context(), sessionID, body.Procedure)
		if err != nil {
			s.logger.Error("Extract: session update failed", "session_id", sessionID, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "session unavailable"})
			return
		}
	} else {
		outcome = s.Engine.Submit(r.Context(), body.Procedure, "")
	}

	writeJSON(w, StatusFor(outcome), outcome)
}

// GetSession handles GET /api/v1/session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := bindSessionID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	sess, err := s.Sessions.Peek(r.Context(), sessionID)
	if err != nil {
		if isNotFound(err) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "session not found"})
			return
		}
		s.logger.Error("GetSession failed", "session_id", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "session unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, NewSessionView(sess))
}

var errSessionIDFormat = errors.New("session_id must be a UUID")

// parseSessionID accepts only session IDs in the form the web UI issues.
func parseSessionID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errSessionIDFormat
	}
	return id.String(), nil
}

// bindSessionID reads the required session_id query parameter.
func bindSessionID(r *http.Request) (string, error) {
	var raw string
	if err := runtime.BindQueryParameter("form", true, true, "session_id", r.URL.Query(), &raw); err != nil {
		return "", err
	}
	return parseSessionID(raw)
}
