package synthex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/synthex/internal/logging"
	"github.com/aretw0/synthex/pkg/domain"
	"github.com/aretw0/synthex/pkg/ports"
)

// Engine validates procedure text, forwards it to the extraction service and
// maps the result to a user-facing Outcome.
type Engine struct {
	extractor         ports.ActionExtractor
	hooks             domain.LifecycleHooks
	logger            *slog.Logger
	maxProcedureBytes int
	credential        domain.Credential
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithExtractor sets the outbound extraction service.
func WithExtractor(x ports.ActionExtractor) Option {
	return func(e *Engine) {
		e.extractor = x
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxProcedureBytes rejects procedures longer than n bytes before any call.
// Zero disables the check.
func WithMaxProcedureBytes(n int) Option {
	return func(e *Engine) {
		e.maxProcedureBytes = n
	}
}

// WithDefaultCredential sets the credential used when a caller supplies none.
func WithDefaultCredential(c domain.Credential) Option {
	return func(e *Engine) {
		e.credential = c
	}
}

// New initializes an Engine. An extractor is required.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.extractor == nil {
		return nil, errors.New("an extractor is required (use WithExtractor)")
	}
	if eng.maxProcedureBytes < 0 {
		return nil, fmt.Errorf("invalid max procedure size: %d", eng.maxProcedureBytes)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	return eng, nil
}

// Validate checks text without contacting the service.
func (e *Engine) Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyProcedure
	}
	if e.maxProcedureBytes > 0 && len(text) > e.maxProcedureBytes {
		return fmt.Errorf("%w (%d > %d bytes)", domain.ErrProcedureTooLarge, len(text), e.maxProcedureBytes)
	}
	return nil
}

// Extract performs exactly one service call for valid text and returns the
// actions in service order. Service failures are returned as *domain.ServiceError.
func (e *Engine) Extract(ctx context.Context, text string, cred domain.Credential) (domain.ActionList, error) {
	if err := e.Validate(text); err != nil {
		return nil, err
	}

	sessionID := SessionIDFromContext(ctx)
	logger := e.logger
	if sessionID != "" {
		logger = logger.With("session_id", sessionID)
	}

	event := &domain.ExtractEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventExtractStart,
			SessionID: sessionID,
		},
		InputSize: len(text),
	}
	if e.hooks.OnExtractStart != nil {
		e.hooks.OnExtractStart(ctx, event)
	}
	logger.Debug("Calling extraction service", "input_size", len(text))

	start := time.Now()
	actions, err := e.extractor.ExtractActions(ctx, domain.ExtractionRequest{
		Paragraph:  text,
		Credential: cred.Or(e.credential),
	})

	ret := &domain.ExtractEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventExtractReturn,
			SessionID: sessionID,
		},
		InputSize:   len(text),
		ActionCount: len(actions),
		Duration:    time.Since(start),
		Err:         err,
	}

	if err != nil {
		var svcErr *domain.ServiceError
		if !errors.As(err, &svcErr) {
			err = &domain.ServiceError{Err: err}
		}
		ret.Outcome = domain.OutcomeError
		ret.ActionCount = 0
		ret.Err = err
		e.emitReturn(ctx, ret)
		logger.Warn("Extraction service call failed", "error", err, "duration", ret.Duration)
		return nil, err
	}

	if len(actions) == 0 {
		ret.Outcome = domain.OutcomeInfo
	} else {
		ret.Outcome = domain.OutcomeSuccess
	}
	e.emitReturn(ctx, ret)
	logger.Info("Extraction completed", "actions", len(actions), "duration", ret.Duration)

	return actions, nil
}

// Submit runs Extract and maps every result to an Outcome. It never fails.
func (e *Engine) Submit(ctx context.Context, text string, cred domain.Credential) domain.Outcome {
	actions, err := e.Extract(ctx, text, cred)
	return NewOutcome(actions, err)
}

// NewOutcome maps an extraction result to the message shown to the user.
func NewOutcome(actions domain.ActionList, err error) domain.Outcome {
	switch {
	case errors.Is(err, domain.ErrEmptyProcedure):
		return domain.Outcome{Kind: domain.OutcomeWarning, Message: domain.MessageEmptyProcedure}
	case errors.Is(err, domain.ErrProcedureTooLarge):
		return domain.Outcome{Kind: domain.OutcomeWarning, Message: "Procedure text is too large: " + err.Error()}
	case err != nil:
		return domain.Outcome{Kind: domain.OutcomeError, Message: domain.MessageServiceError + err.Error()}
	case len(actions) == 0:
		return domain.Outcome{Kind: domain.OutcomeInfo, Message: domain.MessageNoSteps}
	default:
		return domain.Outcome{Kind: domain.OutcomeSuccess, Message: domain.MessageStepsHeader, Steps: actions.Steps()}
	}
}

func (e *Engine) emitReturn(ctx context.Context, event *domain.ExtractEvent) {
	if e.hooks.OnExtractReturn != nil {
		e.hooks.OnExtractReturn(ctx, event)
	}
}

type sessionKey struct{}

// ContextWithSessionID tags ctx so engine logs and events carry the session ID.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionIDFromContext returns the session ID set by ContextWithSessionID.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
