package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/synthex/pkg/domain"
	"github.com/aretw0/synthex/pkg/ports"
)

// Operation labels.
const (
	OpSave   = "save"
	OpLoad   = "load"
	OpDelete = "delete"
	OpList   = "list"
)

// Result labels.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

type instrumentMiddleware struct {
	next     ports.SessionStore
	observer prometheus.ObserverVec
	logger   *slog.Logger
}

// NewInstrumentation times every store operation into observer (labels
// "op" and "result") and logs failures. A nil observer only logs.
// ErrSessionNotFound is an expected result and is not logged.
func NewInstrumentation(observer prometheus.ObserverVec, logger *slog.Logger) Middleware {
	return func(next ports.SessionStore) ports.SessionStore {
		return &instrumentMiddleware{next: next, observer: observer, logger: logger}
	}
}

func (m *instrumentMiddleware) Save(ctx context.Context, sessionID string, s *domain.Session) error {
	start := time.Now()
	err := m.next.Save(ctx, sessionID, s)
	m.record(ctx, OpSave, sessionID, start, err)
	return err
}

func (m *instrumentMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	start := time.Now()
	s, err := m.next.Load(ctx, sessionID)
	m.record(ctx, OpLoad, sessionID, start, err)
	return s, err
}

func (m *instrumentMiddleware) Delete(ctx context.Context, sessionID string) error {
	start := time.Now()
	err := m.next.Delete(ctx, sessionID)
	m.record(ctx, OpDelete, sessionID, start, err)
	return err
}

func (m *instrumentMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	m.record(ctx, OpList, "", start, err)
	return ids, err
}

func (m *instrumentMiddleware) record(ctx context.Context, op, sessionID string, start time.Time, err error) {
	result := ResultOK
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		result = ResultNotFound
	case err != nil:
		result = ResultError
		if m.logger != nil {
			m.logger.WarnContext(ctx, "Session store operation failed",
				"op", op,
				"session_id", sessionID,
				"error", err,
			)
		}
	}

	if m.observer != nil {
		m.observer.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
	}
}
