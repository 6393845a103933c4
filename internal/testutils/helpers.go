package testutils

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/synthex/pkg/domain"
)

// StubExtractor is a ports.ActionExtractor that records every call and
// answers with a fixed result.
type StubExtractor struct {
	mu       sync.Mutex
	requests []domain.ExtractionRequest

	Actions domain.ActionList
	Err     error
	// Hook runs inside the call, before the result is returned.
	Hook func(ctx context.Context, req domain.ExtractionRequest)
}

// NewStubExtractor returns a stub answering with actions.
func NewStubExtractor(actions ...string) *StubExtractor {
	return &StubExtractor{Actions: domain.ActionList(actions)}
}

// NewFailingExtractor returns a stub that always fails with err.
func NewFailingExtractor(err error) *StubExtractor {
	return &StubExtractor{Err: err}
}

func (s *StubExtractor) ExtractActions(ctx context.Context, req domain.ExtractionRequest) (domain.ActionList, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.Hook != nil {
		s.Hook(ctx, req)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return append(domain.ActionList(nil), s.Actions...), nil
}

// Calls returns how many times ExtractActions ran.
func (s *StubExtractor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of the recorded requests.
func (s *StubExtractor) Requests() []domain.ExtractionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ExtractionRequest(nil), s.requests...)
}

// SetupRedis starts an in-memory Redis and returns a client bound to it.
// Both are closed when the test ends.
func SetupRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}
