package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/synthex/pkg/domain"
	"github.com/aretw0/synthex/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStore is a minimal SessionStore used to exercise the contract itself.
type MockStore struct {
	mu   sync.Mutex
	data map[string]domain.Session
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]domain.Session)}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, sess *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = *sess.Snapshot()
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Snapshot(), nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestSessionStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, NewMockStore())
}

func TestExtractorFunc(t *testing.T) {
	var got domain.ExtractionRequest
	fn := ports.ExtractorFunc(func(ctx context.Context, req domain.ExtractionRequest) (domain.ActionList, error) {
		got = req
		return domain.ActionList{"a"}, nil
	})

	actions, err := fn.ExtractActions(context.Background(), domain.ExtractionRequest{Paragraph: "text"})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionList{"a"}, actions)
	assert.Equal(t, "text", got.Paragraph)
}
