package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/synthex/pkg/adapters/memory"
	"github.com/aretw0/synthex/pkg/domain"
	"github.com/aretw0/synthex/pkg/ports"
	"github.com/aretw0/synthex/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
	saves atomic.Int32
}

func NewSlowStore() *SlowStore {
	return &SlowStore{Store: memory.NewStore()}
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, sess *domain.Session) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.saves.Add(1)
	return s.Store.Save(ctx, sessionID, sess)
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	return s.Store.Load(ctx, sessionID)
}

// FailingStore fails every Load with a non-NotFound error.
type FailingStore struct {
	*memory.Store
}

func (s *FailingStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return nil, errors.New("connection refused")
}

// OutcomeRejectingStore fails any Save that carries an outcome.
type OutcomeRejectingStore struct {
	*memory.Store
}

func (s *OutcomeRejectingStore) Save(ctx context.Context, sessionID string, sess *domain.Session) error {
	if sess.LastOutcome != nil {
		return errors.New("disk full")
	}
	return s.Store.Save(ctx, sessionID, sess)
}

// CountingLocker records distributed lock usage.
type CountingLocker struct {
	locks   atomic.Int32
	unlocks atomic.Int32
	err     error
}

func (l *CountingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locks.Add(1)
	return func(context.Context) error {
		l.unlocks.Add(1)
		return nil
	}, nil
}

func TestManager_LoadOrStart(t *testing.T) {
	manager := session.NewManager(NewSlowStore())
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := manager.LoadOrStart(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, sess)
		}()
	}
	wg.Wait()

	sess, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PageExtractor, sess.Page)
	assert.Equal(t, domain.StatusIdle, sess.Status)
}

func TestManager_LoadOrStart_StoreError(t *testing.T) {
	manager := session.NewManager(&FailingStore{Store: memory.NewStore()})

	_, err := manager.LoadOrStart(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check session existence")
}

func TestManager_Update_ConcurrentWrites(t *testing.T) {
	store := NewSlowStore()
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "theme-flips"

	// Each Update toggles the theme; lost updates would break the parity.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, func(s *domain.Session) error {
				if s.Theme == domain.ThemeDark {
					s.Theme = domain.ThemeLight
				} else {
					s.Theme = domain.ThemeDark
				}
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeLight, sess.Theme)
}

func TestManager_Update_ErrorSkipsSave(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	_, err := manager.LoadOrStart(ctx, "s")
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = manager.Update(ctx, "s", func(s *domain.Session) error {
		s.Theme = domain.ThemeDark
		return boom
	})
	assert.ErrorIs(t, err, boom)

	sess, err := manager.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeLight, sess.Theme)
}

func TestManager_Track_StatusLifecycle(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	id := "tracked"

	var during domain.SessionStatus
	sess, outcome, err := manager.Track(ctx, id, func(ctx context.Context, s *domain.Session) domain.Outcome {
		peek, err := manager.Peek(ctx, id)
		require.NoError(t, err)
		during = peek.Status
		return domain.Outcome{Kind: domain.OutcomeInfo, Message: domain.MessageNoSteps}
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCalling, during)
	assert.Equal(t, domain.StatusIdle, sess.Status)
	assert.Equal(t, domain.OutcomeInfo, outcome.Kind)

	stored, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIdle, stored.Status)
	require.NotNil(t, stored.LastOutcome)
	assert.Equal(t, domain.MessageNoSteps, stored.LastOutcome.Message)
}

func TestManager_Track_OutcomeSaveFails(t *testing.T) {
	manager := session.NewManager(&OutcomeRejectingStore{Store: memory.NewStore()})

	_, outcome, err := manager.Track(context.Background(), "s", func(context.Context, *domain.Session) domain.Outcome {
		return domain.Outcome{Kind: domain.OutcomeSuccess, Message: domain.MessageStepsHeader}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrOutcomeNotRecorded)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, domain.OutcomeSuccess, outcome.Kind)
}

func TestManager_Track_Serializes(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	var inFlight, maxInFlight atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := manager.Track(ctx, "one-user", func(context.Context, *domain.Session) domain.Outcome {
				n := inFlight.Add(1)
				for {
					old := maxInFlight.Load()
					if n <= old || maxInFlight.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				return domain.Outcome{Kind: domain.OutcomeSuccess}
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load(), "submissions of one session must never overlap")
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &CountingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))
	ctx := context.Background()

	_, err := manager.LoadOrStart(ctx, "s")
	require.NoError(t, err)
	_, _, err = manager.Track(ctx, "s", func(context.Context, *domain.Session) domain.Outcome {
		return domain.Outcome{Kind: domain.OutcomeInfo}
	})
	require.NoError(t, err)

	assert.Equal(t, int32(2), locker.locks.Load())
	assert.Equal(t, int32(2), locker.unlocks.Load())
}

func TestManager_DistributedLockerFailure(t *testing.T) {
	locker := &CountingLocker{err: errors.New("redis down")}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	called := false
	_, _, err := manager.Track(context.Background(), "s", func(context.Context, *domain.Session) domain.Outcome {
		called = true
		return domain.Outcome{}
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire distributed lock")
	assert.False(t, called)
}

func TestNewID_Unique(t *testing.T) {
	assert.NotEqual(t, session.NewID(), session.NewID())
}
