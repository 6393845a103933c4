package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/synthex/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		// 1. Create a session with every field populated
		sess := domain.NewSession(sessionID)
		sess.Page = domain.PageSettings
		sess.Theme = domain.ThemeDark
		sess.Credential = "secret-token"
		sess.LastOutcome = &domain.Outcome{
			Kind:    domain.OutcomeSuccess,
			Message: domain.MessageStepsHeader,
			Steps:   domain.ActionList{"Stir", "Filter"}.Steps(),
		}

		// 2. Save
		err := store.Save(ctx, sessionID, sess)
		require.NoError(t, err, "Save should not return error")

		// 3. Load
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sess.ID, loaded.ID)
		assert.Equal(t, domain.PageSettings, loaded.Page)
		assert.Equal(t, domain.ThemeDark, loaded.Theme)
		assert.Equal(t, "secret-token", loaded.Credential.Reveal())
		require.NotNil(t, loaded.LastOutcome)
		assert.Equal(t, sess.LastOutcome.Steps, loaded.LastOutcome.Steps)
	})

	t.Run("Isolation", func(t *testing.T) {
		sess := domain.NewSession(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, sess))

		// Mutating the caller's copy must not leak into the store
		sess.Theme = domain.ThemeDark
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.ThemeLight, loaded.Theme)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		// Setup
		err := store.Save(ctx, sessionID, domain.NewSession(sessionID))
		require.NoError(t, err)

		// Delete
		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		// Verify gone
		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		// Setup: Create 2 sessions
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1))
		_ = store.Save(ctx, id2, domain.NewSession(id2))

		// Ensure cleanup
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		// List
		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
