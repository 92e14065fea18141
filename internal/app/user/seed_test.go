package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babelchat/internal/app/user"
	"babelchat/internal/testutil"
)

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing admin", func(t *testing.T) {
		store := testutil.NewUserStore()

		u, created, err := user.EnsureAdmin(ctx, store, "admin", "changeme")
		require.NoError(t, err)
		assert.True(t, created)
		assert.True(t, u.IsAdmin)
		assert.True(t, u.CheckPassword("changeme"))

		again, created, err := user.EnsureAdmin(ctx, store, "ADMIN", "other-password")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, u.ID, again.ID)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		_, _, err := user.EnsureAdmin(ctx, testutil.NewUserStore(), "a", "changeme")
		assert.Error(t, err)
	})

	t.Run("store failure", func(t *testing.T) {
		store := testutil.NewUserStore()
		store.Err = errors.New("db down")

		_, _, err := user.EnsureAdmin(ctx, store, "admin", "changeme")
		assert.ErrorIs(t, err, store.Err)
	})
}
