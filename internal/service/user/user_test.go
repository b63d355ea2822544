package user

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/repository"
	"github.com/nkiryanov/authd/internal/repository/postgres"
	"github.com/nkiryanov/authd/internal/service/auth"
	"github.com/nkiryanov/authd/internal/testutil"
)

func Test_UserService(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withService := func(t *testing.T, fn func(s *UserService)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(NewService(auth.DefaultHasher, storage.User()))
		})
	}

	t.Run("create", func(t *testing.T) {
		t.Run("ok", func(t *testing.T) {
			withService(t, func(s *UserService) {
				user, err := s.Create(t.Context(), CreateParams{Username: "testuser", Password: "password"})
				require.NoError(t, err)

				assert.Equal(t, "testuser", user.Username)
				assert.True(t, user.IsActive, "users are active unless asked otherwise")
				assert.False(t, user.IsAdmin)
				assert.NotEqual(t, "password", user.PasswordHash, "password must be stored hashed")

				err = auth.DefaultHasher.Compare(user.PasswordHash, "password")
				require.NoError(t, err, "stored hash should match the password")
			})
		})

		t.Run("admin and inactive flags", func(t *testing.T) {
			withService(t, func(s *UserService) {
				user, err := s.Create(t.Context(), CreateParams{
					Username: "admin",
					Password: "password",
					IsAdmin:  true,
					Inactive: true,
				})
				require.NoError(t, err)

				assert.True(t, user.IsAdmin)
				assert.False(t, user.IsActive)
			})
		})

		t.Run("duplicate username", func(t *testing.T) {
			withService(t, func(s *UserService) {
				_, err := s.Create(t.Context(), CreateParams{Username: "taken", Password: "password"})
				require.NoError(t, err)

				_, err = s.Create(t.Context(), CreateParams{Username: "taken", Password: "password"})
				require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
			})
		})
	})

	t.Run("set flags", func(t *testing.T) {
		withService(t, func(s *UserService) {
			user, err := s.Create(t.Context(), CreateParams{Username: "testuser", Password: "password"})
			require.NoError(t, err)

			isActive := false
			updated, err := s.SetFlags(t.Context(), user.ID, repository.UpdateUserFlagsParams{IsActive: &isActive})
			require.NoError(t, err)
			require.False(t, updated.IsActive)

			users, err := s.ListActive(t.Context())
			require.NoError(t, err)
			require.Empty(t, users, "deactivated user should drop out of the active list")
		})
	})

	t.Run("change password", func(t *testing.T) {
		t.Run("logs out sessions by default", func(t *testing.T) {
			withService(t, func(s *UserService) {
				user, err := s.Create(t.Context(), CreateParams{Username: "testuser", Password: "old"})
				require.NoError(t, err)

				updated, err := s.ChangePassword(t.Context(), user.ID, "new", false)
				require.NoError(t, err)

				assert.Equal(t, user.TokenVersion+1, updated.TokenVersion, "version bump kills issued tokens")
				assert.NoError(t, auth.DefaultHasher.Compare(updated.PasswordHash, "new"))
			})
		})

		t.Run("keep sessions", func(t *testing.T) {
			withService(t, func(s *UserService) {
				user, err := s.Create(t.Context(), CreateParams{Username: "testuser", Password: "old"})
				require.NoError(t, err)

				updated, err := s.ChangePassword(t.Context(), user.ID, "new", true)
				require.NoError(t, err)

				assert.Equal(t, user.TokenVersion, updated.TokenVersion)
			})
		})
	})

	t.Run("delete", func(t *testing.T) {
		withService(t, func(s *UserService) {
			user, err := s.Create(t.Context(), CreateParams{Username: "doomed", Password: "password"})
			require.NoError(t, err)

			require.NoError(t, s.Delete(t.Context(), user.ID))

			_, err = s.GetByID(t.Context(), user.ID)
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})
}
