package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/repository"
	"github.com/nkiryanov/authd/internal/testutil"
)

func Test_UserRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create user ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			user, err := r.CreateUser(t.Context(), repository.CreateUserParams{
				Username:     "testuser",
				PasswordHash: "hashedpassword123",
				IsActive:     true,
			})

			require.NoError(t, err)
			assert.Equal(t, "testuser", user.Username)
			assert.Equal(t, "hashedpassword123", user.PasswordHash)
			assert.Equal(t, int64(0), user.TokenVersion, "new user starts at version zero")
			assert.True(t, user.IsActive)
			assert.False(t, user.IsAdmin)
			assert.WithinDuration(t, time.Now(), user.CreatedAt, time.Second, "CreatedAt should be recent")
		})
	})

	t.Run("create duplicate username", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.CreateUser(t.Context(), repository.CreateUserParams{Username: "taken", PasswordHash: "h"})
			require.NoError(t, err)

			_, err = r.CreateUser(t.Context(), repository.CreateUserParams{Username: "taken", PasswordHash: "h"})
			assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists, "should return well known error")
		})
	})

	t.Run("get user by id", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			created, err := r.CreateUser(t.Context(), repository.CreateUserParams{Username: "findbyid", PasswordHash: "h", IsActive: true})
			require.NoError(t, err)

			got, err := r.GetUserByID(t.Context(), created.ID)

			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	})

	t.Run("get user by id not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.GetUserByID(t.Context(), 404404)

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "should return well known error")
		})
	})

	t.Run("get user by username", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			created, err := r.CreateUser(t.Context(), repository.CreateUserParams{Username: "findbyusername", PasswordHash: "h"})
			require.NoError(t, err)

			got, err := r.GetUserByUsername(t.Context(), "findbyusername")

			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	})

	t.Run("get user by username not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.GetUserByUsername(t.Context(), "nonexistentuser")

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("list active users", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			active, err := r.CreateUser(t.Context(), repository.CreateUserParams{Username: "active", PasswordHash: "h", IsActive: true})
			require.NoError(t, err)
			_, err = r.CreateUser(t.Context(), repository.CreateUserParams{Username: "inactive", PasswordHash: "h", IsActive: false})
			require.NoError(t, err)

			users, err := r.ListActiveUsers(t.Context())

			require.NoError(t, err)
			require.Len(t, users, 1, "inactive users should not be listed")
			assert.Equal(t, active.ID, users[0].ID)
		})
	})

	t.Run("update user flags", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			created, err := r.CreateUser(t.Context(), repository.CreateUserParams{Username: "flags", PasswordHash: "h", IsActive: true})
			require.NoError(t, err)

			isAdmin := true
			updated, err := r.UpdateUserFlags(t.Context(), created.ID, repository.UpdateUserFlagsParams{IsAdmin: &isAdmin})

			require.NoError(t, err)
			assert.True(t, updated.IsAdmin)
			assert.True(t, updated.IsActive, "nil flag should leave the column untouched")

			isActive := false
			updated, err = r.UpdateUserFlags(t.Context(), created.ID, repository.UpdateUserFlagsParams{IsActive: &isActive})

			require.NoError(t, err)
			assert.False(t, updated.IsActive)
			assert.True(t, updated.IsAdmin, "nil flag should leave the column untouched")
		})
	})

	t.Run("update password", func(t *testing.T) {
		t.Run("keep version", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				r := UserRepo{DB: tx}

				created, err := r.CreateUser(t.Context(), repository.CreateUserParams{Username: "passwd", PasswordHash: "old"})
				require.NoError(t, err)

				updated, err := r.UpdatePassword(t.Context(), created.ID, "new", false)

				require.NoError(t, err)
				assert.Equal(t, "new", updated.PasswordHash)
				assert.Equal(t, created.TokenVersion, updated.TokenVersion)
			})
		})

		t.Run("bump version", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				r := UserRepo{DB: tx}

				created, err := r.CreateUser(t.Context(), repository.CreateUserParams{Username: "passwd", PasswordHash: "old"})
				require.NoError(t, err)

				updated, err := r.UpdatePassword(t.Context(), created.ID, "new", true)

				require.NoError(t, err)
				assert.Equal(t, "new", updated.PasswordHash)
				assert.Equal(t, created.TokenVersion+1, updated.TokenVersion)
			})
		})

		t.Run("unknown user", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				r := UserRepo{DB: tx}

				_, err := r.UpdatePassword(t.Context(), 404404, "new", false)

				assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("delete user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			created, err := r.CreateUser(t.Context(), repository.CreateUserParams{Username: "doomed", PasswordHash: "h"})
			require.NoError(t, err)

			err = r.DeleteUser(t.Context(), created.ID)
			require.NoError(t, err)

			_, err = r.GetUserByID(t.Context(), created.ID)
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

			err = r.DeleteUser(t.Context(), created.ID)
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "deleting twice should report missing user")
		})
	})
}
