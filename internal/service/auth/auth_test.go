package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/models"
	"github.com/nkiryanov/authd/internal/repository"
	"github.com/nkiryanov/authd/internal/repository/postgres"
	"github.com/nkiryanov/authd/internal/testutil"
	"github.com/nkiryanov/authd/internal/token"
)

const testSignKey = "test-secret-key"

type authFixture struct {
	storage *postgres.Storage
	codec   *token.Codec
	service *AuthService
}

func withService(pg testutil.PostgresContainer, t *testing.T, fn func(f authFixture)) {
	testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		codec, err := token.NewCodec(token.CodecConfig{SignKey: testSignKey})
		require.NoError(t, err)

		issuer, err := token.NewIssuer(token.IssuerConfig{}, codec, storage.Registry())
		require.NoError(t, err)

		validator, err := token.NewValidator(codec, storage.User(), storage.Blacklist())
		require.NoError(t, err)

		rotator, err := token.NewRotator(codec, validator, issuer, storage.User(), storage.Blacklist())
		require.NoError(t, err)

		service, err := NewService(Config{}, storage.User(), issuer, validator, rotator)
		require.NoError(t, err)

		fn(authFixture{storage: storage, codec: codec, service: service})
	})
}

func (f authFixture) createUser(t *testing.T, username string, password string) models.User {
	t.Helper()

	hash, err := DefaultHasher.Hash(password)
	require.NoError(t, err)

	user, err := f.storage.User().CreateUser(t.Context(), repository.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	})
	require.NoError(t, err)
	return user
}

func Test_AuthService(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("login", func(t *testing.T) {
		t.Run("ok", func(t *testing.T) {
			withService(pg, t, func(f authFixture) {
				user := f.createUser(t, "testuser", "password")

				pair, err := f.service.Login(t.Context(), "testuser", "password")
				require.NoError(t, err)

				assert.NotEmpty(t, pair.Access.Value)
				assert.NotEmpty(t, pair.Refresh.Value)

				claims, err := f.codec.Decode(pair.Access.Value)
				require.NoError(t, err)
				assert.Equal(t, user.ID, claims.UserID)
				assert.Equal(t, models.ScopeAccess, claims.Scope)
			})
		})

		t.Run("wrong password", func(t *testing.T) {
			withService(pg, t, func(f authFixture) {
				f.createUser(t, "testuser", "password")

				_, err := f.service.Login(t.Context(), "testuser", "wrong")
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})

		t.Run("unknown user", func(t *testing.T) {
			withService(pg, t, func(f authFixture) {
				_, err := f.service.Login(t.Context(), "nobody", "password")
				require.ErrorIs(t, err, apperrors.ErrUserNotFound, "unknown user and wrong password look the same")
			})
		})
	})

	t.Run("refresh", func(t *testing.T) {
		withService(pg, t, func(f authFixture) {
			f.createUser(t, "testuser", "password")

			pair, err := f.service.Login(t.Context(), "testuser", "password")
			require.NoError(t, err)

			rotated, err := f.service.Refresh(t.Context(), pair.Refresh.Value)
			require.NoError(t, err)
			require.NotEqual(t, pair.Refresh.Value, rotated.Refresh.Value)

			_, err = f.service.Refresh(t.Context(), pair.Refresh.Value)
			require.ErrorIs(t, err, apperrors.ErrTokenInvalid, "a refresh token works exactly once")
		})
	})

	t.Run("check token", func(t *testing.T) {
		t.Run("accepts both scopes", func(t *testing.T) {
			withService(pg, t, func(f authFixture) {
				f.createUser(t, "testuser", "password")

				pair, err := f.service.Login(t.Context(), "testuser", "password")
				require.NoError(t, err)

				require.NoError(t, f.service.CheckToken(t.Context(), pair.Access.Value))
				require.NoError(t, f.service.CheckToken(t.Context(), pair.Refresh.Value))
			})
		})

		t.Run("no leeway on nominal expiry", func(t *testing.T) {
			withService(pg, t, func(f authFixture) {
				user := f.createUser(t, "testuser", "password")

				// Expired ten seconds ago: inside the default decode leeway
				// but the authoritative check must still reject it
				now := time.Now()
				value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"uid":     user.ID,
					"version": user.TokenVersion,
					"scope":   "access",
					"iat":     now.Add(-time.Hour).Unix(),
					"exp":     now.Add(-10 * time.Second).Unix(),
				}).SignedString([]byte(testSignKey))
				require.NoError(t, err)

				err = f.service.CheckToken(t.Context(), value)
				require.ErrorIs(t, err, apperrors.ErrTokenExpired)
			})
		})

		t.Run("rejects garbage", func(t *testing.T) {
			withService(pg, t, func(f authFixture) {
				err := f.service.CheckToken(t.Context(), "garbage")
				require.ErrorIs(t, err, apperrors.ErrTokenMalformed)
			})
		})
	})

	t.Run("user from request", func(t *testing.T) {
		request := func(header string) *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/users/all", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			return r
		}

		t.Run("ok", func(t *testing.T) {
			withService(pg, t, func(f authFixture) {
				user := f.createUser(t, "testuser", "password")

				pair, err := f.service.Login(t.Context(), "testuser", "password")
				require.NoError(t, err)

				got, err := f.service.UserFromRequest(t.Context(), request("Bearer "+pair.Access.Value))
				require.NoError(t, err)
				require.Equal(t, user.ID, got.ID)
			})
		})

		t.Run("missing header", func(t *testing.T) {
			withService(pg, t, func(f authFixture) {
				_, err := f.service.UserFromRequest(t.Context(), request(""))
				require.ErrorIs(t, err, apperrors.ErrTokenMalformed)
			})
		})

		t.Run("wrong scheme", func(t *testing.T) {
			withService(pg, t, func(f authFixture) {
				_, err := f.service.UserFromRequest(t.Context(), request("Basic dXNlcjpwYXNz"))
				require.ErrorIs(t, err, apperrors.ErrTokenMalformed)
			})
		})

		t.Run("token too short", func(t *testing.T) {
			withService(pg, t, func(f authFixture) {
				_, err := f.service.UserFromRequest(t.Context(), request("Bearer abc"))
				require.ErrorIs(t, err, apperrors.ErrTokenMalformed)
			})
		})

		t.Run("refresh token rejected", func(t *testing.T) {
			withService(pg, t, func(f authFixture) {
				f.createUser(t, "testuser", "password")

				pair, err := f.service.Login(t.Context(), "testuser", "password")
				require.NoError(t, err)

				_, err = f.service.UserFromRequest(t.Context(), request("Bearer "+pair.Refresh.Value))
				require.ErrorIs(t, err, apperrors.ErrTokenWrongScope, "only access tokens authenticate requests")
			})
		})
	})
}
