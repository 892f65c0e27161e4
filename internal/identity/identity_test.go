package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.User{}, &models.Session{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// seedUser creates an active local user with the given password.
func seedUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()

	user := models.User{
		Active:     true,
		Email:      email,
		Password:   models.HashPassword(password),
		AuthSource: models.AuthSourceLocal,
	}
	require.NoError(t, db.Create(&user).Error)

	return &user
}

func TestLocalResolverLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		r := NewLocalResolver(setupTestDB(t))

		_, err := r.Login(ctx, "nobody@example.com", "secret")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		db := setupTestDB(t)
		seedUser(t, db, "user@example.com", "secret")
		r := NewLocalResolver(db)

		_, err := r.Login(ctx, "user@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("disabled account", func(t *testing.T) {
		db := setupTestDB(t)
		user := seedUser(t, db, "user@example.com", "secret")
		require.NoError(t, db.Model(user).Update("active", false).Error)

		r := NewLocalResolver(db)

		_, err := r.Login(ctx, "user@example.com", "secret")
		assert.ErrorIs(t, err, ErrUserAccountDisabled)
	})

	t.Run("successful login resolves", func(t *testing.T) {
		db := setupTestDB(t)
		user := seedUser(t, db, "user@example.com", "secret")
		r := NewLocalResolver(db)

		token, err := r.Login(ctx, "user@example.com", "secret")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		id, err := r.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, id.UserID)
		assert.Equal(t, models.AuthSourceLocal, id.Source)
	})
}

func TestLocalResolverResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown token", func(t *testing.T) {
		r := NewLocalResolver(setupTestDB(t))

		_, err := r.Resolve(ctx, "nope")
		assert.ErrorIs(t, err, ErrNoIdentity)
	})

	t.Run("expired session", func(t *testing.T) {
		db := setupTestDB(t)
		user := seedUser(t, db, "user@example.com", "secret")

		session := models.Session{
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		require.NoError(t, db.Create(&session).Error)

		r := NewLocalResolver(db)

		_, err := r.Resolve(ctx, session.Token)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("logout revokes", func(t *testing.T) {
		db := setupTestDB(t)
		seedUser(t, db, "user@example.com", "secret")
		r := NewLocalResolver(db)

		token, err := r.Login(ctx, "user@example.com", "secret")
		require.NoError(t, err)

		require.NoError(t, r.Logout(ctx, token))

		_, err = r.Resolve(ctx, token)
		assert.ErrorIs(t, err, ErrNoIdentity)

		// logging out twice is a no-op
		assert.NoError(t, r.Logout(ctx, token))
	})
}

func TestOIDCResolveSubject(t *testing.T) {
	ctx := context.Background()

	t.Run("first login provisions the user", func(t *testing.T) {
		db := setupTestDB(t)
		r := &OIDCResolver{db: db}

		id, err := r.resolveSubject(ctx, "sub-1", "user@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, id.UserID)
		assert.Equal(t, "user@example.com", id.Email)
		assert.Equal(t, models.AuthSourceOIDC, id.Source)

		var user models.User
		require.NoError(t, db.Where("external_id = ?", "sub-1").First(&user).Error)
		assert.True(t, user.Active)
		assert.Equal(t, models.AuthSourceOIDC, user.AuthSource)
	})

	t.Run("second login resolves the same user", func(t *testing.T) {
		db := setupTestDB(t)
		r := &OIDCResolver{db: db}

		first, err := r.resolveSubject(ctx, "sub-1", "user@example.com")
		require.NoError(t, err)

		second, err := r.resolveSubject(ctx, "sub-1", "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, first.UserID, second.UserID)

		var count int64
		require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("no email claim cannot provision", func(t *testing.T) {
		r := &OIDCResolver{db: setupTestDB(t)}

		_, err := r.resolveSubject(ctx, "sub-1", "")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("disabled account", func(t *testing.T) {
		db := setupTestDB(t)
		r := &OIDCResolver{db: db}

		id, err := r.resolveSubject(ctx, "sub-1", "user@example.com")
		require.NoError(t, err)
		require.NoError(t, db.Model(&models.User{}).Where("id = ?", id.UserID).Update("active", false).Error)

		_, err = r.resolveSubject(ctx, "sub-1", "user@example.com")
		assert.ErrorIs(t, err, ErrUserAccountDisabled)
	})
}

// countingResolver records how often it was asked.
type countingResolver struct {
	identity Identity
	err      error
	calls    int
}

func (r *countingResolver) Resolve(_ context.Context, _ string) (Identity, error) {
	r.calls++

	if r.err != nil {
		return Identity{}, r.err
	}

	return r.identity, nil
}

func TestCachedResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("second resolve hits the cache", func(t *testing.T) {
		inner := &countingResolver{identity: Identity{UserID: "u1"}}
		cached := NewCachedResolver(inner, time.Minute)

		for i := 0; i < 3; i++ {
			id, err := cached.Resolve(ctx, "token")
			require.NoError(t, err)
			assert.Equal(t, "u1", id.UserID)
		}

		assert.Equal(t, 1, inner.calls)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		inner := &countingResolver{err: ErrNoIdentity}
		cached := NewCachedResolver(inner, time.Minute)

		for i := 0; i < 2; i++ {
			_, err := cached.Resolve(ctx, "token")
			assert.ErrorIs(t, err, ErrNoIdentity)
		}

		assert.Equal(t, 2, inner.calls, "negative results must go back to the source")
	})

	t.Run("invalidate forces re-resolution", func(t *testing.T) {
		inner := &countingResolver{identity: Identity{UserID: "u1"}}
		cached := NewCachedResolver(inner, time.Minute)

		_, err := cached.Resolve(ctx, "token")
		require.NoError(t, err)

		cached.Invalidate("token")

		_, err = cached.Resolve(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, 2, inner.calls)
	})
}

func TestChainResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("first hit wins", func(t *testing.T) {
		first := &countingResolver{identity: Identity{UserID: "u1"}}
		second := &countingResolver{identity: Identity{UserID: "u2"}}

		id, err := NewChainResolver(first, second).Resolve(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "u1", id.UserID)
		assert.Zero(t, second.calls)
	})

	t.Run("no identity falls through", func(t *testing.T) {
		first := &countingResolver{err: ErrNoIdentity}
		second := &countingResolver{identity: Identity{UserID: "u2"}}

		id, err := NewChainResolver(first, second).Resolve(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "u2", id.UserID)
	})

	t.Run("hard errors stop the chain", func(t *testing.T) {
		boom := errors.New("store down")
		first := &countingResolver{err: boom}
		second := &countingResolver{identity: Identity{UserID: "u2"}}

		_, err := NewChainResolver(first, second).Resolve(ctx, "token")
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, second.calls)
	})

	t.Run("nil resolvers are skipped", func(t *testing.T) {
		second := &countingResolver{identity: Identity{UserID: "u2"}}

		id, err := NewChainResolver(nil, second).Resolve(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "u2", id.UserID)
	})

	t.Run("empty chain resolves nothing", func(t *testing.T) {
		_, err := NewChainResolver().Resolve(ctx, "token")
		assert.ErrorIs(t, err, ErrNoIdentity)
	})
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()

	_, ok := FromContext(ctx)
	assert.False(t, ok)

	ctx = WithIdentity(ctx, Identity{UserID: "u1"})

	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
}
