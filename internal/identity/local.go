package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// DefaultSessionTTL is how long a login session stays valid.
const DefaultSessionTTL = 24 * time.Hour

// LocalResolver resolves session tokens issued by local password logins.
type LocalResolver struct {
	db         *gorm.DB
	sessionTTL time.Duration
}

// NewLocalResolver creates a resolver over the local session store.
func NewLocalResolver(db *gorm.DB) *LocalResolver {
	return &LocalResolver{
		db:         db,
		sessionTTL: DefaultSessionTTL,
	}
}

// Resolve maps a session token to its owning user.
func (r *LocalResolver) Resolve(ctx context.Context, credential string) (Identity, error) {
	var session models.Session

	err := r.db.WithContext(ctx).Where("token = ?", credential).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrNoIdentity
	}

	if err != nil {
		return Identity{}, fmt.Errorf("failed to query session: %w", err)
	}

	if session.Expired(time.Now()) {
		return Identity{}, ErrSessionExpired
	}

	var user models.User

	err = r.db.WithContext(ctx).Where("id = ?", session.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrUserNotFound
	}

	if err != nil {
		return Identity{}, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.Active {
		return Identity{}, ErrUserAccountDisabled
	}

	return Identity{
		UserID: user.ID,
		Email:  user.Email,
		Source: models.AuthSourceLocal,
	}, nil
}

// Login authenticates an email/password pair against the local user store
// and issues a session token on success.
func (r *LocalResolver) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User

	err := r.db.WithContext(ctx).
		Where("email = ? AND auth_source = ?", email, models.AuthSourceLocal).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}

	if err != nil {
		return "", fmt.Errorf("failed to query user: %w", err)
	}

	if !user.Active {
		return "", ErrUserAccountDisabled
	}

	if !user.VerifyPassword(password) {
		return "", ErrInvalidPassword
	}

	session := models.Session{
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(r.sessionTTL),
	}

	if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return session.Token, nil
}

// Logout removes a session token. Removing an unknown token is a no-op.
func (r *LocalResolver) Logout(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&models.Session{}).Error
}
