package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/config"
	"github.com/ghxstship/atlvs/internal/db/models"
)

// OIDCResolver verifies bearer ID tokens against an OpenID Connect
// provider and maps the subject claim to a local user record.
type OIDCResolver struct {
	verifier *oidc.IDTokenVerifier
	db       *gorm.DB
}

// NewOIDCResolver creates an OIDC resolver from the configured provider.
func NewOIDCResolver(ctx context.Context, cfg *config.OIDC, db *gorm.DB) (*OIDCResolver, error) {
	if !cfg.Enabled {
		return nil, ErrOIDCDisabled
	}

	provider, err := oidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	return &OIDCResolver{
		verifier: verifier,
		db:       db,
	}, nil
}

// Resolve verifies the raw ID token and maps its subject to a local
// user, creating the user on first login.
func (r *OIDCResolver) Resolve(ctx context.Context, credential string) (Identity, error) {
	idToken, err := r.verifier.Verify(ctx, credential)
	if err != nil {
		return Identity{}, ErrNoIdentity
	}

	var claims struct {
		Email string `json:"email"`
	}

	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("failed to parse token claims: %w", err)
	}

	return r.resolveSubject(ctx, idToken.Subject, claims.Email)
}

// resolveSubject looks the subject up and provisions a user record on
// first login. A token without an email claim cannot provision.
func (r *OIDCResolver) resolveSubject(ctx context.Context, subject, email string) (Identity, error) {
	var user models.User

	err := r.db.WithContext(ctx).
		Where("external_id = ? AND auth_source = ?", subject, models.AuthSourceOIDC).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if email == "" {
			return Identity{}, ErrUserNotFound
		}

		user = models.User{
			Active:     true,
			Email:      email,
			AuthSource: models.AuthSourceOIDC,
			ExternalID: subject,
		}

		if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
			return Identity{}, fmt.Errorf("failed to provision user: %w", err)
		}
	} else if err != nil {
		return Identity{}, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.Active {
		return Identity{}, ErrUserAccountDisabled
	}

	return Identity{
		UserID: user.ID,
		Email:  user.Email,
		Source: models.AuthSourceOIDC,
	}, nil
}
