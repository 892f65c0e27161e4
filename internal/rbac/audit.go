package rbac

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// AuditFilter narrows an assignment history query. Zero-value fields are
// not filtered on.
type AuditFilter struct {
	UserID    string
	ScopeType models.ScopeType
	ScopeID   string
	Role      string
	// IncludeRevoked also returns revoked assignments; the default shows
	// only active grants.
	IncludeRevoked bool
	Limit          int
}

const defaultAuditLimit = 200

// Assignments returns the role assignment history matching the filter,
// most recent first. Because assignment records are immutable this is the
// complete audit trail: who holds or held which role, at what scope, since
// when, granted and revoked by whom.
func (s *Service) Assignments(ctx context.Context, filter AuditFilter) ([]models.RoleAssignment, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	query := s.db.WithContext(ctx).Model(&models.RoleAssignment{})

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	if filter.ScopeType != "" {
		query = query.Where("scope_type = ?", filter.ScopeType)
	}

	if filter.ScopeID != "" {
		query = query.Where("scope_id = ?", filter.ScopeID)
	}

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	if !filter.IncludeRevoked {
		query = query.Where("revoked_at IS NULL")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	var assignments []models.RoleAssignment

	err := query.Order("assigned_at DESC").Limit(limit).Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment audit: %w", err)
	}

	return assignments, nil
}

// Assignment returns one assignment record by id, revoked or not.
func (s *Service) Assignment(ctx context.Context, id string) (*models.RoleAssignment, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var assignment models.RoleAssignment

	err := s.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssignmentNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}

	return &assignment, nil
}
