package rbac

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// Service owns membership and role assignment records. All mutations go
// through its transactional operations; every other component treats the
// underlying tables as read-only.
type Service struct {
	db *gorm.DB

	// locks serializes AssignRole/Revoke per (user, scope) so concurrent
	// grants can not race past the duplicate check.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new permission service.
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

// AssignParams describes a role grant.
type AssignParams struct {
	UserID     string
	Role       string
	ScopeType  models.ScopeType
	ScopeID    string
	AssignedBy string
	Notes      string
}

func (s *Service) scopeLock(userID, scopeID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + "|" + scopeID

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}

	return lock
}

// AssignRole creates a new, immutable assignment record and, for workspace
// scope, the corresponding membership. Assignments are additive and never
// overwritten; an identical active (user, role, scope) triple fails with
// ErrDuplicateAssignment.
func (s *Service) AssignRole(ctx context.Context, p AssignParams) (*models.RoleAssignment, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	role, ok := LookupRole(p.Role)
	if !ok {
		return nil, ErrUnknownRole
	}

	if role.Scope != p.ScopeType {
		return nil, ErrScopeMismatch
	}

	lock := s.scopeLock(p.UserID, p.ScopeID)
	lock.Lock()
	defer lock.Unlock()

	assignment := models.RoleAssignment{
		UserID:     p.UserID,
		Role:       p.Role,
		ScopeType:  p.ScopeType,
		ScopeID:    p.ScopeID,
		AssignedBy: p.AssignedBy,
		Notes:      p.Notes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64

		err := tx.Model(&models.RoleAssignment{}).
			Where("user_id = ? AND role = ? AND scope_type = ? AND scope_id = ? AND revoked_at IS NULL",
				p.UserID, p.Role, p.ScopeType, p.ScopeID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check existing assignment: %w", err)
		}

		if count > 0 {
			return ErrDuplicateAssignment
		}

		if err := tx.Create(&assignment).Error; err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}

		if p.ScopeType != models.ScopeWorkspace {
			return nil
		}

		// Workspace grants establish the membership. An existing
		// membership keeps its primary role; the new assignment still
		// widens the effective permissions through the union.
		var workspace models.Workspace

		err = tx.Where("id = ? AND deleted_at IS NULL", p.ScopeID).First(&workspace).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkspaceNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to load workspace: %w", err)
		}

		membership := models.Membership{
			WorkspaceID:    workspace.ID,
			OrganizationID: workspace.OrganizationID,
			UserID:         p.UserID,
			Role:           p.Role,
		}

		err = tx.Where("workspace_id = ? AND user_id = ?", workspace.ID, p.UserID).
			FirstOrCreate(&membership).Error
		if err != nil {
			return fmt.Errorf("failed to create membership: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &assignment, nil
}

// Revoke soft-deletes an assignment. Subsequent effective-permission
// queries exclude it. Revoking an unknown or already revoked assignment
// fails with ErrAssignmentNotFound.
func (s *Service) Revoke(ctx context.Context, assignmentID, revokedBy string) error {
	if s.db == nil {
		return ErrDBNil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assignment models.RoleAssignment

		err := tx.Where("id = ?", assignmentID).First(&assignment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to load assignment: %w", err)
		}

		if !assignment.Active() {
			return ErrAssignmentNotFound
		}

		now := time.Now()

		return tx.Model(&assignment).
			Updates(map[string]interface{}{
				"revoked_at": &now,
				"revoked_by": revokedBy,
			}).Error
	})
}

// EffectivePermissions walks the scope hierarchy from the workspace out to
// its organization and the system scope, collects every active
// assignment's grants and unions them.
func (s *Service) EffectivePermissions(ctx context.Context, userID, workspaceID string) (GrantSet, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	assignments, err := s.activeAssignments(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}

	set := make(GrantSet)

	for _, a := range assignments {
		role, ok := LookupRole(a.Role)
		if !ok {
			// A stale assignment for a role that no longer ships
			// contributes nothing.
			continue
		}

		for _, g := range role.Grants {
			set.Add(g)
		}
	}

	return set, nil
}

// HasPermission is a pure query over EffectivePermissions. Write paths
// call it synchronously as defense in depth even though the store's
// compiled policies are expected to deny unauthorized mutations anyway.
func (s *Service) HasPermission(ctx context.Context, userID, workspaceID, resource string, action models.RuleAction) (bool, error) {
	set, err := s.EffectivePermissions(ctx, userID, workspaceID)
	if err != nil {
		return false, err
	}

	return set.Has(resource, action), nil
}

// CanAdministerScope reports whether the user may grant and revoke role
// assignments at the given scope. Workspace scope walks the full
// hierarchy through EffectivePermissions; broader scopes require a direct
// active assignment at that level.
func (s *Service) CanAdministerScope(ctx context.Context, userID string, scopeType models.ScopeType, scopeID string) (bool, error) {
	if s.db == nil {
		return false, ErrDBNil
	}

	switch scopeType {
	case models.ScopeWorkspace:
		set, err := s.EffectivePermissions(ctx, userID, scopeID)
		if err != nil {
			return false, err
		}

		return set.CanManageMembers(), nil
	case models.ScopeOrganization:
		ok, err := s.hasActiveAssignment(ctx, userID, models.ScopeOrganization, scopeID, RoleOrgCreator)
		if err != nil || ok {
			return ok, err
		}

		return s.hasActiveAssignment(ctx, userID, models.ScopeSystem, "", RoleSystemAdmin)
	case models.ScopeSystem:
		return s.hasActiveAssignment(ctx, userID, models.ScopeSystem, "", RoleSystemAdmin)
	}

	return false, nil
}

func (s *Service) hasActiveAssignment(ctx context.Context, userID string, scopeType models.ScopeType, scopeID, role string) (bool, error) {
	query := s.db.WithContext(ctx).Model(&models.RoleAssignment{}).
		Where("user_id = ? AND role = ? AND scope_type = ? AND revoked_at IS NULL", userID, role, scopeType)

	if scopeID != "" {
		query = query.Where("scope_id = ?", scopeID)
	}

	var count int64

	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to query assignments: %w", err)
	}

	return count > 0, nil
}

// RoleNamesFor returns the names of the caller's active roles relevant to
// a workspace, in scope-walk order. The store's enforcement layer matches
// these against compiled policy audiences.
func (s *Service) RoleNamesFor(ctx context.Context, userID, workspaceID string) ([]string, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	assignments, err := s.activeAssignments(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(assignments))
	names := make([]string, 0, len(assignments))

	for _, a := range assignments {
		if _, ok := seen[a.Role]; ok {
			continue
		}

		seen[a.Role] = struct{}{}
		names = append(names, a.Role)
	}

	return names, nil
}

func (s *Service) activeAssignments(ctx context.Context, userID, workspaceID string) ([]models.RoleAssignment, error) {
	var workspace models.Workspace

	err := s.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", workspaceID).
		First(&workspace).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWorkspaceNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	var assignments []models.RoleAssignment

	err = s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Where(
			s.db.Where("scope_type = ? AND scope_id = ?", models.ScopeWorkspace, workspace.ID).
				Or("scope_type = ? AND scope_id = ?", models.ScopeOrganization, workspace.OrganizationID).
				Or("scope_type = ?", models.ScopeSystem),
		).
		Order("assigned_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}

	return assignments, nil
}
