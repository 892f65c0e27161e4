package rbac

import (
	"context"
	"testing"

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

	err = db.AutoMigrate(
		&models.Organization{},
		&models.Workspace{},
		&models.Membership{},
		&models.RoleAssignment{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// seedWorkspace creates an organization with one workspace and returns both.
func seedWorkspace(t *testing.T, db *gorm.DB) (*models.Organization, *models.Workspace) {
	t.Helper()

	org := models.Organization{Name: "Blackwater Fleet", Slug: "blackwater-fleet"}
	require.NoError(t, db.Create(&org).Error)

	workspace := models.Workspace{OrganizationID: org.ID, Name: "Main Deck", Slug: "main-deck"}
	require.NoError(t, db.Create(&workspace).Error)

	return &org, &workspace
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()

	t.Run("nil database", func(t *testing.T) {
		svc := NewService(nil)

		_, err := svc.AssignRole(ctx, AssignParams{})
		assert.ErrorIs(t, err, ErrDBNil)
	})

	t.Run("unknown role", func(t *testing.T) {
		svc := NewService(setupTestDB(t))

		_, err := svc.AssignRole(ctx, AssignParams{
			UserID:    "u1",
			Role:      "pirate",
			ScopeType: models.ScopeWorkspace,
			ScopeID:   "w1",
		})
		assert.ErrorIs(t, err, ErrUnknownRole)
	})

	t.Run("scope mismatch", func(t *testing.T) {
		svc := NewService(setupTestDB(t))

		// system:admin is a system-scope role
		_, err := svc.AssignRole(ctx, AssignParams{
			UserID:    "u1",
			Role:      RoleSystemAdmin,
			ScopeType: models.ScopeWorkspace,
			ScopeID:   "w1",
		})
		assert.ErrorIs(t, err, ErrScopeMismatch)
	})

	t.Run("workspace must exist and be live", func(t *testing.T) {
		svc := NewService(setupTestDB(t))

		_, err := svc.AssignRole(ctx, AssignParams{
			UserID:    "u1",
			Role:      RoleMember,
			ScopeType: models.ScopeWorkspace,
			ScopeID:   "missing",
		})
		assert.ErrorIs(t, err, ErrWorkspaceNotFound)
	})

	t.Run("workspace grant creates membership", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		_, workspace := seedWorkspace(t, db)

		assignment, err := svc.AssignRole(ctx, AssignParams{
			UserID:     "u1",
			Role:       RoleMember,
			ScopeType:  models.ScopeWorkspace,
			ScopeID:    workspace.ID,
			AssignedBy: "admin",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, assignment.ID)
		assert.True(t, assignment.Active())

		var membership models.Membership
		err = db.Where("workspace_id = ? AND user_id = ?", workspace.ID, "u1").First(&membership).Error
		require.NoError(t, err)
		assert.Equal(t, RoleMember, membership.Role)
		assert.Equal(t, workspace.OrganizationID, membership.OrganizationID)
	})

	t.Run("duplicate active assignment rejected", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		_, workspace := seedWorkspace(t, db)

		params := AssignParams{
			UserID:    "u1",
			Role:      RoleMember,
			ScopeType: models.ScopeWorkspace,
			ScopeID:   workspace.ID,
		}

		_, err := svc.AssignRole(ctx, params)
		require.NoError(t, err)

		_, err = svc.AssignRole(ctx, params)
		assert.ErrorIs(t, err, ErrDuplicateAssignment)
	})

	t.Run("revoked assignment can be granted again", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		_, workspace := seedWorkspace(t, db)

		params := AssignParams{
			UserID:    "u1",
			Role:      RoleMember,
			ScopeType: models.ScopeWorkspace,
			ScopeID:   workspace.ID,
		}

		first, err := svc.AssignRole(ctx, params)
		require.NoError(t, err)
		require.NoError(t, svc.Revoke(ctx, first.ID, "admin"))

		second, err := svc.AssignRole(ctx, params)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("second role widens without replacing membership role", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		_, workspace := seedWorkspace(t, db)

		_, err := svc.AssignRole(ctx, AssignParams{
			UserID: "u1", Role: RoleViewer, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
		})
		require.NoError(t, err)

		_, err = svc.AssignRole(ctx, AssignParams{
			UserID: "u1", Role: RoleAdmin, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
		})
		require.NoError(t, err)

		var membership models.Membership
		require.NoError(t, db.Where("workspace_id = ? AND user_id = ?", workspace.ID, "u1").First(&membership).Error)
		assert.Equal(t, RoleViewer, membership.Role, "primary membership role must not be overwritten")

		grants, err := svc.EffectivePermissions(ctx, "u1", workspace.ID)
		require.NoError(t, err)
		assert.True(t, grants.Has(ResourceAll, models.ActionDelete), "admin grant must still apply")
	})
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown assignment", func(t *testing.T) {
		svc := NewService(setupTestDB(t))

		err := svc.Revoke(ctx, "missing", "admin")
		assert.ErrorIs(t, err, ErrAssignmentNotFound)
	})

	t.Run("revoking twice fails", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		_, workspace := seedWorkspace(t, db)

		assignment, err := svc.AssignRole(ctx, AssignParams{
			UserID: "u1", Role: RoleMember, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
		})
		require.NoError(t, err)

		require.NoError(t, svc.Revoke(ctx, assignment.ID, "admin"))
		assert.ErrorIs(t, svc.Revoke(ctx, assignment.ID, "admin"), ErrAssignmentNotFound)
	})

	t.Run("revocation removes grants but keeps the record", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		_, workspace := seedWorkspace(t, db)

		assignment, err := svc.AssignRole(ctx, AssignParams{
			UserID: "u1", Role: RoleMember, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
		})
		require.NoError(t, err)
		require.NoError(t, svc.Revoke(ctx, assignment.ID, "admin"))

		grants, err := svc.EffectivePermissions(ctx, "u1", workspace.ID)
		require.NoError(t, err)
		assert.False(t, grants.Has("projects", models.ActionRead))

		var record models.RoleAssignment
		require.NoError(t, db.Where("id = ?", assignment.ID).First(&record).Error)
		assert.NotNil(t, record.RevokedAt)
		assert.Equal(t, "admin", record.RevokedBy)
	})
}

func TestEffectivePermissions(t *testing.T) {
	ctx := context.Background()

	t.Run("workspace not found", func(t *testing.T) {
		svc := NewService(setupTestDB(t))

		_, err := svc.EffectivePermissions(ctx, "u1", "missing")
		assert.ErrorIs(t, err, ErrWorkspaceNotFound)
	})

	t.Run("no assignments means no grants", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		_, workspace := seedWorkspace(t, db)

		grants, err := svc.EffectivePermissions(ctx, "u1", workspace.ID)
		require.NoError(t, err)
		assert.Empty(t, grants)
	})

	t.Run("union across scope levels", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		org, workspace := seedWorkspace(t, db)

		// viewer at the workspace, org:creator at the organization
		_, err := svc.AssignRole(ctx, AssignParams{
			UserID: "u1", Role: RoleViewer, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
		})
		require.NoError(t, err)

		_, err = svc.AssignRole(ctx, AssignParams{
			UserID: "u1", Role: RoleOrgCreator, ScopeType: models.ScopeOrganization, ScopeID: org.ID,
		})
		require.NoError(t, err)

		grants, err := svc.EffectivePermissions(ctx, "u1", workspace.ID)
		require.NoError(t, err)

		// the organization grant widens past the viewer restriction
		assert.True(t, grants.Has("projects", models.ActionDelete))
		assert.True(t, grants.CanViewDeleted())
	})

	t.Run("organization grant does not leak into other organizations", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		org, _ := seedWorkspace(t, db)

		otherOrg := models.Organization{Name: "Other", Slug: "other"}
		require.NoError(t, db.Create(&otherOrg).Error)

		otherWorkspace := models.Workspace{OrganizationID: otherOrg.ID, Name: "Dock", Slug: "dock"}
		require.NoError(t, db.Create(&otherWorkspace).Error)

		_, err := svc.AssignRole(ctx, AssignParams{
			UserID: "u1", Role: RoleOrgCreator, ScopeType: models.ScopeOrganization, ScopeID: org.ID,
		})
		require.NoError(t, err)

		grants, err := svc.EffectivePermissions(ctx, "u1", otherWorkspace.ID)
		require.NoError(t, err)
		assert.Empty(t, grants)
	})

	t.Run("system grant applies everywhere", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		_, workspace := seedWorkspace(t, db)

		_, err := svc.AssignRole(ctx, AssignParams{
			UserID: "u1", Role: RoleSystemAdmin, ScopeType: models.ScopeSystem,
		})
		require.NoError(t, err)

		grants, err := svc.EffectivePermissions(ctx, "u1", workspace.ID)
		require.NoError(t, err)
		assert.True(t, grants.Has("anything", models.ActionUpdate))
	})
}

func TestCanAdministerScope(t *testing.T) {
	ctx := context.Background()

	t.Run("nil database", func(t *testing.T) {
		svc := NewService(nil)

		_, err := svc.CanAdministerScope(ctx, "u1", models.ScopeWorkspace, "w1")
		assert.ErrorIs(t, err, ErrDBNil)
	})

	t.Run("workspace scope requires member management", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		_, workspace := seedWorkspace(t, db)

		_, err := svc.AssignRole(ctx, AssignParams{
			UserID: "admin", Role: RoleAdmin, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
		})
		require.NoError(t, err)

		_, err = svc.AssignRole(ctx, AssignParams{
			UserID: "member", Role: RoleMember, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
		})
		require.NoError(t, err)

		ok, err := svc.CanAdministerScope(ctx, "admin", models.ScopeWorkspace, workspace.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = svc.CanAdministerScope(ctx, "member", models.ScopeWorkspace, workspace.ID)
		require.NoError(t, err)
		assert.False(t, ok, "a plain member must not administer role grants")

		ok, err = svc.CanAdministerScope(ctx, "outsider", models.ScopeWorkspace, workspace.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("organization scope", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		org, _ := seedWorkspace(t, db)

		otherOrg := models.Organization{Name: "Other", Slug: "other"}
		require.NoError(t, db.Create(&otherOrg).Error)

		_, err := svc.AssignRole(ctx, AssignParams{
			UserID: "creator", Role: RoleOrgCreator, ScopeType: models.ScopeOrganization, ScopeID: org.ID,
		})
		require.NoError(t, err)

		ok, err := svc.CanAdministerScope(ctx, "creator", models.ScopeOrganization, org.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = svc.CanAdministerScope(ctx, "creator", models.ScopeOrganization, otherOrg.ID)
		require.NoError(t, err)
		assert.False(t, ok, "an organization grant must not reach other organizations")

		_, err = svc.AssignRole(ctx, AssignParams{
			UserID: "root", Role: RoleSystemAdmin, ScopeType: models.ScopeSystem,
		})
		require.NoError(t, err)

		ok, err = svc.CanAdministerScope(ctx, "root", models.ScopeOrganization, otherOrg.ID)
		require.NoError(t, err)
		assert.True(t, ok, "system administrators administer every organization")
	})

	t.Run("system scope", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		_, workspace := seedWorkspace(t, db)

		_, err := svc.AssignRole(ctx, AssignParams{
			UserID: "admin", Role: RoleAdmin, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
		})
		require.NoError(t, err)

		ok, err := svc.CanAdministerScope(ctx, "admin", models.ScopeSystem, "")
		require.NoError(t, err)
		assert.False(t, ok, "workspace administrators do not hold system scope")

		_, err = svc.AssignRole(ctx, AssignParams{
			UserID: "root", Role: RoleSystemAdmin, ScopeType: models.ScopeSystem,
		})
		require.NoError(t, err)

		ok, err = svc.CanAdministerScope(ctx, "root", models.ScopeSystem, "")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("revoked grants stop administering", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewService(db)
		_, workspace := seedWorkspace(t, db)

		assignment, err := svc.AssignRole(ctx, AssignParams{
			UserID: "admin", Role: RoleAdmin, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
		})
		require.NoError(t, err)
		require.NoError(t, svc.Revoke(ctx, assignment.ID, "root"))

		ok, err := svc.CanAdministerScope(ctx, "admin", models.ScopeWorkspace, workspace.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRoleNamesFor(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)
	org, workspace := seedWorkspace(t, db)

	_, err := svc.AssignRole(ctx, AssignParams{
		UserID: "u1", Role: RoleViewer, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
	})
	require.NoError(t, err)

	_, err = svc.AssignRole(ctx, AssignParams{
		UserID: "u1", Role: RoleOrgCreator, ScopeType: models.ScopeOrganization, ScopeID: org.ID,
	})
	require.NoError(t, err)

	roles, err := svc.RoleNamesFor(ctx, "u1", workspace.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{RoleViewer, RoleOrgCreator}, roles)
}

func TestAssignmentsAudit(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)
	_, workspace := seedWorkspace(t, db)

	member, err := svc.AssignRole(ctx, AssignParams{
		UserID: "u1", Role: RoleMember, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
	})
	require.NoError(t, err)

	_, err = svc.AssignRole(ctx, AssignParams{
		UserID: "u2", Role: RoleViewer, ScopeType: models.ScopeWorkspace, ScopeID: workspace.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, member.ID, "admin"))

	t.Run("default hides revoked", func(t *testing.T) {
		assignments, err := svc.Assignments(ctx, AuditFilter{ScopeID: workspace.ID})
		require.NoError(t, err)
		require.Len(t, assignments, 1)
		assert.Equal(t, "u2", assignments[0].UserID)
	})

	t.Run("include revoked returns full trail", func(t *testing.T) {
		assignments, err := svc.Assignments(ctx, AuditFilter{ScopeID: workspace.ID, IncludeRevoked: true})
		require.NoError(t, err)
		assert.Len(t, assignments, 2)
	})

	t.Run("filter by user", func(t *testing.T) {
		assignments, err := svc.Assignments(ctx, AuditFilter{UserID: "u1", IncludeRevoked: true})
		require.NoError(t, err)
		require.Len(t, assignments, 1)
		assert.Equal(t, RoleMember, assignments[0].Role)
	})
}
