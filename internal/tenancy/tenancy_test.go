package tenancy

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/db/models"
	"github.com/ghxstship/atlvs/internal/rbac"
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

func TestCreateOrganization(t *testing.T) {
	ctx := context.Background()

	t.Run("empty name", func(t *testing.T) {
		_, err := CreateOrganization(ctx, setupTestDB(t), "")
		assert.ErrorIs(t, err, ErrNameEmpty)
	})

	t.Run("slug is derived from the name", func(t *testing.T) {
		org, err := CreateOrganization(ctx, setupTestDB(t), "Blackwater Fleet Ltd.")
		require.NoError(t, err)
		assert.Equal(t, "blackwater-fleet-ltd", org.Slug)
		assert.NotEmpty(t, org.ID)
	})

	t.Run("duplicate slug rejected", func(t *testing.T) {
		db := setupTestDB(t)

		_, err := CreateOrganization(ctx, db, "Blackwater")
		require.NoError(t, err)

		_, err = CreateOrganization(ctx, db, "blackwater")
		assert.ErrorIs(t, err, ErrSlugTaken)
	})
}

func TestCreateWorkspace(t *testing.T) {
	ctx := context.Background()

	t.Run("organization must exist", func(t *testing.T) {
		_, err := CreateWorkspace(ctx, setupTestDB(t), "missing", "Main", "")
		assert.ErrorIs(t, err, ErrOrganizationNotFound)
	})

	t.Run("slug unique per organization", func(t *testing.T) {
		db := setupTestDB(t)

		org, err := CreateOrganization(ctx, db, "Blackwater")
		require.NoError(t, err)

		_, err = CreateWorkspace(ctx, db, org.ID, "Main Deck", "")
		require.NoError(t, err)

		_, err = CreateWorkspace(ctx, db, org.ID, "Main Deck", "")
		assert.ErrorIs(t, err, ErrSlugTaken)

		// the same slug is fine in a different organization
		other, err := CreateOrganization(ctx, db, "Other")
		require.NoError(t, err)

		_, err = CreateWorkspace(ctx, db, other.ID, "Main Deck", "")
		assert.NoError(t, err)
	})
}

func TestDeleteWorkspace(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	org, err := CreateOrganization(ctx, db, "Blackwater")
	require.NoError(t, err)

	workspace, err := CreateWorkspace(ctx, db, org.ID, "Main Deck", "")
	require.NoError(t, err)

	t.Run("soft delete stops resolution", func(t *testing.T) {
		require.NoError(t, DeleteWorkspace(ctx, db, workspace.ID))

		_, err := GetWorkspace(ctx, db, workspace.ID)
		assert.ErrorIs(t, err, ErrWorkspaceNotFound)

		// the row itself is still there
		var count int64
		require.NoError(t, db.Model(&models.Workspace{}).Where("id = ?", workspace.ID).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("deleting twice fails", func(t *testing.T) {
		assert.ErrorIs(t, DeleteWorkspace(ctx, db, workspace.ID), ErrWorkspaceNotFound)
	})

	t.Run("deleted workspaces drop out of listings", func(t *testing.T) {
		workspaces, err := OrganizationWorkspaces(ctx, db, org.ID)
		require.NoError(t, err)
		assert.Empty(t, workspaces)
	})
}

func TestOnboard(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	perms := rbac.NewService(db)

	result, err := Onboard(ctx, db, "u1", "Blackwater Fleet", "Main Deck")
	require.NoError(t, err)

	assert.Equal(t, "blackwater-fleet", result.Organization.Slug)
	assert.Equal(t, result.Organization.ID, result.Workspace.OrganizationID)
	assert.Equal(t, rbac.RoleOwner, result.OwnerGrant.Role)
	assert.Equal(t, rbac.RoleOrgCreator, result.OrgGrant.Role)

	t.Run("creator has full control of the workspace", func(t *testing.T) {
		grants, err := perms.EffectivePermissions(ctx, "u1", result.Workspace.ID)
		require.NoError(t, err)

		for _, action := range []models.RuleAction{
			models.ActionCreate, models.ActionRead, models.ActionUpdate, models.ActionDelete,
		} {
			assert.True(t, grants.Has("projects", action), "missing %s", action)
		}
	})

	t.Run("membership was established", func(t *testing.T) {
		members, err := WorkspaceMembers(ctx, db, result.Workspace.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, "u1", members[0].UserID)
	})

	t.Run("workspace appears in user listing", func(t *testing.T) {
		workspaces, err := UserWorkspaces(ctx, db, "u1")
		require.NoError(t, err)
		require.Len(t, workspaces, 1)
		assert.Equal(t, result.Workspace.ID, workspaces[0].ID)
	})

	t.Run("failure leaves no partial tenant", func(t *testing.T) {
		db := setupTestDB(t)

		// with the assignment table gone the owner grant fails after the
		// organization and workspace were created; everything rolls back
		require.NoError(t, db.Migrator().DropTable(&models.RoleAssignment{}))

		_, err := Onboard(ctx, db, "u2", "Ghost Org", "Deck")
		require.Error(t, err)

		var orgs int64
		require.NoError(t, db.Model(&models.Organization{}).Count(&orgs).Error)
		assert.Zero(t, orgs)

		var workspaces int64
		require.NoError(t, db.Model(&models.Workspace{}).Count(&workspaces).Error)
		assert.Zero(t, workspaces)
	})
}

func TestSlugify(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{"Main Deck", "main-deck"},
		{"  Spaced  Out  ", "spaced-out"},
		{"Ümlauts & Symbols!", "ümlauts-symbols"},
		{"already-slugged", "already-slugged"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, Slugify(tc.in))
		})
	}
}
