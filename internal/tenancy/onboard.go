package tenancy

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/db/models"
	"github.com/ghxstship/atlvs/internal/rbac"
)

// OnboardResult is what a completed onboarding produced.
type OnboardResult struct {
	Organization *models.Organization
	Workspace    *models.Workspace
	OwnerGrant   *models.RoleAssignment
	OrgGrant     *models.RoleAssignment
}

// Onboard creates an organization with its first workspace for a new user
// and grants the user the workspace owner role plus the organization
// creator super-role. The whole flow runs in one transaction; a failure at
// any step leaves no partial organization behind. After onboarding, the
// user's effective permissions in the workspace cover full CRUD on every
// table scoped to it.
func Onboard(ctx context.Context, db *gorm.DB, userID, orgName, workspaceName string) (*OnboardResult, error) {
	var result OnboardResult

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := CreateOrganization(ctx, tx, orgName)
		if err != nil {
			return err
		}

		workspace, err := CreateWorkspace(ctx, tx, org.ID, workspaceName, "")
		if err != nil {
			return err
		}

		// The grants go through a service bound to this transaction, so
		// they commit or roll back with the tenant records.
		perms := rbac.NewService(tx)

		ownerGrant, err := perms.AssignRole(ctx, rbac.AssignParams{
			UserID:    userID,
			Role:      rbac.RoleOwner,
			ScopeType: models.ScopeWorkspace,
			ScopeID:   workspace.ID,
			Notes:     "workspace creation",
		})
		if err != nil {
			return err
		}

		orgGrant, err := perms.AssignRole(ctx, rbac.AssignParams{
			UserID:    userID,
			Role:      rbac.RoleOrgCreator,
			ScopeType: models.ScopeOrganization,
			ScopeID:   org.ID,
			Notes:     "organization creation",
		})
		if err != nil {
			return err
		}

		result = OnboardResult{
			Organization: org,
			Workspace:    workspace,
			OwnerGrant:   ownerGrant,
			OrgGrant:     orgGrant,
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("onboarding: %w", err)
	}

	return &result, nil
}
