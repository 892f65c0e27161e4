package daemon

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/config"
	"github.com/ghxstship/atlvs/internal/dataview"
	"github.com/ghxstship/atlvs/internal/db/models"
	"github.com/ghxstship/atlvs/internal/policy"
	"github.com/ghxstship/atlvs/internal/rbac"
	"github.com/ghxstship/atlvs/internal/uniuri"
)

// membershipExpr grants access to rows of workspaces the caller is a
// member of. The raw identity call is lifted to a bound parameter at
// compile time, so it costs one binding per query, not one per row.
const membershipExpr = "workspace_id IN (SELECT workspace_id FROM memberships WHERE user_id = " +
	policy.CallerToken + ")"

func seed(_ *config.Config, db *gorm.DB) {
	seedAdmin(db)
	seedAccessRules(db)
}

// seedAdmin creates the initial system administrator when the user table
// is empty. The generated password is logged once; it must be rotated on
// first login.
func seedAdmin(db *gorm.DB) {
	var count int64

	db.Model(&models.User{}).Count(&count)

	if count > 0 {
		return
	}

	password := uniuri.NewLen(20)

	admin := models.User{
		Active:     true,
		Email:      "admin@localhost",
		Password:   models.HashPassword(password),
		AuthSource: models.AuthSourceLocal,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin user")
	}

	perms := rbac.NewService(db)

	_, err := perms.AssignRole(context.Background(), rbac.AssignParams{
		UserID:     admin.ID,
		Role:       rbac.RoleSystemAdmin,
		ScopeType:  models.ScopeSystem,
		AssignedBy: admin.ID,
		Notes:      "initial seed",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin role")
	}

	log.Warn().
		Str("email", admin.Email).
		Str("password", password).
		Msg("seeded initial admin user, rotate this password")
}

// seedAccessRules declares the default rule set when no rules exist yet:
// members of a workspace read and write its rows, only owners and admins
// delete. The rules are source of truth; the compiler consolidates them
// into installed policies at startup.
func seedAccessRules(db *gorm.DB) {
	var count int64

	db.Model(&models.AccessRule{}).Count(&count)

	if count > 0 {
		return
	}

	audiences := map[models.RuleAction]string{
		models.ActionRead:   "owner,admin,member,viewer,org:creator,system:admin",
		models.ActionCreate: "owner,admin,member,org:creator,system:admin",
		models.ActionUpdate: "owner,admin,member,org:creator,system:admin",
		models.ActionDelete: "owner,admin,org:creator,system:admin",
	}

	var rules []models.AccessRule

	for _, collection := range dataview.Collections() {
		for action, roles := range audiences {
			rules = append(rules, models.AccessRule{
				Table:  collection,
				Action: action,
				Roles:  roles,
				Expr:   membershipExpr,
			})
		}
	}

	if err := db.Create(&rules).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to seed access rules")
	}

	log.Info().Int("rules", len(rules)).Msg("seeded default access rules")
}
