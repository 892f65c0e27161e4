package rbac

import (
	"sort"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// ResourceAll matches any resource table in a grant.
const ResourceAll = "*"

// ResourceDeleted is the pseudo-resource whose read grant lets a caller
// see soft-deleted rows that default reads exclude.
const ResourceDeleted = "deleted"

// ResourceMembers is the pseudo-resource for member and role management.
// The wildcard resource does not imply it; only the admin-tier roles
// carry it explicitly.
const ResourceMembers = "members"

// ResourceWorkspace is the pseudo-resource for workspace lifecycle
// management. Like ResourceMembers it is never implied by the wildcard.
const ResourceWorkspace = "workspace"

// Grant is a single (resource, action) capability.
type Grant struct {
	Resource string
	Action   models.RuleAction
}

// String returns the grant in resource.action form.
func (g Grant) String() string {
	return g.Resource + "." + string(g.Action)
}

// GrantSet is a set of grants, the value of an effective-permission query.
type GrantSet map[Grant]struct{}

// Add inserts a grant into the set.
func (s GrantSet) Add(g Grant) {
	s[g] = struct{}{}
}

// Union merges other into the set.
func (s GrantSet) Union(other GrantSet) {
	for g := range other {
		s[g] = struct{}{}
	}
}

// Has reports whether the set allows the action on the resource, honoring
// the wildcard resource.
func (s GrantSet) Has(resource string, action models.RuleAction) bool {
	if _, ok := s[Grant{Resource: resource, Action: action}]; ok {
		return true
	}

	_, ok := s[Grant{Resource: ResourceAll, Action: action}]

	return ok
}

// CanViewDeleted reports whether the set carries the view-deleted grant.
func (s GrantSet) CanViewDeleted() bool {
	_, ok := s[Grant{Resource: ResourceDeleted, Action: models.ActionRead}]
	return ok
}

// CanManageMembers reports whether the set carries the member-management
// grant. Holding it allows granting and revoking roles at the scope the
// set was resolved for.
func (s GrantSet) CanManageMembers() bool {
	_, ok := s[Grant{Resource: ResourceMembers, Action: models.ActionUpdate}]
	return ok
}

// CanManageWorkspace reports whether the set carries the workspace
// lifecycle grant. Holding it allows deleting the workspace the set was
// resolved for.
func (s GrantSet) CanManageWorkspace() bool {
	_, ok := s[Grant{Resource: ResourceWorkspace, Action: models.ActionDelete}]
	return ok
}

// Sorted returns the grants in deterministic order, for stable output in
// API responses and tests.
func (s GrantSet) Sorted() []Grant {
	out := make([]Grant, 0, len(s))
	for g := range s {
		out = append(out, g)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}

		return out[i].Action < out[j].Action
	})

	return out
}

// Role is an immutable, named capability set bound to one scope level.
type Role struct {
	// Name is the unique role name assignments reference.
	Name string
	// Scope is the level the role may be assigned at.
	Scope models.ScopeType
	// Description explains the role for administrative surfaces.
	Description string
	// Grants is the role's capability set.
	Grants []Grant
}

// Built-in role names.
const (
	// RoleOwner has full control of a workspace, including deleted rows.
	RoleOwner = "owner"
	// RoleAdmin manages a workspace's resources, including deleted rows.
	RoleAdmin = "admin"
	// RoleMember creates and edits workspace resources but cannot delete.
	RoleMember = "member"
	// RoleViewer has read-only access to a workspace.
	RoleViewer = "viewer"
	// RoleOrgCreator is the organization super-role granted at onboarding.
	RoleOrgCreator = "org:creator"
	// RoleSystemAdmin is the platform-wide operator role.
	RoleSystemAdmin = "system:admin"
)

func fullControl() []Grant {
	return []Grant{
		{Resource: ResourceAll, Action: models.ActionCreate},
		{Resource: ResourceAll, Action: models.ActionRead},
		{Resource: ResourceAll, Action: models.ActionUpdate},
		{Resource: ResourceAll, Action: models.ActionDelete},
		{Resource: ResourceDeleted, Action: models.ActionRead},
		{Resource: ResourceMembers, Action: models.ActionUpdate},
		{Resource: ResourceWorkspace, Action: models.ActionDelete},
	}
}

// builtin is the role catalog. Role definitions are immutable; changing a
// role's capabilities means shipping a new definition here, never editing
// assignment records.
var builtin = map[string]Role{ //nolint:gochecknoglobals
	RoleOwner: {
		Name:        RoleOwner,
		Scope:       models.ScopeWorkspace,
		Description: "Full control of a workspace",
		Grants:      fullControl(),
	},
	RoleAdmin: {
		Name:        RoleAdmin,
		Scope:       models.ScopeWorkspace,
		Description: "Manages workspace resources and members",
		Grants:      fullControl(),
	},
	RoleMember: {
		Name:        RoleMember,
		Scope:       models.ScopeWorkspace,
		Description: "Creates and edits workspace resources",
		Grants: []Grant{
			{Resource: ResourceAll, Action: models.ActionCreate},
			{Resource: ResourceAll, Action: models.ActionRead},
			{Resource: ResourceAll, Action: models.ActionUpdate},
		},
	},
	RoleViewer: {
		Name:        RoleViewer,
		Scope:       models.ScopeWorkspace,
		Description: "Read-only access to a workspace",
		Grants: []Grant{
			{Resource: ResourceAll, Action: models.ActionRead},
		},
	},
	RoleOrgCreator: {
		Name:        RoleOrgCreator,
		Scope:       models.ScopeOrganization,
		Description: "Organization creator; full control of every owned workspace",
		Grants:      fullControl(),
	},
	RoleSystemAdmin: {
		Name:        RoleSystemAdmin,
		Scope:       models.ScopeSystem,
		Description: "Platform operator",
		Grants:      fullControl(),
	},
}

// LookupRole returns the definition of a built-in role.
func LookupRole(name string) (Role, bool) {
	role, ok := builtin[name]
	return role, ok
}

// RoleNames returns every defined role name in deterministic order.
func RoleNames() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
