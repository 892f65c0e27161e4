// Package rbac implements the role and permission model and the
// permission service on top of it.
//
// Roles are explicit, named capability sets defined in code; only role
// assignments live in the database. Effective permissions for a caller in
// a workspace are the set union of every active assignment's grants across
// the scope walk workspace, organization, system. There is no "highest
// role wins" override: union is associative and commutative, so the walk
// is order-independent, and a revoked assignment simply stops contributing
// its grants.
package rbac
