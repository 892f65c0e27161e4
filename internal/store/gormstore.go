package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/db/models"
	"github.com/ghxstship/atlvs/internal/identity"
	"github.com/ghxstship/atlvs/internal/policy"
	"github.com/ghxstship/atlvs/internal/rbac"
)

// identPattern restricts collection and column names that get embedded
// into SQL text. Anything else is rejected before it reaches the query.
var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// GormStore enforces compiled policies over a gorm-backed database.
type GormStore struct {
	db    *gorm.DB
	perms *rbac.Service
	feed  ChangeFeed
}

// NewGormStore creates the enforcing store.
func NewGormStore(db *gorm.DB, perms *rbac.Service, feed ChangeFeed) *GormStore {
	return &GormStore{
		db:    db,
		perms: perms,
		feed:  feed,
	}
}

// Read implements Store. The caller identity is taken from the context
// (resolved once at the operation boundary), its roles are matched against
// the installed policy audiences, and the matching predicates are ORed
// into the query with the caller id bound as a single parameter.
func (s *GormStore) Read(ctx context.Context, q Query) ([]Row, error) {
	caller, ok := identity.FromContext(ctx)
	if !ok {
		return nil, ErrNoCaller
	}

	workspaceID, ok := q.Filter["workspace_id"].(string)
	if !ok || workspaceID == "" {
		return nil, ErrTenantRequired
	}

	if !identPattern.MatchString(q.Collection) {
		return nil, fmt.Errorf("%w: invalid collection %q", ErrNotFound, q.Collection)
	}

	predicate, args, err := s.policyPredicate(ctx, caller, q.Collection, models.ActionRead, workspaceID)
	if err != nil {
		return nil, err
	}

	if q.IncludeDeleted {
		grants, err := s.perms.EffectivePermissions(ctx, caller.UserID, workspaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to load caller grants: %w", err)
		}

		args["include_deleted"] = grants.CanViewDeleted()
	}

	tx := s.db.WithContext(ctx).Table(q.Collection).Where(predicate, args)

	for _, field := range sortedKeys(q.Filter) {
		if !identPattern.MatchString(field) {
			return nil, fmt.Errorf("%w: invalid filter field %q", ErrNotFound, field)
		}

		tx = tx.Where(field+" = ?", q.Filter[field])
	}

	for _, order := range q.Order {
		if !identPattern.MatchString(order.Field) {
			return nil, fmt.Errorf("%w: invalid order field %q", ErrNotFound, order.Field)
		}

		direction := " ASC"
		if order.Descending {
			direction = " DESC"
		}

		tx = tx.Order(order.Field + direction)
	}

	var raw []map[string]interface{}

	if err := tx.Find(&raw).Error; err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", q.Collection, err)
	}

	rows := make([]Row, len(raw))
	for i, r := range raw {
		rows[i] = Row(r)
	}

	return rows, nil
}

// Write implements Store. HasPermission runs first as defense in depth;
// the compiled policy predicate then gates the actual row.
func (s *GormStore) Write(ctx context.Context, m Mutation) (Row, error) {
	caller, ok := identity.FromContext(ctx)
	if !ok {
		return nil, ErrNoCaller
	}

	if m.WorkspaceID == "" {
		return nil, ErrTenantRequired
	}

	if !identPattern.MatchString(m.Collection) {
		return nil, fmt.Errorf("%w: invalid collection %q", ErrNotFound, m.Collection)
	}

	action, ok := actionFor(m.Op)
	if !ok {
		return nil, ErrUnknownOp
	}

	allowed, err := s.perms.HasPermission(ctx, caller.UserID, m.WorkspaceID, m.Collection, action)
	if err != nil {
		return nil, fmt.Errorf("failed to check permission: %w", err)
	}

	if !allowed {
		return nil, ErrUnauthorized
	}

	predicate, args, err := s.policyPredicate(ctx, caller, m.Collection, action, m.WorkspaceID)
	if err != nil {
		return nil, err
	}

	var row Row

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch m.Op {
		case OpInsert:
			row, err = s.insert(tx, m)
		case OpUpdate:
			row, err = s.update(tx, m, predicate, args)
		case OpDelete:
			row, err = s.delete(tx, m, predicate, args)
		default:
			err = ErrUnknownOp
		}

		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, m, row)

	return row, nil
}

// ChangeFeed implements Store.
func (s *GormStore) ChangeFeed(ctx context.Context, collection, workspaceID string) (Feed, error) {
	return s.feed.Subscribe(ctx, collection, workspaceID)
}

// policyPredicate resolves the caller's roles for the workspace, selects
// the installed policies whose audience intersects them and ORs their
// predicates. No applicable policy means the caller has no path to any
// row: ErrUnauthorized, never an empty result.
func (s *GormStore) policyPredicate(
	ctx context.Context,
	caller identity.Identity,
	collection string,
	action models.RuleAction,
	workspaceID string,
) (string, map[string]interface{}, error) {
	roles, err := s.perms.RoleNamesFor(ctx, caller.UserID, workspaceID)
	if err != nil {
		if err == rbac.ErrWorkspaceNotFound {
			return "", nil, ErrUnauthorized
		}

		return "", nil, fmt.Errorf("failed to resolve caller roles: %w", err)
	}

	if len(roles) == 0 {
		return "", nil, ErrUnauthorized
	}

	policies, err := policy.Installed(s.db, collection, action)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load policies: %w", err)
	}

	var predicates []string

	for _, p := range policies {
		if audienceMatches(p.Audience, roles) {
			predicates = append(predicates, "("+p.Expr+")")
		}
	}

	if len(predicates) == 0 {
		return "", nil, ErrUnauthorized
	}

	args := map[string]interface{}{
		"caller_id":       caller.UserID,
		"include_deleted": false,
	}

	return strings.Join(predicates, " OR "), args, nil
}

func (s *GormStore) insert(tx *gorm.DB, m Mutation) (Row, error) {
	values := make(map[string]interface{}, len(m.Values)+4)
	for k, v := range m.Values {
		values[k] = v
	}

	if _, ok := values["id"]; !ok {
		values["id"] = uuid.NewString()
	}

	now := time.Now()
	values["workspace_id"] = m.WorkspaceID
	values["created_at"] = now
	values["updated_at"] = now

	if err := tx.Table(m.Collection).Create(values).Error; err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", m.Collection, err)
	}

	return Row(values), nil
}

func (s *GormStore) update(tx *gorm.DB, m Mutation, predicate string, args map[string]interface{}) (Row, error) {
	if err := s.gateRow(tx, m, predicate, args); err != nil {
		return nil, err
	}

	values := make(map[string]interface{}, len(m.Values)+1)

	for k, v := range m.Values {
		// The tenant key and primary key are never caller-writable.
		if k == "id" || k == "workspace_id" {
			continue
		}

		values[k] = v
	}

	values["updated_at"] = time.Now()

	err := tx.Table(m.Collection).
		Where("id = ? AND workspace_id = ?", m.RowID, m.WorkspaceID).
		Updates(values).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", m.Collection, err)
	}

	var row map[string]interface{}

	err = tx.Table(m.Collection).
		Where("id = ? AND workspace_id = ?", m.RowID, m.WorkspaceID).
		Take(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to re-read %s row: %w", m.Collection, err)
	}

	return Row(row), nil
}

func (s *GormStore) delete(tx *gorm.DB, m Mutation, predicate string, args map[string]interface{}) (Row, error) {
	if err := s.gateRow(tx, m, predicate, args); err != nil {
		return nil, err
	}

	err := tx.Table(m.Collection).
		Where("id = ? AND workspace_id = ?", m.RowID, m.WorkspaceID).
		Delete(nil).Error
	if err != nil {
		return nil, fmt.Errorf("failed to delete from %s: %w", m.Collection, err)
	}

	return Row{"id": m.RowID}, nil
}

// gateRow verifies the target row passes the compiled predicate.
// An existing row outside the predicate is Unauthorized; a missing row is
// NotFound.
func (s *GormStore) gateRow(tx *gorm.DB, m Mutation, predicate string, args map[string]interface{}) error {
	var gated int64

	err := tx.Table(m.Collection).
		Where("id = ? AND workspace_id = ?", m.RowID, m.WorkspaceID).
		Where(predicate, args).
		Count(&gated).Error
	if err != nil {
		return fmt.Errorf("failed to gate %s row: %w", m.Collection, err)
	}

	if gated > 0 {
		return nil
	}

	var exists int64

	err = tx.Table(m.Collection).
		Where("id = ? AND workspace_id = ?", m.RowID, m.WorkspaceID).
		Count(&exists).Error
	if err != nil {
		return fmt.Errorf("failed to check %s row: %w", m.Collection, err)
	}

	if exists > 0 {
		return ErrUnauthorized
	}

	return ErrNotFound
}

func (s *GormStore) publish(ctx context.Context, m Mutation, row Row) {
	rowID := m.RowID
	if rowID == "" {
		if id, ok := row["id"].(string); ok {
			rowID = id
		}
	}

	event := Event{
		Op:          m.Op,
		Collection:  m.Collection,
		WorkspaceID: m.WorkspaceID,
		RowID:       rowID,
	}

	if err := s.feed.Publish(ctx, event); err != nil {
		// A missed event degrades freshness, not correctness; the next
		// event or an explicit refresh catches the view up.
		log.Warn().Err(err).
			Str("collection", m.Collection).
			Str("workspace_id", m.WorkspaceID).
			Msg("failed to publish change event")
	}
}

func audienceMatches(audience string, roles []string) bool {
	for _, member := range strings.Split(audience, ",") {
		for _, role := range roles {
			if member == role {
				return true
			}
		}
	}

	return false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
