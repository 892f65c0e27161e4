package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// groupKey identifies the (table, action) a set of declared rules targets.
type groupKey struct {
	table  string
	action models.RuleAction
}

// canonicalRule is a declared rule after canonicalization: whitespace
// normalized, the inline identity call rewritten to the bound parameter,
// the soft-delete clause folded in, and the audience sorted.
type canonicalRule struct {
	expr  string
	roles []string
}

// Compile consolidates the declared rule set into exactly one permissive
// predicate per (table, action, audience).
//
// Within a (table, action) group, rules with identical predicates merge by
// uniting their audiences, and rules with identical audiences merge by
// OR-ing their predicates. Rules that share neither stay separate: OR-ing
// predicates across different audiences would grant one audience's rows to
// the other.
//
// Compile is deterministic: the same rule set always yields byte-identical
// policies, regardless of declaration order.
func Compile(rules []models.AccessRule) ([]models.CompiledPolicy, error) {
	// Validate the whole batch before touching anything. A malformed
	// rule aborts compilation entirely.
	for _, rule := range rules {
		if err := checkRule(rule); err != nil {
			return nil, err
		}
	}

	groups := make(map[groupKey][]canonicalRule)

	for _, rule := range rules {
		key := groupKey{table: rule.Table, action: rule.Action}

		groups[key] = append(groups[key], canonicalRule{
			expr:  canonicalExpr(rule),
			roles: splitRoles(rule.Roles),
		})
	}

	var policies []models.CompiledPolicy

	for key, group := range groups {
		for _, merged := range mergeGroup(group) {
			policy := models.CompiledPolicy{
				Table:    key.table,
				Action:   key.action,
				Audience: strings.Join(merged.roles, ","),
				Expr:     merged.expr,
			}
			policy.Checksum = checksum(policy)

			policies = append(policies, policy)
		}
	}

	// Map iteration order is random; the output order is part of the
	// determinism contract.
	sort.Slice(policies, func(i, j int) bool {
		a, b := policies[i], policies[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}

		if a.Action != b.Action {
			return a.Action < b.Action
		}

		return a.Audience < b.Audience
	})

	return policies, nil
}

// canonicalExpr normalizes a rule predicate: collapsed whitespace, the
// identity call lifted to the bound caller parameter, and the default
// soft-delete exclusion appended to read predicates that do not opt out.
func canonicalExpr(rule models.AccessRule) string {
	expr := normalizeSpace(rule.Expr)
	expr = strings.ReplaceAll(expr, CallerToken, CallerParam)

	if rule.Action == models.ActionRead && !rule.AllowDeleted {
		expr = "(" + expr + ") AND (deleted_at IS NULL OR " + IncludeDeletedParam + ")"
	}

	return expr
}

// mergeGroup consolidates the rules of one (table, action) group.
func mergeGroup(group []canonicalRule) []canonicalRule {
	// First pass: identical predicates unite their audiences.
	byExpr := make(map[string][]string)

	for _, rule := range group {
		byExpr[rule.expr] = append(byExpr[rule.expr], rule.roles...)
	}

	intermediate := make([]canonicalRule, 0, len(byExpr))

	for expr, roles := range byExpr {
		intermediate = append(intermediate, canonicalRule{
			expr:  expr,
			roles: dedupeSorted(roles),
		})
	}

	// Second pass: identical audiences OR their predicates.
	byAudience := make(map[string][]string)

	for _, rule := range intermediate {
		key := strings.Join(rule.roles, ",")
		byAudience[key] = append(byAudience[key], rule.expr)
	}

	merged := make([]canonicalRule, 0, len(byAudience))

	for audience, exprs := range byAudience {
		merged = append(merged, canonicalRule{
			expr:  orExprs(exprs),
			roles: strings.Split(audience, ","),
		})
	}

	sort.Slice(merged, func(i, j int) bool {
		return strings.Join(merged[i].roles, ",") < strings.Join(merged[j].roles, ",")
	})

	return merged
}

// orExprs combines predicates into a single permissive predicate.
func orExprs(exprs []string) string {
	exprs = dedupeSorted(exprs)

	if len(exprs) == 1 {
		return exprs[0]
	}

	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = "(" + e + ")"
	}

	return strings.Join(parts, " OR ")
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))

	out := make([]string, 0, len(in))

	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}

		out = append(out, s)
	}

	sort.Strings(out)

	return out
}

// normalizeSpace collapses whitespace runs to single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// checksum digests the policy identity and predicate. Install compares
// checksums to make re-compilation a no-op for unchanged policies.
func checksum(p models.CompiledPolicy) string {
	h := sha256.New()
	h.Write([]byte(p.Table))
	h.Write([]byte{0})
	h.Write([]byte(p.Action))
	h.Write([]byte{0})
	h.Write([]byte(p.Audience))
	h.Write([]byte{0})
	h.Write([]byte(p.Expr))

	return hex.EncodeToString(h.Sum(nil))
}
