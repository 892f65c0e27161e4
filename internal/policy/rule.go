package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// CallerToken is the inline identity-resolver call a declared rule may use
// in its predicate. The compiler rewrites every occurrence to CallerParam.
const CallerToken = "auth_caller_id()"

// CallerParam is the named parameter the resolved caller id is bound to,
// once per query.
const CallerParam = "@caller_id"

// IncludeDeletedParam is the named boolean parameter that opens a read
// predicate to soft-deleted rows. The enforcement layer binds it true only
// when the caller holds the view-deleted grant and asked for deleted rows.
const IncludeDeletedParam = "@include_deleted"

var validate = validator.New() //nolint:gochecknoglobals

// ruleSpec is the validated shape of a declared rule.
type ruleSpec struct {
	Table  string   `validate:"required,max=100"`
	Action string   `validate:"required,oneof=create read update delete"`
	Roles  []string `validate:"required,min=1,dive,required,max=100"`
	Expr   string   `validate:"required,max=2000"`
}

// LoadRules returns every declared access rule in declaration order.
func LoadRules(db *gorm.DB) ([]models.AccessRule, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var rules []models.AccessRule

	err := db.Order("created_at ASC, id ASC").Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load access rules: %w", err)
	}

	return rules, nil
}

// splitRoles parses the comma-separated audience of a declared rule into a
// sorted, deduplicated role list.
func splitRoles(roles string) []string {
	seen := make(map[string]struct{})

	for _, r := range strings.Split(roles, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			seen[r] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}

	sort.Strings(out)

	return out
}

// checkRule validates a declared rule before compilation. A single
// malformed rule fails the whole batch.
func checkRule(rule models.AccessRule) error {
	spec := ruleSpec{
		Table:  rule.Table,
		Action: string(rule.Action),
		Roles:  splitRoles(rule.Roles),
		Expr:   rule.Expr,
	}

	if err := validate.Struct(spec); err != nil {
		return fmt.Errorf("%w: rule %s on %s: %s", ErrCompilationFailed, rule.ID, rule.Table, err)
	}

	// Predicates are embedded into enforcement queries; statement
	// separators and comment markers are never legitimate there.
	if strings.ContainsAny(rule.Expr, ";") || strings.Contains(rule.Expr, "--") {
		return fmt.Errorf("%w: rule %s on %s: predicate contains forbidden token", ErrCompilationFailed, rule.ID, rule.Table)
	}

	return nil
}
