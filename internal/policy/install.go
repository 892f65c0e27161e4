package policy

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// InstallResult summarizes what one installation run changed.
type InstallResult struct {
	// Installed counts newly created or replaced policies.
	Installed int
	// Unchanged counts policies whose checksum already matched.
	Unchanged int
	// Retired counts previously installed policies dropped because the
	// new batch replaced or no longer produces them.
	Retired int
}

type policyKey struct {
	table    string
	action   models.RuleAction
	audience string
}

// Install applies a compiled batch in a single transaction: policies with
// a matching checksum are left alone, changed ones are replaced, and
// previously installed policies the batch no longer contains are retired.
// A failure rolls the whole batch back, leaving prior policies intact.
func Install(db *gorm.DB, compiled []models.CompiledPolicy) (InstallResult, error) {
	if db == nil {
		return InstallResult{}, ErrDBNil
	}

	var result InstallResult

	err := db.Transaction(func(tx *gorm.DB) error {
		var existing []models.CompiledPolicy

		if err := tx.Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to load installed policies: %w", err)
		}

		installed := make(map[policyKey]models.CompiledPolicy, len(existing))
		for _, p := range existing {
			installed[policyKey{p.Table, p.Action, p.Audience}] = p
		}

		now := time.Now()

		produced := make(map[policyKey]struct{}, len(compiled))

		for _, p := range compiled {
			key := policyKey{p.Table, p.Action, p.Audience}
			produced[key] = struct{}{}

			prior, exists := installed[key]

			if exists && prior.Checksum == p.Checksum {
				result.Unchanged++
				continue
			}

			if exists {
				// Retire before install so the unique key never
				// holds two policies for the same triple.
				if err := tx.Delete(&models.CompiledPolicy{}, "id = ?", prior.ID).Error; err != nil {
					return fmt.Errorf("failed to retire policy for %s.%s: %w", p.Table, p.Action, err)
				}

				result.Retired++
			}

			p.CompiledAt = now

			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("failed to install policy for %s.%s: %w", p.Table, p.Action, err)
			}

			result.Installed++
		}

		// Drop leftovers from rule sets that no longer compile to them.
		for key, prior := range installed {
			if _, ok := produced[key]; ok {
				continue
			}

			if err := tx.Delete(&models.CompiledPolicy{}, "id = ?", prior.ID).Error; err != nil {
				return fmt.Errorf("failed to retire stale policy for %s.%s: %w", key.table, key.action, err)
			}

			result.Retired++
		}

		return nil
	})
	if err != nil {
		return InstallResult{}, err
	}

	return result, nil
}

// Installed returns the policies currently installed for a table and
// action. The enforcement layer treats the result as read-only
// configuration.
func Installed(db *gorm.DB, table string, action models.RuleAction) ([]models.CompiledPolicy, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var policies []models.CompiledPolicy

	err := db.Where("table_name = ? AND action = ?", table, action).
		Order("audience ASC").
		Find(&policies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	return policies, nil
}
