package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ghxstship/atlvs/internal/config"
	"github.com/ghxstship/atlvs/internal/daemon"
	"github.com/ghxstship/atlvs/internal/policy"
)

func init() { //nolint: gochecknoinits
	compileCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration directory")
	compileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compile without installing the result")

	rootCmd.AddCommand(compileCmd)
}

var (
	dryRun bool

	compileCmd = &cobra.Command{
		Use:   "compile-policies",
		Short: "Compile declared access rules into installed row-level policies",
		Long: `compile-policies loads every declared access rule, consolidates them
into one permissive predicate per table, action and audience, and installs
the result transactionally. Re-running against an unchanged rule set is a
no-op. A malformed rule aborts the whole batch and leaves previously
installed policies untouched.`,
		PreRun: func(_ *cobra.Command, _ []string) {
			if cfg, err = config.ReadConfig(configPath); err != nil {
				panic(err)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			db, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			rules, err := policy.LoadRules(db)
			if err != nil {
				return err
			}

			compiled, err := policy.Compile(rules)
			if err != nil {
				return err
			}

			if dryRun {
				for _, p := range compiled {
					log.Info().
						Str("table", p.Table).
						Str("action", string(p.Action)).
						Str("audience", p.Audience).
						Msg("would install policy")
				}

				return nil
			}

			result, err := policy.Install(db, compiled)
			if err != nil {
				return err
			}

			log.Info().
				Int("installed", result.Installed).
				Int("unchanged", result.Unchanged).
				Int("retired", result.Retired).
				Msg("policy compilation complete")

			return nil
		},
	}
)
