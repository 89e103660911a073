package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yoloset/internal/config"
)

type validateReport struct {
	Valid    bool                           `json:"valid"`
	Errors   []config.ConfigValidationError `json:"errors"`
	Warnings []config.ConfigValidationError `json:"warnings"`
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigValidateCmd(a), newConfigShowCmd(a), newConfigInitCmd(a))
	return cmd
}

func newConfigValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := config.ValidateConfig(a.cfg)
			if a.json {
				if err := a.out.JSON(validateReport{Valid: result.Valid, Errors: result.Errors, Warnings: result.Warnings}); err != nil {
					return err
				}
			} else {
				for _, e := range result.Errors {
					a.out.Error("error: %s: %s", e.Field, e.Message)
				}
				for _, w := range result.Warnings {
					a.out.Info("warning: %s: %s", w.Field, w.Message)
				}
				if result.Valid {
					a.out.Info("Configuration is valid.")
				}
			}
			if !result.Valid {
				return fmt.Errorf("configuration has %d error(s)", len(result.Errors))
			}
			return nil
		},
	}
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		Long:  "Show prints the configuration after the file, .env, environment and flags are merged.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.out.JSON(a.cfg)
		},
	}
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg := config.Default()
			cfg.DatasetRoot = a.dataset
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			a.out.Info("Wrote %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
