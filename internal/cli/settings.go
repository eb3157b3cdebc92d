package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerbook/internal/config"
)

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change user preferences",
	}
	cmd.AddCommand(newSettingsShowCommand(rootOpts))
	cmd.AddCommand(newSettingsSetAppNameCommand(rootOpts))
	return cmd
}

func newSettingsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the current preferences",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return setupError(out, "failed to load configuration", err)
			}
			prefs, err := config.LoadPreferences(cfg.SettingsPath)
			if err != nil {
				return setupError(out, "failed to load preferences", err)
			}
			return out.emit(prefs, fmt.Sprintf("App name: %s", prefs.AppName))
		},
	}
}

func newSettingsSetAppNameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set-app-name <name>",
		Short:         "Set the application name used in backup file names",
		Example:       `  ledgerbook settings set-app-name "Corner Shop"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return setupError(out, "failed to load configuration", err)
			}
			prefs, err := config.LoadPreferences(cfg.SettingsPath)
			if err != nil {
				return setupError(out, "failed to load preferences", err)
			}
			prefs.AppName = args[0]
			if err := config.SavePreferences(cfg.SettingsPath, prefs); err != nil {
				return reportError(out, err)
			}
			prefs, err = config.LoadPreferences(cfg.SettingsPath)
			if err != nil {
				return setupError(out, "failed to load preferences", err)
			}
			return out.emit(prefs, fmt.Sprintf("App name set to %s", prefs.AppName))
		},
	}
}
