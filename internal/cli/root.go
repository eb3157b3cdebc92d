package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerbook/internal/remote"
	"github.com/roach88/ledgerbook/internal/repository"
	"github.com/roach88/ledgerbook/internal/transfer"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // overrides LEDGERBOOK_DB_PATH
	Settings string // overrides LEDGERBOOK_SETTINGS_PATH
	EnvFile  string

	// Clock and IDs override record timestamps and identities (for testing).
	Clock repository.Clock
	IDs   repository.IDGenerator

	// Slot and Session override the configured remote (for testing).
	Slot    remote.Slot
	Session transfer.Session
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ledgerbook CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts, so tests
// can inject a clock, id generator or remote slot.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledgerbook",
		Short: "ledgerbook - offline invoice book",
		Long: `Keep customers, invoices and bill images in a local database,
export and import whole-store backups, and sync them with one remote slot.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from LEDGERBOOK_DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.Settings, "settings", "", "path to preferences file (default from LEDGERBOOK_SETTINGS_PATH)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")

	cmd.AddCommand(NewCustomerCommand(opts))
	cmd.AddCommand(NewInvoiceCommand(opts))
	cmd.AddCommand(NewImageCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewCloudCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewSlotCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
