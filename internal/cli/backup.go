package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerbook/internal/backup"
	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/transfer"
)

// VerifyResult is the report of backup verify.
type VerifyResult struct {
	Valid     bool           `json:"valid"`
	Version   string         `json:"version,omitempty"`
	AppName   string         `json:"appName,omitempty"`
	Customers int            `json:"customers"`
	Invoices  int            `json:"invoices"`
	Images    int            `json:"images"`
	Errors    []string       `json:"errors,omitempty"`
	Issues    []backup.Issue `json:"issues,omitempty"`
}

// NewBackupCommand creates the backup command group.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export, import and verify backup files",
	}
	cmd.AddCommand(newBackupExportCommand(rootOpts))
	cmd.AddCommand(newBackupImportCommand(rootOpts))
	cmd.AddCommand(newBackupVerifyCommand(rootOpts))
	return cmd
}

func newBackupExportCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole store to a backup file",
		Long: `Write every customer, invoice and image to one pretty-printed JSON
backup named "<app name>_backup_<YYYY-MM-DD>.json".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			eng, err := a.engine(transferFlags{})
			if err != nil {
				return setupError(a.out, "failed to prepare transfer", err)
			}
			art, err := eng.ExportTo(a.ctx, transfer.FileDelivery{Dir: outDir})
			if err != nil {
				return reportError(a.out, err)
			}
			path := filepath.Join(outDir, art.Filename)
			return a.out.emit(
				map[string]any{"file": path, "bytes": len(art.Data)},
				fmt.Sprintf("Wrote %s", path),
			)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func newBackupImportCommand(rootOpts *RootOptions) *cobra.Command {
	var flags transferFlags
	cmd := &cobra.Command{
		Use:   "import <backup-file>",
		Short: "Replace the store with the contents of a backup file",
		Long: `Replace every customer, invoice and image with the contents of a backup.

The document is checked before anything is touched; a rejected backup leaves
the store as it was. By default the replacement then runs collection by
collection, so a bad image found mid-way leaves the store partly replaced.
Pass --atomic to decode everything first and replace in one transaction.
--strict additionally rejects backups with dangling references.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			eng, err := a.engine(flags)
			if err != nil {
				return setupError(a.out, "failed to prepare transfer", err)
			}
			sum, err := eng.ImportFile(a.ctx, args[0])
			if err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(sum, fmt.Sprintf("Imported %d customers, %d invoices, %d images",
				sum.Customers, sum.Invoices, sum.Images))
		},
	}
	cmd.Flags().BoolVar(&flags.Strict, "strict", false, "reject backups that fail schema or reference checks")
	cmd.Flags().BoolVar(&flags.Atomic, "atomic", false, "replace all collections in one transaction")
	return cmd
}

func newBackupVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <backup-file>",
		Short: "Check a backup file without importing it",
		Long: `Check a backup file without touching the store. Reports the structural
check used by import, schema violations and dangling references.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], cmd)
		},
	}
}

func runVerify(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return setupError(formatter, "failed to read backup", err)
	}
	formatter.VerboseLog("Verifying %s (%d bytes)", path, len(data))

	result := verify(data)
	if !result.Valid {
		_ = formatter.Error(string(ledgererr.CodeInvalidBackupFormat), renderVerify(result), result)
		return &ExitError{Code: ExitFailure, Message: "backup is invalid", Reported: true}
	}
	return formatter.emit(result, renderVerify(result))
}

// verify runs every check and collects the findings.
func verify(data []byte) VerifyResult {
	snap, err := backup.Parse(data)
	if err != nil {
		return VerifyResult{Errors: []string{err.Error()}}
	}

	result := VerifyResult{
		Version:   snap.Version,
		AppName:   snap.AppName,
		Customers: len(snap.Customers),
		Invoices:  len(snap.Invoices),
		Images:    len(snap.Images),
	}
	if err := backup.CheckSchema(data); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	result.Issues = backup.CheckIntegrity(snap)
	result.Valid = len(result.Errors) == 0 && len(result.Issues) == 0
	return result
}

func renderVerify(r VerifyResult) string {
	var sb strings.Builder
	if r.Valid {
		sb.WriteString("Backup is valid\n")
	} else {
		sb.WriteString("Backup is invalid\n")
	}
	if r.Version != "" {
		fmt.Fprintf(&sb, "  version:   %s\n", r.Version)
		fmt.Fprintf(&sb, "  app:       %s\n", r.AppName)
		fmt.Fprintf(&sb, "  customers: %d\n", r.Customers)
		fmt.Fprintf(&sb, "  invoices:  %d\n", r.Invoices)
		fmt.Fprintf(&sb, "  images:    %d\n", r.Images)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&sb, "  error: %s\n", e)
	}
	for _, is := range r.Issues {
		fmt.Fprintf(&sb, "  issue: %s\n", is)
	}
	return strings.TrimRight(sb.String(), "\n")
}
