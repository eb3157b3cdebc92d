package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCloudCommand creates the cloud command group.
func NewCloudCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Upload to and download from the remote backup slot",
		Long: `Upload to and download from the single remote backup slot of the
signed-in identity.

The slot is LEDGERBOOK_REMOTE_URL (with LEDGERBOOK_REMOTE_TOKEN as the
identity) or, failing that, the file LEDGERBOOK_REMOTE_FILE.`,
	}
	cmd.AddCommand(newCloudUploadCommand(rootOpts))
	cmd.AddCommand(newCloudDownloadCommand(rootOpts))
	return cmd
}

func newCloudUploadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "upload",
		Short:         "Replace the remote backup with the current store",
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
			if err := eng.Upload(a.ctx); err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(map[string]bool{"uploaded": true}, "Uploaded backup")
		},
	}
}

func newCloudDownloadCommand(rootOpts *RootOptions) *cobra.Command {
	var flags transferFlags
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Replace the store with the remote backup",
		Long: `Replace every customer, invoice and image with the remote backup. The
same checks and replace modes as "backup import" apply.`,
		Args:          cobra.NoArgs,
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
			sum, err := eng.Download(a.ctx)
			if err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(sum, fmt.Sprintf("Downloaded %d customers, %d invoices, %d images",
				sum.Customers, sum.Invoices, sum.Images))
		},
	}
	cmd.Flags().BoolVar(&flags.Strict, "strict", false, "reject backups that fail schema or reference checks")
	cmd.Flags().BoolVar(&flags.Atomic, "atomic", false, "replace all collections in one transaction")
	return cmd
}
