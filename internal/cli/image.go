package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerbook/internal/codec"
	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/remote"
)

// imageInfo describes an image written to disk.
type imageInfo struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoiceId"`
	File      string `json:"file"`
	MediaType string `json:"mediaType"`
	Size      int    `json:"size"`
}

// NewImageCommand creates the image command group.
func NewImageCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Read and delete stored bill images",
	}
	cmd.AddCommand(newImageGetCommand(rootOpts))
	cmd.AddCommand(newImageDeleteCommand(rootOpts))
	return cmd
}

func newImageGetCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "get <image-id>",
		Short: "Write a stored image to a file",
		Long: `Write a stored image to a file named after its stored file name. When
the name has no extension, one is added from the sniffed media type.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			img, err := a.repo.GetImage(a.ctx, args[0])
			if err != nil {
				return reportError(a.out, err)
			}
			if img == nil {
				return reportError(a.out, ledgererr.Newf(ledgererr.CodeNotFound, "get image", "image %q not found", args[0]))
			}

			name := filepath.Base(img.Filename)
			if filepath.Ext(name) == "" {
				name += codec.Extension(img.Data)
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return setupError(a.out, "failed to create output directory", err)
			}
			path := filepath.Join(outDir, name)
			if err := remote.WriteFileAtomic(path, img.Data); err != nil {
				return setupError(a.out, "failed to write image", err)
			}

			info := imageInfo{
				ID:        img.ID,
				InvoiceID: img.InvoiceID,
				File:      path,
				MediaType: codec.MediaType(img.Data),
				Size:      len(img.Data),
			}
			return a.out.emit(info, fmt.Sprintf("Wrote %s (%s, %d bytes)", info.File, info.MediaType, info.Size))
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func newImageDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <image-id>",
		Short:         "Delete a stored image",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.repo.DeleteImage(a.ctx, args[0]); err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(map[string]string{"deleted": args[0]}, fmt.Sprintf("Deleted image %s", args[0]))
		},
	}
}
