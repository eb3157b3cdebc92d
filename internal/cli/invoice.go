package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/repository"
	"github.com/roach88/ledgerbook/internal/transfer"
)

// invoiceFlags holds the editable invoice fields as typed on the command line.
type invoiceFlags struct {
	Number      string
	Date        string
	Description string
	Total       string
	Status      string
	Items       []string
}

func (f *invoiceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Number, "number", "", "invoice number")
	cmd.Flags().StringVar(&f.Date, "date", "", "invoice date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&f.Description, "description", "", "description")
	cmd.Flags().StringVar(&f.Total, "total", "", "invoice total")
	cmd.Flags().StringVar(&f.Status, "status", "", "status (draft|sent|paid|overdue)")
	cmd.Flags().StringArrayVar(&f.Items, "item", nil, `line item "description;quantity;unit price;total" (repeatable)`)
}

// parseItems parses --item values. The line total is taken as given.
func parseItems(op string, values []string) ([]model.LineItem, error) {
	items := make([]model.LineItem, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, ";")
		if len(parts) != 4 {
			return nil, ledgererr.Newf(ledgererr.CodeInvalidInput, op, "line item %q: want description;quantity;unit price;total", v)
		}
		var nums [3]model.Money
		for i, raw := range parts[1:] {
			m, err := model.ParseMoney(strings.TrimSpace(raw))
			if err != nil {
				return nil, ledgererr.Wrap(ledgererr.CodeInvalidInput, op, err)
			}
			nums[i] = m
		}
		items = append(items, model.LineItem{
			Description: strings.TrimSpace(parts[0]),
			Quantity:    nums[0],
			UnitPrice:   nums[1],
			Total:       nums[2],
		})
	}
	return items, nil
}

func parseMoneyFlag(op, s string) (model.Money, error) {
	if s == "" {
		return model.Zero, nil
	}
	m, err := model.ParseMoney(s)
	if err != nil {
		return model.Money{}, ledgererr.Wrap(ledgererr.CodeInvalidInput, op, err)
	}
	return m, nil
}

func parseDateFlag(op, s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	ms, err := parseDate(s)
	if err != nil {
		return 0, ledgererr.Wrap(ledgererr.CodeInvalidInput, op, err)
	}
	return ms, nil
}

// newInvoice converts flags into a create request.
func (f *invoiceFlags) newInvoice(customerID string) (repository.NewInvoice, error) {
	const op = "create invoice"
	total, err := parseMoneyFlag(op, f.Total)
	if err != nil {
		return repository.NewInvoice{}, err
	}
	date, err := parseDateFlag(op, f.Date)
	if err != nil {
		return repository.NewInvoice{}, err
	}
	items, err := parseItems(op, f.Items)
	if err != nil {
		return repository.NewInvoice{}, err
	}
	return repository.NewInvoice{
		CustomerID:    customerID,
		InvoiceNumber: f.Number,
		Date:          date,
		Description:   f.Description,
		LineItems:     items,
		Total:         total,
		Status:        model.Status(f.Status),
	}, nil
}

// patch returns the fields whose flags were given.
func (f *invoiceFlags) patch(cmd *cobra.Command) (repository.InvoicePatch, error) {
	const op = "update invoice"
	var p repository.InvoicePatch
	if cmd.Flags().Changed("number") {
		p.InvoiceNumber = &f.Number
	}
	if cmd.Flags().Changed("description") {
		p.Description = &f.Description
	}
	if cmd.Flags().Changed("status") {
		status := model.Status(f.Status)
		p.Status = &status
	}
	if cmd.Flags().Changed("date") {
		date, err := parseDateFlag(op, f.Date)
		if err != nil {
			return p, err
		}
		p.Date = &date
	}
	if cmd.Flags().Changed("total") {
		total, err := parseMoneyFlag(op, f.Total)
		if err != nil {
			return p, err
		}
		p.Total = &total
	}
	if cmd.Flags().Changed("item") {
		items, err := parseItems(op, f.Items)
		if err != nil {
			return p, err
		}
		p.LineItems = &items
	}
	return p, nil
}

// NewInvoiceCommand creates the invoice command group.
func NewInvoiceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Manage invoices and their bill images",
	}
	cmd.AddCommand(newInvoiceAddCommand(rootOpts))
	cmd.AddCommand(newInvoiceListCommand(rootOpts))
	cmd.AddCommand(newInvoiceShowCommand(rootOpts))
	cmd.AddCommand(newInvoiceUpdateCommand(rootOpts))
	cmd.AddCommand(newInvoiceDeleteCommand(rootOpts))
	cmd.AddCommand(newInvoiceAttachCommand(rootOpts))
	cmd.AddCommand(newInvoiceDetachCommand(rootOpts))
	cmd.AddCommand(newInvoiceBundleCommand(rootOpts))
	return cmd
}

func newInvoiceAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &invoiceFlags{}
	var customerID string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an invoice for a customer",
		Example: `  ledgerbook invoice add --customer 0191... --number INV-7 --total 120 \
    --item "Boiler service;1;120;120"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			in, err := flags.newInvoice(customerID)
			if err != nil {
				return reportError(a.out, err)
			}
			inv, err := a.repo.CreateInvoice(a.ctx, in)
			if err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(inv, fmt.Sprintf("Created invoice %s (%s)", inv.ID, inv.InvoiceNumber))
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "owning customer id (required)")
	_ = cmd.MarkFlagRequired("customer")
	flags.register(cmd)
	return cmd
}

func newInvoiceListCommand(rootOpts *RootOptions) *cobra.Command {
	var customerID string
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List invoices, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var invoices []model.Invoice
			if customerID != "" {
				invoices, err = a.repo.ListInvoicesByCustomer(a.ctx, customerID)
			} else {
				invoices, err = a.repo.ListInvoices(a.ctx)
			}
			if err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(invoices, renderInvoices(invoices))
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "only invoices of this customer")
	return cmd
}

func newInvoiceShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <invoice-id>",
		Short:         "Show one invoice",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			inv, err := a.repo.GetInvoice(a.ctx, args[0])
			if err != nil {
				return reportError(a.out, err)
			}
			if inv == nil {
				return reportError(a.out, ledgererr.Newf(ledgererr.CodeNotFound, "show invoice", "invoice %q not found", args[0]))
			}
			return a.out.emit(inv, renderInvoice(*inv))
		},
	}
}

func newInvoiceUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &invoiceFlags{}
	cmd := &cobra.Command{
		Use:   "update <invoice-id>",
		Short: "Change invoice fields",
		Long: `Change invoice fields. Only the flags given are changed. Passing any
--item replaces the whole list of line items.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			patch, err := flags.patch(cmd)
			if err != nil {
				return reportError(a.out, err)
			}
			inv, err := a.repo.UpdateInvoice(a.ctx, args[0], patch)
			if err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(inv, fmt.Sprintf("Updated invoice %s", inv.ID))
		},
	}
	flags.register(cmd)
	return cmd
}

func newInvoiceDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <invoice-id>",
		Short:         "Delete an invoice and its images",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.repo.DeleteInvoice(a.ctx, args[0]); err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(map[string]string{"deleted": args[0]}, fmt.Sprintf("Deleted invoice %s", args[0]))
		},
	}
}

func newInvoiceAttachCommand(rootOpts *RootOptions) *cobra.Command {
	var filename string
	cmd := &cobra.Command{
		Use:           "attach <invoice-id> <image-file>",
		Short:         "Attach a bill image to an invoice",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := os.ReadFile(args[1])
			if err != nil {
				return setupError(a.out, "failed to read image", err)
			}
			name := filename
			if name == "" {
				name = filepath.Base(args[1])
			}
			inv, err := a.repo.AttachImage(a.ctx, args[0], data, name)
			if err != nil {
				return reportError(a.out, err)
			}
			imageID := inv.ImageIDs[len(inv.ImageIDs)-1]
			return a.out.emit(
				map[string]string{"invoiceId": inv.ID, "imageId": imageID},
				fmt.Sprintf("Attached %s to invoice %s as %s", name, inv.ID, imageID),
			)
		},
	}
	cmd.Flags().StringVar(&filename, "filename", "", "stored file name (default: base name of the file)")
	return cmd
}

func newInvoiceDetachCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "detach <invoice-id> <image-id>",
		Short:         "Remove a bill image from an invoice and delete it",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			inv, err := a.repo.DetachImage(a.ctx, args[0], args[1])
			if err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(inv, fmt.Sprintf("Detached image %s from invoice %s", args[1], inv.ID))
		},
	}
}

func newInvoiceBundleCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:           "bundle <invoice-id>",
		Short:         "Write all images of an invoice into one JSON bundle",
		Args:          cobra.ExactArgs(1),
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
			art, err := eng.ExportImageBundle(a.ctx, args[0])
			if err != nil {
				return reportError(a.out, err)
			}
			if err := (transfer.FileDelivery{Dir: outDir}).Deliver(a.ctx, art); err != nil {
				return setupError(a.out, "failed to write bundle", err)
			}
			path := filepath.Join(outDir, art.Filename)
			return a.out.emit(map[string]string{"file": path}, fmt.Sprintf("Wrote %s", path))
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}
