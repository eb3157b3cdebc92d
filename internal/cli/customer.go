package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/repository"
)

// customerFlags holds the editable customer fields.
type customerFlags struct {
	Name    string
	Phone   string
	Email   string
	Address string
	Notes   string
}

func (f *customerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Name, "name", "", "customer name")
	cmd.Flags().StringVar(&f.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&f.Email, "email", "", "email address")
	cmd.Flags().StringVar(&f.Address, "address", "", "postal address")
	cmd.Flags().StringVar(&f.Notes, "notes", "", "free-form notes")
}

// patch returns the fields whose flags were given.
func (f *customerFlags) patch(cmd *cobra.Command) repository.CustomerPatch {
	var p repository.CustomerPatch
	if cmd.Flags().Changed("name") {
		p.Name = &f.Name
	}
	if cmd.Flags().Changed("phone") {
		p.Phone = &f.Phone
	}
	if cmd.Flags().Changed("email") {
		p.Email = &f.Email
	}
	if cmd.Flags().Changed("address") {
		p.Address = &f.Address
	}
	if cmd.Flags().Changed("notes") {
		p.Notes = &f.Notes
	}
	return p
}

// NewCustomerCommand creates the customer command group.
func NewCustomerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage customers",
	}
	cmd.AddCommand(newCustomerAddCommand(rootOpts))
	cmd.AddCommand(newCustomerListCommand(rootOpts))
	cmd.AddCommand(newCustomerShowCommand(rootOpts))
	cmd.AddCommand(newCustomerUpdateCommand(rootOpts))
	cmd.AddCommand(newCustomerDeleteCommand(rootOpts))
	return cmd
}

func newCustomerAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &customerFlags{}
	cmd := &cobra.Command{
		Use:           "add",
		Short:         "Create a customer",
		Example:       `  ledgerbook customer add --name "Acme Ltd" --email billing@acme.test`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.repo.CreateCustomer(a.ctx, repository.NewCustomer{
				Name:    flags.Name,
				Phone:   flags.Phone,
				Email:   flags.Email,
				Address: flags.Address,
				Notes:   flags.Notes,
			})
			if err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(c, fmt.Sprintf("Created customer %s (%s)", c.ID, c.Name))
		},
	}
	flags.register(cmd)
	return cmd
}

func newCustomerListCommand(rootOpts *RootOptions) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers, most recently updated first",
		Long: `List customers, most recently updated first. With --search, only
customers whose name contains the query, ignoring case, are listed.`,
		Example:       `  ledgerbook customer list --search acme`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			customers, err := a.repo.SearchCustomers(a.ctx, search)
			if err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(customers, renderCustomers(customers))
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "only customers whose name contains this text")
	return cmd
}

func newCustomerShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <customer-id>",
		Short:         "Show one customer",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.repo.GetCustomer(a.ctx, args[0])
			if err != nil {
				return reportError(a.out, err)
			}
			if c == nil {
				return reportError(a.out, ledgererr.Newf(ledgererr.CodeNotFound, "show customer", "customer %q not found", args[0]))
			}
			return a.out.emit(c, renderCustomer(*c))
		},
	}
}

func newCustomerUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &customerFlags{}
	cmd := &cobra.Command{
		Use:   "update <customer-id>",
		Short: "Change customer fields",
		Long: `Change customer fields. Only the flags given are changed; pass an
empty value (--phone "") to clear an optional field.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.repo.UpdateCustomer(a.ctx, args[0], flags.patch(cmd))
			if err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(c, fmt.Sprintf("Updated customer %s", c.ID))
		},
	}
	flags.register(cmd)
	return cmd
}

func newCustomerDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <customer-id>",
		Short:         "Delete a customer with all of its invoices and images",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.repo.DeleteCustomer(a.ctx, args[0]); err != nil {
				return reportError(a.out, err)
			}
			return a.out.emit(map[string]string{"deleted": args[0]}, fmt.Sprintf("Deleted customer %s", args[0]))
		},
	}
}
