package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/roach88/ledgerbook/internal/model"
)

// dateLayout is the day format used for invoice dates on the command line.
const dateLayout = "2006-01-02"

func formatDate(ms int64) string {
	return model.Time(ms).Format(dateLayout)
}

func formatStamp(ms int64) string {
	return model.Time(ms).Format(time.RFC3339)
}

func parseDate(s string) (int64, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return model.Millis(t), nil
}

// table renders rows as aligned columns.
func table(header []string, rows [][]string) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func renderCustomers(customers []model.Customer) string {
	if len(customers) == 0 {
		return "No customers."
	}
	rows := make([][]string, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []string{c.ID, c.Name, c.Email, c.Phone, formatStamp(c.UpdatedAt)})
	}
	return table([]string{"ID", "NAME", "EMAIL", "PHONE", "UPDATED"}, rows)
}

func renderCustomer(c model.Customer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID:       %s\n", c.ID)
	fmt.Fprintf(&b, "Name:     %s\n", c.Name)
	if c.Phone != "" {
		fmt.Fprintf(&b, "Phone:    %s\n", c.Phone)
	}
	if c.Email != "" {
		fmt.Fprintf(&b, "Email:    %s\n", c.Email)
	}
	if c.Address != "" {
		fmt.Fprintf(&b, "Address:  %s\n", c.Address)
	}
	if c.Notes != "" {
		fmt.Fprintf(&b, "Notes:    %s\n", c.Notes)
	}
	fmt.Fprintf(&b, "Created:  %s\n", formatStamp(c.CreatedAt))
	fmt.Fprintf(&b, "Updated:  %s", formatStamp(c.UpdatedAt))
	return b.String()
}

func renderInvoices(invoices []model.Invoice) string {
	if len(invoices) == 0 {
		return "No invoices."
	}
	rows := make([][]string, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, []string{
			inv.ID, inv.InvoiceNumber, formatDate(inv.Date), string(inv.Status),
			inv.Total.String(), fmt.Sprint(len(inv.ImageIDs)),
		})
	}
	return table([]string{"ID", "NUMBER", "DATE", "STATUS", "TOTAL", "IMAGES"}, rows)
}

func renderInvoice(inv model.Invoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID:        %s\n", inv.ID)
	fmt.Fprintf(&b, "Number:    %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&b, "Customer:  %s\n", inv.CustomerID)
	fmt.Fprintf(&b, "Date:      %s\n", formatDate(inv.Date))
	fmt.Fprintf(&b, "Status:    %s\n", inv.Status)
	fmt.Fprintf(&b, "Total:     %s\n", inv.Total.String())
	if inv.Description != "" {
		fmt.Fprintf(&b, "About:     %s\n", inv.Description)
	}
	for i, item := range inv.LineItems {
		fmt.Fprintf(&b, "Item %d:    %s  %s x %s = %s\n", i+1, item.Description,
			item.Quantity.String(), item.UnitPrice.String(), item.Total.String())
	}
	fmt.Fprintf(&b, "Images:    %s\n", strings.Join(inv.ImageIDs, ", "))
	fmt.Fprintf(&b, "Updated:   %s", formatStamp(inv.UpdatedAt))
	return b.String()
}
