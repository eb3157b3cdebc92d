package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/store"
)

// NewInvoice is the caller-supplied part of an invoice.
// A zero Date means now; an empty Status means draft.
type NewInvoice struct {
	CustomerID    string           `json:"customerId" validate:"required"`
	InvoiceNumber string           `json:"invoiceNumber" validate:"required"`
	Date          int64            `json:"date" validate:"gte=0"`
	Description   string           `json:"description"`
	LineItems     []model.LineItem `json:"lineItems" validate:"dive"`
	Total         model.Money      `json:"total" validate:"gte=0"`
	Status        model.Status     `json:"status" validate:"oneof=draft sent paid overdue"`
}

// InvoicePatch holds the fields to change. Nil fields are preserved.
// Image membership is changed with AttachImage and DetachImage.
type InvoicePatch struct {
	InvoiceNumber *string
	Date          *int64
	Description   *string
	LineItems     *[]model.LineItem
	Total         *model.Money
	Status        *model.Status
}

func invoiceFields(inv model.Invoice) NewInvoice {
	return NewInvoice{
		CustomerID:    inv.CustomerID,
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.Date,
		Description:   inv.Description,
		LineItems:     inv.LineItems,
		Total:         inv.Total,
		Status:        inv.Status,
	}
}

// CreateInvoice persists a new invoice for an existing customer.
// Returns a NOT_FOUND ledgererr if the customer does not exist.
func (r *Repository) CreateInvoice(ctx context.Context, in NewInvoice) (model.Invoice, error) {
	in.CustomerID = clean(in.CustomerID)
	in.InvoiceNumber = clean(in.InvoiceNumber)
	in.Description = clean(in.Description)
	if in.Status == "" {
		in.Status = model.StatusDraft
	}
	if in.LineItems == nil {
		in.LineItems = []model.LineItem{}
	}
	if err := r.check("create invoice", in); err != nil {
		return model.Invoice{}, err
	}

	if _, err := r.store.GetCustomer(ctx, in.CustomerID); err != nil {
		return model.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	now := r.now()
	if in.Date == 0 {
		in.Date = now
	}
	inv := model.Invoice{
		ID:            r.ids.Generate(),
		CustomerID:    in.CustomerID,
		InvoiceNumber: in.InvoiceNumber,
		Date:          in.Date,
		Description:   in.Description,
		LineItems:     in.LineItems,
		Total:         in.Total,
		Status:        in.Status,
		ImageIDs:      []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.store.PutInvoice(ctx, inv); err != nil {
		return model.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	r.logger.Debug().Str("invoice_id", inv.ID).Str("customer_id", inv.CustomerID).Msg("invoice created")
	return inv, nil
}

// UpdateInvoice merges patch into the stored invoice. The identity, owner and
// createdAt never change; updatedAt always advances.
func (r *Repository) UpdateInvoice(ctx context.Context, id string, patch InvoicePatch) (model.Invoice, error) {
	inv, err := r.store.GetInvoice(ctx, id)
	if err != nil {
		return model.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}

	// Only the patched fields are validated; an imported record with gaps
	// elsewhere stays editable.
	fields := invoiceFields(inv)
	var changed []string
	if patch.InvoiceNumber != nil {
		fields.InvoiceNumber = clean(*patch.InvoiceNumber)
		changed = append(changed, "InvoiceNumber")
	}
	if patch.Date != nil {
		fields.Date = *patch.Date
		changed = append(changed, "Date")
	}
	if patch.Description != nil {
		fields.Description = clean(*patch.Description)
	}
	if patch.LineItems != nil {
		fields.LineItems = *patch.LineItems
		if fields.LineItems == nil {
			fields.LineItems = []model.LineItem{}
		}
		changed = append(changed, "LineItems")
	}
	if patch.Total != nil {
		fields.Total = *patch.Total
		changed = append(changed, "Total")
	}
	if patch.Status != nil {
		fields.Status = *patch.Status
		changed = append(changed, "Status")
	}
	if err := r.checkFields("update invoice", fields, changed...); err != nil {
		return model.Invoice{}, err
	}

	inv.InvoiceNumber = fields.InvoiceNumber
	inv.Date = fields.Date
	inv.Description = fields.Description
	inv.LineItems = fields.LineItems
	inv.Total = fields.Total
	inv.Status = fields.Status
	inv.ID = id
	inv.UpdatedAt = r.touch(inv.UpdatedAt)

	if err := r.store.PutInvoice(ctx, inv); err != nil {
		return model.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}

	r.logger.Debug().Str("invoice_id", inv.ID).Msg("invoice updated")
	return inv, nil
}

// DeleteInvoice removes the invoice after removing its images, in one store
// transaction. Deleting an absent id is a no-op.
func (r *Repository) DeleteInvoice(ctx context.Context, id string) error {
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		inv, err := tx.GetInvoice(ctx, id)
		if ledgererr.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		return deleteInvoice(ctx, tx, inv)
	})
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}

	r.logger.Debug().Str("invoice_id", id).Msg("invoice deleted")
	return nil
}

// deleteInvoice removes the images listed in inv.ImageIDs, any other image
// owned by inv, then inv itself.
func deleteInvoice(ctx context.Context, tx *store.Store, inv model.Invoice) error {
	for _, imageID := range inv.ImageIDs {
		if err := tx.DeleteImage(ctx, imageID); err != nil {
			return err
		}
	}
	owned, err := tx.ImageIDsByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	for _, imageID := range owned {
		if err := tx.DeleteImage(ctx, imageID); err != nil {
			return err
		}
	}
	return tx.DeleteInvoice(ctx, inv.ID)
}

// GetInvoice returns the invoice with id, or nil if absent.
func (r *Repository) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	inv, err := r.store.GetInvoice(ctx, id)
	if ledgererr.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

// ListInvoicesByCustomer returns the customer's invoices, most recent date
// first, ties broken by id.
func (r *Repository) ListInvoicesByCustomer(ctx context.Context, customerID string) ([]model.Invoice, error) {
	invoices, err := r.store.ListInvoicesByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// ListInvoices returns every invoice, most recent date first, ties broken by id.
func (r *Repository) ListInvoices(ctx context.Context) ([]model.Invoice, error) {
	invoices, err := r.store.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	sortByDate(invoices)
	return invoices, nil
}

func sortByDate(invoices []model.Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		if invoices[i].Date != invoices[j].Date {
			return invoices[i].Date > invoices[j].Date
		}
		return invoices[i].ID < invoices[j].ID
	})
}
