package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/store"
)

// NewCustomer is the caller-supplied part of a customer.
type NewCustomer struct {
	Name    string `json:"name" validate:"required,min=2"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// CustomerPatch holds the fields to change. Nil fields are preserved.
type CustomerPatch struct {
	Name    *string
	Phone   *string
	Email   *string
	Address *string
	Notes   *string
}

func (n NewCustomer) normalized() NewCustomer {
	return NewCustomer{
		Name:    clean(n.Name),
		Phone:   clean(n.Phone),
		Email:   clean(n.Email),
		Address: clean(n.Address),
		Notes:   clean(n.Notes),
	}
}

func customerFields(c model.Customer) NewCustomer {
	return NewCustomer{Name: c.Name, Phone: c.Phone, Email: c.Email, Address: c.Address, Notes: c.Notes}
}

// CreateCustomer generates an identity, stamps createdAt and updatedAt, and
// persists the customer.
func (r *Repository) CreateCustomer(ctx context.Context, in NewCustomer) (model.Customer, error) {
	in = in.normalized()
	if err := r.check("create customer", in); err != nil {
		return model.Customer{}, err
	}

	now := r.now()
	c := model.Customer{
		ID:        r.ids.Generate(),
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Address:   in.Address,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.PutCustomer(ctx, c); err != nil {
		return model.Customer{}, fmt.Errorf("create customer: %w", err)
	}

	r.logger.Debug().Str("customer_id", c.ID).Msg("customer created")
	return c, nil
}

// UpdateCustomer merges patch into the stored customer. The identity and
// createdAt never change; updatedAt always advances.
func (r *Repository) UpdateCustomer(ctx context.Context, id string, patch CustomerPatch) (model.Customer, error) {
	c, err := r.store.GetCustomer(ctx, id)
	if err != nil {
		return model.Customer{}, fmt.Errorf("update customer: %w", err)
	}

	fields := customerFields(c)
	var changed []string
	if patch.Name != nil {
		fields.Name = *patch.Name
		changed = append(changed, "Name")
	}
	if patch.Phone != nil {
		fields.Phone = *patch.Phone
	}
	if patch.Email != nil {
		fields.Email = *patch.Email
		changed = append(changed, "Email")
	}
	if patch.Address != nil {
		fields.Address = *patch.Address
	}
	if patch.Notes != nil {
		fields.Notes = *patch.Notes
	}
	fields = fields.normalized()
	if err := r.checkFields("update customer", fields, changed...); err != nil {
		return model.Customer{}, err
	}

	c.Name = fields.Name
	c.Phone = fields.Phone
	c.Email = fields.Email
	c.Address = fields.Address
	c.Notes = fields.Notes
	c.ID = id
	c.UpdatedAt = r.touch(c.UpdatedAt)

	if err := r.store.PutCustomer(ctx, c); err != nil {
		return model.Customer{}, fmt.Errorf("update customer: %w", err)
	}

	r.logger.Debug().Str("customer_id", c.ID).Msg("customer updated")
	return c, nil
}

// DeleteCustomer removes the customer, every invoice it owns and every image
// those invoices own, in one store transaction. Deleting an absent id is a no-op.
func (r *Repository) DeleteCustomer(ctx context.Context, id string) error {
	var removed int
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		invoices, err := tx.ListInvoicesByCustomer(ctx, id)
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			if err := deleteInvoice(ctx, tx, inv); err != nil {
				return err
			}
		}
		removed = len(invoices)
		return tx.DeleteCustomer(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}

	r.logger.Debug().Str("customer_id", id).Int("invoices", removed).Msg("customer deleted")
	return nil
}

// GetCustomer returns the customer with id, or nil if absent.
func (r *Repository) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	c, err := r.store.GetCustomer(ctx, id)
	if ledgererr.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// ListCustomers returns every customer, most recently updated first, ties
// broken by id.
func (r *Repository) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	customers, err := r.store.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	sort.SliceStable(customers, func(i, j int) bool {
		if customers[i].UpdatedAt != customers[j].UpdatedAt {
			return customers[i].UpdatedAt > customers[j].UpdatedAt
		}
		return customers[i].ID < customers[j].ID
	})
	return customers, nil
}

// SearchCustomers returns the customers whose name contains query, ignoring
// case, in ListCustomers order. An empty query matches every customer.
func (r *Repository) SearchCustomers(ctx context.Context, query string) ([]model.Customer, error) {
	customers, err := r.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	if query == "" {
		return customers, nil
	}

	fold := cases.Fold()
	needle := norm.NFC.String(fold.String(norm.NFC.String(query)))
	matched := []model.Customer{}
	for _, c := range customers {
		name := norm.NFC.String(fold.String(c.Name))
		if strings.Contains(name, needle) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}
