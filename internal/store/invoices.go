package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/roach88/ledgerbook/internal/model"
)

// PutInvoice upserts an invoice by identity.
// customer_id and date are projected for the per-customer index.
func (s *Store) PutInvoice(ctx context.Context, inv model.Invoice) error {
	body, err := json.Marshal(inv)
	if err != nil {
		return unavailable("put invoice", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO invoices (id, customer_id, date, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			date = excluded.date,
			body = excluded.body
	`, inv.ID, inv.CustomerID, inv.Date, string(body))
	if err != nil {
		return unavailable("put invoice", err)
	}
	return nil
}

// GetInvoice retrieves an invoice by ID.
// Returns a NOT_FOUND ledgererr if absent.
func (s *Store) GetInvoice(ctx context.Context, id string) (model.Invoice, error) {
	var body string
	err := s.q.QueryRowContext(ctx, `SELECT body FROM invoices WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Invoice{}, notFound("get invoice", "invoice", id)
	}
	if err != nil {
		return model.Invoice{}, unavailable("get invoice", err)
	}
	return decodeInvoice(body)
}

// ListInvoices returns every invoice ordered by id.
func (s *Store) ListInvoices(ctx context.Context) ([]model.Invoice, error) {
	return s.queryInvoices(ctx, "list invoices", `
		SELECT body FROM invoices
		ORDER BY id COLLATE BINARY ASC
	`)
}

// ListInvoicesByCustomer returns the invoices owned by customerID,
// most recent date first, ties broken by id.
func (s *Store) ListInvoicesByCustomer(ctx context.Context, customerID string) ([]model.Invoice, error) {
	return s.queryInvoices(ctx, "list invoices by customer", `
		SELECT body FROM invoices
		WHERE customer_id = ?
		ORDER BY date DESC, id COLLATE BINARY ASC
	`, customerID)
}

// DeleteInvoice removes an invoice. Deleting an absent id is a no-op.
// Images are not touched; cascading is the repository's job.
func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id); err != nil {
		return unavailable("delete invoice", err)
	}
	return nil
}

func (s *Store) queryInvoices(ctx context.Context, op, query string, args ...any) ([]model.Invoice, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	invoices := []model.Invoice{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, unavailable("scan invoice", err)
		}
		inv, err := decodeInvoice(body)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return invoices, nil
}

func decodeInvoice(body string) (model.Invoice, error) {
	var inv model.Invoice
	if err := json.Unmarshal([]byte(body), &inv); err != nil {
		return model.Invoice{}, unavailable("decode invoice", err)
	}
	return inv, nil
}
