package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/roach88/ledgerbook/internal/model"
)

// PutCustomer upserts a customer by identity.
// The full record is stored as a JSON document; updated_at is projected for indexing.
func (s *Store) PutCustomer(ctx context.Context, c model.Customer) error {
	body, err := json.Marshal(c)
	if err != nil {
		return unavailable("put customer", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO customers (id, updated_at, body)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			body = excluded.body
	`, c.ID, c.UpdatedAt, string(body))
	if err != nil {
		return unavailable("put customer", err)
	}
	return nil
}

// GetCustomer retrieves a customer by ID.
// Returns a NOT_FOUND ledgererr if absent.
func (s *Store) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	var body string
	err := s.q.QueryRowContext(ctx, `SELECT body FROM customers WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Customer{}, notFound("get customer", "customer", id)
	}
	if err != nil {
		return model.Customer{}, unavailable("get customer", err)
	}
	return decodeCustomer(body)
}

// ListCustomers returns every customer ordered by id.
// Returns an empty slice (not nil) when the collection is empty.
func (s *Store) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT body FROM customers
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, unavailable("list customers", err)
	}
	defer rows.Close()

	customers := []model.Customer{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, unavailable("scan customer", err)
		}
		c, err := decodeCustomer(body)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate customers", err)
	}
	return customers, nil
}

// DeleteCustomer removes a customer. Deleting an absent id is a no-op.
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id); err != nil {
		return unavailable("delete customer", err)
	}
	return nil
}

func decodeCustomer(body string) (model.Customer, error) {
	var c model.Customer
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return model.Customer{}, unavailable("decode customer", err)
	}
	return c, nil
}
