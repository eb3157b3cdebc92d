package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/ledgerbook/internal/model"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCustomer creates a customer with minimal required fields.
func createTestCustomer(id, name string, updatedAt int64) model.Customer {
	return model.Customer{
		ID:        id,
		Name:      name,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
}

// createTestInvoice creates an invoice with minimal required fields.
func createTestInvoice(id, customerID string, date int64) model.Invoice {
	return model.Invoice{
		ID:            id,
		CustomerID:    customerID,
		InvoiceNumber: "INV-" + id,
		Date:          date,
		LineItems:     []model.LineItem{},
		Total:         model.NewMoney(10),
		Status:        model.StatusDraft,
		ImageIDs:      []string{},
		CreatedAt:     date,
		UpdatedAt:     date,
	}
}
