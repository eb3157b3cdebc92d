// Package model defines the records persisted by the local store and carried
// in backup snapshots.
//
// JSON field names are part of the backup file format and must not change.
// Timestamps are integer milliseconds since the Unix epoch.
package model

import "time"

// Status is the lifecycle state of an invoice.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusSent    Status = "sent"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusDraft, StatusSent, StatusPaid, StatusOverdue}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Customer is a billed party.
type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// LineItem is a single row of an invoice. Total is free input and is not
// derived from Quantity and UnitPrice.
type LineItem struct {
	Description string `json:"description"`
	Quantity    Money  `json:"quantity"`
	UnitPrice   Money  `json:"unitPrice"`
	Total       Money  `json:"total"`
}

// Invoice is a bill issued to a customer.
type Invoice struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customerId"`
	InvoiceNumber string     `json:"invoiceNumber"`
	Date          int64      `json:"date"`
	Description   string     `json:"description,omitempty"`
	LineItems     []LineItem `json:"lineItems"`
	Total         Money      `json:"total"`
	Status        Status     `json:"status"`
	ImageIDs      []string   `json:"imageIds"`
	CreatedAt     int64      `json:"createdAt"`
	UpdatedAt     int64      `json:"updatedAt"`
}

// HasImage reports whether imageID is in the invoice's image set.
func (inv Invoice) HasImage(imageID string) bool {
	for _, id := range inv.ImageIDs {
		if id == imageID {
			return true
		}
	}
	return false
}

// StoredImage is a bill image owned by exactly one invoice.
type StoredImage struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoiceId"`
	Data      []byte `json:"-"`
	Filename  string `json:"filename"`
	CreatedAt int64  `json:"createdAt"`
}

// Millis converts t to integer milliseconds since the Unix epoch.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// Time converts integer milliseconds since the Unix epoch to a UTC time.
func Time(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
