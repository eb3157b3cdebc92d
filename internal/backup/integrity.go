package backup

import (
	"fmt"
	"strings"

	"github.com/roach88/ledgerbook/internal/ledgererr"
)

// IssueKind classifies an integrity problem.
type IssueKind string

const (
	IssueUnsupportedVersion IssueKind = "unsupported_version"
	IssueDuplicateID        IssueKind = "duplicate_id"
	IssueMissingCustomer    IssueKind = "missing_customer"
	IssueMissingInvoice     IssueKind = "missing_invoice"
	IssueMissingImage       IssueKind = "missing_image"
)

// Issue is one cross-reference problem found in a snapshot.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Path    string    `json:"path"`
	Message string    `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// CheckIntegrity reports cross-reference problems: invoices whose customer
// is absent, images whose invoice is absent, invoice image ids with no
// image, and duplicate ids within a collection. Returns an empty slice when
// the snapshot is consistent.
func CheckIntegrity(snap *Snapshot) []Issue {
	issues := []Issue{}
	add := func(kind IssueKind, path, format string, args ...any) {
		issues = append(issues, Issue{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if major, _, _ := strings.Cut(snap.Version, "."); major != "1" {
		add(IssueUnsupportedVersion, "version", "unsupported version %q", snap.Version)
	}

	customers := make(map[string]bool, len(snap.Customers))
	for i, c := range snap.Customers {
		if customers[c.ID] {
			add(IssueDuplicateID, fmt.Sprintf("customers[%d]", i), "duplicate customer id %q", c.ID)
		}
		customers[c.ID] = true
	}

	invoices := make(map[string]bool, len(snap.Invoices))
	for i, inv := range snap.Invoices {
		if invoices[inv.ID] {
			add(IssueDuplicateID, fmt.Sprintf("invoices[%d]", i), "duplicate invoice id %q", inv.ID)
		}
		invoices[inv.ID] = true
		if !customers[inv.CustomerID] {
			add(IssueMissingCustomer, fmt.Sprintf("invoices[%d].customerId", i), "customer %q not in backup", inv.CustomerID)
		}
	}

	images := make(map[string]bool, len(snap.Images))
	for i, img := range snap.Images {
		if images[img.ID] {
			add(IssueDuplicateID, fmt.Sprintf("images[%d]", i), "duplicate image id %q", img.ID)
		}
		images[img.ID] = true
		if !invoices[img.InvoiceID] {
			add(IssueMissingInvoice, fmt.Sprintf("images[%d].invoiceId", i), "invoice %q not in backup", img.InvoiceID)
		}
	}

	for i, inv := range snap.Invoices {
		for j, id := range inv.ImageIDs {
			if !images[id] {
				add(IssueMissingImage, fmt.Sprintf("invoices[%d].imageIds[%d]", i, j), "image %q not in backup", id)
			}
		}
	}
	return issues
}

// ValidateStrict runs Parse, CheckSchema and CheckIntegrity in that order.
// Any problem is an INVALID_BACKUP_FORMAT ledgererr.
func ValidateStrict(data []byte) (*Snapshot, error) {
	snap, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := CheckSchema(data); err != nil {
		return nil, err
	}
	if issues := CheckIntegrity(snap); len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i, is := range issues {
			msgs[i] = is.String()
		}
		return nil, ledgererr.New(ledgererr.CodeInvalidBackupFormat, "check backup integrity", strings.Join(msgs, "; "))
	}
	return snap, nil
}
