// Package backup defines the versioned snapshot document that carries the
// whole store in one JSON file, and the per-invoice image bundle.
//
// Validation has two tiers. Parse is the shallow structural gate every import
// goes through. ValidateStrict adds a schema check and a cross-reference
// pass; it is opt-in because the shallow gate is what older files were
// written against.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/ledgerbook/internal/codec"
	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
)

// Version is the snapshot format version written by Build.
const Version = "1.0"

// Snapshot is a complete, self-describing copy of the store.
type Snapshot struct {
	Version   string           `json:"version"`
	AppName   string           `json:"appName"`
	Timestamp int64            `json:"timestamp"`
	Customers []model.Customer `json:"customers"`
	Invoices  []model.Invoice  `json:"invoices"`
	Images    []ImageEntry     `json:"images"`
}

// ImageEntry is an image inside a snapshot, payload in text form.
type ImageEntry struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoiceId"`
	Filename  string `json:"filename"`
	Data      string `json:"data"`
}

// Build assembles a snapshot. Image payloads are encoded with codec.Encode.
func Build(customers []model.Customer, invoices []model.Invoice, images []model.StoredImage, appName string, now time.Time) Snapshot {
	entries := make([]ImageEntry, 0, len(images))
	for _, img := range images {
		entries = append(entries, ImageEntry{
			ID:        img.ID,
			InvoiceID: img.InvoiceID,
			Filename:  img.Filename,
			Data:      codec.Encode(img.Data),
		})
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	if invoices == nil {
		invoices = []model.Invoice{}
	}
	return Snapshot{
		Version:   Version,
		AppName:   appName,
		Timestamp: model.Millis(now),
		Customers: customers,
		Invoices:  invoices,
		Images:    entries,
	}
}

// Decode returns the stored form of the entry, stamped with createdAt.
// Returns a MALFORMED_ENCODING ledgererr if Data is not valid base64.
func (e ImageEntry) Decode(createdAt int64) (model.StoredImage, error) {
	data, err := codec.Decode(e.Data)
	if err != nil {
		return model.StoredImage{}, fmt.Errorf("image %s: %w", e.ID, err)
	}
	return model.StoredImage{
		ID:        e.ID,
		InvoiceID: e.InvoiceID,
		Data:      data,
		Filename:  e.Filename,
		CreatedAt: createdAt,
	}, nil
}

// Marshal serialises v (a Snapshot or Bundle). Export files are pretty
// printed with two-space indentation; cloud payloads are compact.
func Marshal(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Parse decodes a snapshot candidate after a shallow structural check: the
// document is a JSON object, version is a string, and customers, invoices and
// images are present and are arrays. Records are then decoded into their
// typed form. Any failure is an INVALID_BACKUP_FORMAT ledgererr.
//
// Parse does not check cross-references; an image whose invoice is absent is
// accepted. Use ValidateStrict for that.
func Parse(data []byte) (*Snapshot, error) {
	const op = "parse backup"

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, ledgererr.Wrap(ledgererr.CodeInvalidBackupFormat, op, err)
	}
	if top == nil {
		return nil, ledgererr.New(ledgererr.CodeInvalidBackupFormat, op, "document is not an object")
	}

	if raw, ok := top["version"]; !ok || jsonKind(raw) != '"' {
		return nil, ledgererr.New(ledgererr.CodeInvalidBackupFormat, op, "version must be a string")
	}
	for _, field := range []string{"customers", "invoices", "images"} {
		raw, ok := top[field]
		if !ok {
			return nil, ledgererr.Newf(ledgererr.CodeInvalidBackupFormat, op, "missing %s", field)
		}
		if jsonKind(raw) != '[' {
			return nil, ledgererr.Newf(ledgererr.CodeInvalidBackupFormat, op, "%s must be an array", field)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, ledgererr.Wrap(ledgererr.CodeInvalidBackupFormat, op, err)
	}
	return &snap, nil
}

// jsonKind returns the first significant byte of a raw JSON value.
func jsonKind(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
