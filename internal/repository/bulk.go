package repository

import (
	"context"
	"fmt"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/store"
)

// Dataset is the full content of the store.
type Dataset struct {
	Customers []model.Customer
	Invoices  []model.Invoice
	Images    []model.StoredImage
}

// ReplaceMode selects how Replace behaves when a write fails midway.
type ReplaceMode string

const (
	// ReplaceSequential clears and rewrites collection by collection with no
	// rollback. A failure after the clear leaves the store partially replaced.
	ReplaceSequential ReplaceMode = "sequential"

	// ReplaceAtomic runs the whole replacement in one store transaction.
	ReplaceAtomic ReplaceMode = "atomic"
)

// ParseReplaceMode parses "sequential" or "atomic". Empty means sequential.
func ParseReplaceMode(s string) (ReplaceMode, error) {
	switch ReplaceMode(s) {
	case "", ReplaceSequential:
		return ReplaceSequential, nil
	case ReplaceAtomic:
		return ReplaceAtomic, nil
	}
	return "", ledgererr.Newf(ledgererr.CodeInvalidInput, "parse replace mode", "unknown replace mode %q", s)
}

// Batch is the input to Replace. Images are produced one at a time by Image
// during the image phase, so a failure to produce image i surfaces only after
// customers and invoices have been written.
type Batch struct {
	Customers  []model.Customer
	Invoices   []model.Invoice
	ImageCount int
	Image      func(i int) (model.StoredImage, error)
}

// BatchOf wraps an already-materialised dataset.
func BatchOf(ds Dataset) Batch {
	return Batch{
		Customers:  ds.Customers,
		Invoices:   ds.Invoices,
		ImageCount: len(ds.Images),
		Image:      func(i int) (model.StoredImage, error) { return ds.Images[i], nil },
	}
}

// Summary counts the records written by Replace.
type Summary struct {
	Customers int `json:"customers"`
	Invoices  int `json:"invoices"`
	Images    int `json:"images"`
}

// Dump reads every record of every collection, images with payloads.
func (r *Repository) Dump(ctx context.Context) (Dataset, error) {
	var ds Dataset
	var err error
	if ds.Customers, err = r.store.ListCustomers(ctx); err != nil {
		return Dataset{}, fmt.Errorf("dump: %w", err)
	}
	if ds.Invoices, err = r.store.ListInvoices(ctx); err != nil {
		return Dataset{}, fmt.Errorf("dump: %w", err)
	}
	if ds.Images, err = r.store.ListImages(ctx); err != nil {
		return Dataset{}, fmt.Errorf("dump: %w", err)
	}
	return ds, nil
}

// Replace discards every customer, invoice and image and writes the batch in
// its place: clear all three collections, then customers, then invoices,
// then images. Records are written as given, timestamps and ids included.
//
// In ReplaceSequential mode each write commits on its own; the first failure
// is returned and whatever was written so far stays. In ReplaceAtomic mode
// the store is left untouched on failure.
func (r *Repository) Replace(ctx context.Context, b Batch, mode ReplaceMode) (Summary, error) {
	var sum Summary
	var err error
	switch mode {
	case ReplaceAtomic:
		err = r.store.WithTx(ctx, func(tx *store.Store) error {
			var err error
			sum, err = replace(ctx, tx, b)
			return err
		})
	case ReplaceSequential, "":
		sum, err = replace(ctx, r.store, b)
	default:
		return Summary{}, ledgererr.Newf(ledgererr.CodeInvalidInput, "replace", "unknown replace mode %q", mode)
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("mode", string(mode)).
			Int("customers", sum.Customers).Int("invoices", sum.Invoices).Int("images", sum.Images).
			Msg("replace failed")
		return sum, fmt.Errorf("replace: %w", err)
	}

	r.logger.Info().Str("mode", string(mode)).
		Int("customers", sum.Customers).Int("invoices", sum.Invoices).Int("images", sum.Images).
		Msg("store replaced")
	return sum, nil
}

func replace(ctx context.Context, s *store.Store, b Batch) (Summary, error) {
	var sum Summary
	for _, c := range store.Collections {
		if err := s.Clear(ctx, c); err != nil {
			return sum, err
		}
	}
	for _, c := range b.Customers {
		if err := s.PutCustomer(ctx, c); err != nil {
			return sum, err
		}
		sum.Customers++
	}
	for _, inv := range b.Invoices {
		if inv.LineItems == nil {
			inv.LineItems = []model.LineItem{}
		}
		if inv.ImageIDs == nil {
			inv.ImageIDs = []string{}
		}
		if err := s.PutInvoice(ctx, inv); err != nil {
			return sum, err
		}
		sum.Invoices++
	}
	for i := 0; i < b.ImageCount; i++ {
		img, err := b.Image(i)
		if err != nil {
			return sum, err
		}
		if err := s.PutImage(ctx, img); err != nil {
			return sum, err
		}
		sum.Images++
	}
	return sum, nil
}
