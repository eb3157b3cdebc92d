package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/ledgerbook/internal/backup"
	"github.com/roach88/ledgerbook/internal/remote"
)

// Delivery hands a finished artifact to its destination.
type Delivery interface {
	Deliver(ctx context.Context, a Artifact) error
}

// FileDelivery writes artifacts into a directory. Each file is written to a
// temporary name and renamed, so a partial file never appears.
type FileDelivery struct {
	Dir string
}

// Deliver writes a.Data to Dir/a.Filename.
func (d FileDelivery) Deliver(_ context.Context, a Artifact) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("deliver %s: %w", a.Filename, err)
	}
	if err := remote.WriteFileAtomic(filepath.Join(d.Dir, a.Filename), a.Data); err != nil {
		return fmt.Errorf("deliver %s: %w", a.Filename, err)
	}
	return nil
}

// Export reads the whole store and returns it as a pretty-printed snapshot
// named "{appName}_backup_{date}.json".
func (e *Engine) Export(ctx context.Context) (Artifact, error) {
	data, err := e.snapshot(ctx, true)
	if err != nil {
		return Artifact{}, fmt.Errorf("export: %w", err)
	}
	return Artifact{Filename: backup.FileName(e.appName, e.now()), Data: data}, nil
}

// ExportTo exports and hands the artifact to d. Nothing is delivered if the
// export fails.
func (e *Engine) ExportTo(ctx context.Context, d Delivery) (Artifact, error) {
	a, err := e.Export(ctx)
	if err != nil {
		return Artifact{}, err
	}
	if err := d.Deliver(ctx, a); err != nil {
		return Artifact{}, fmt.Errorf("export: %w", err)
	}
	e.logger.Info().Str("op", "export").Str("file", a.Filename).Int("bytes", len(a.Data)).Msg("backup delivered")
	return a, nil
}

// ExportImageBundle returns the invoice's images as a bundle named
// "invoice_{number}_images.json". An invoice without images is an
// INVALID_INPUT ledgererr.
func (e *Engine) ExportImageBundle(ctx context.Context, invoiceID string) (Artifact, error) {
	inv, images, err := e.repo.ImagesForInvoice(ctx, invoiceID)
	if err != nil {
		return Artifact{}, fmt.Errorf("export image bundle: %w", err)
	}
	bundle, err := backup.BuildImageBundle(inv.InvoiceNumber, images, e.now())
	if err != nil {
		return Artifact{}, fmt.Errorf("export image bundle: %w", err)
	}
	data, err := backup.Marshal(bundle, true)
	if err != nil {
		return Artifact{}, fmt.Errorf("export image bundle: %w", err)
	}
	e.logger.Info().Str("op", "image_bundle").Str("invoice_id", invoiceID).Int("images", len(images)).Msg("bundle built")
	return Artifact{Filename: backup.BundleFileName(inv.InvoiceNumber), Data: data}, nil
}

// snapshot dumps the store, encodes images and serialises the snapshot.
func (e *Engine) snapshot(ctx context.Context, pretty bool) ([]byte, error) {
	ds, err := e.repo.Dump(ctx)
	if err != nil {
		return nil, err
	}
	snap := backup.Build(ds.Customers, ds.Invoices, ds.Images, e.appName, e.now())
	data, err := backup.Marshal(snap, pretty)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().
		Int("customers", len(ds.Customers)).Int("invoices", len(ds.Invoices)).Int("images", len(ds.Images)).
		Msg("snapshot built")
	return data, nil
}
