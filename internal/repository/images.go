package repository

import (
	"context"
	"fmt"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/store"
)

// SaveImage stores an image payload owned by invoiceID and returns its new
// identity. The invoice's image set is not changed; use AttachImage for that.
// Returns a NOT_FOUND ledgererr if the invoice does not exist.
func (r *Repository) SaveImage(ctx context.Context, invoiceID string, data []byte, filename string) (string, error) {
	var id string
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		id, err = r.saveImage(ctx, tx, invoiceID, data, filename)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return id, nil
}

func (r *Repository) saveImage(ctx context.Context, tx *store.Store, invoiceID string, data []byte, filename string) (string, error) {
	if _, err := tx.GetInvoice(ctx, invoiceID); err != nil {
		return "", err
	}
	filename = clean(filename)
	if filename == "" {
		return "", ledgererr.New(ledgererr.CodeInvalidInput, "save image", "filename is required")
	}

	img := model.StoredImage{
		ID:        r.ids.Generate(),
		InvoiceID: invoiceID,
		Data:      data,
		Filename:  filename,
		CreatedAt: r.now(),
	}
	if err := tx.PutImage(ctx, img); err != nil {
		return "", err
	}

	r.logger.Debug().Str("image_id", img.ID).Str("invoice_id", invoiceID).Int("bytes", len(data)).Msg("image saved")
	return img.ID, nil
}

// GetImage returns the image with id, or nil if absent.
func (r *Repository) GetImage(ctx context.Context, id string) (*model.StoredImage, error) {
	img, err := r.store.GetImage(ctx, id)
	if ledgererr.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	return &img, nil
}

// DeleteImage removes an image and drops it from its invoice's image set.
// Deleting an absent id is a no-op.
func (r *Repository) DeleteImage(ctx context.Context, id string) error {
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		img, err := tx.GetImage(ctx, id)
		if ledgererr.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}

		inv, err := tx.GetInvoice(ctx, img.InvoiceID)
		switch {
		case ledgererr.IsNotFound(err):
		case err != nil:
			return err
		case inv.HasImage(id):
			inv.ImageIDs = without(inv.ImageIDs, id)
			inv.UpdatedAt = r.touch(inv.UpdatedAt)
			if err := tx.PutInvoice(ctx, inv); err != nil {
				return err
			}
		}
		return tx.DeleteImage(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// AttachImage saves an image for the invoice and appends it to the invoice's
// image set.
func (r *Repository) AttachImage(ctx context.Context, invoiceID string, data []byte, filename string) (model.Invoice, error) {
	var inv model.Invoice
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		imageID, err := r.saveImage(ctx, tx, invoiceID, data, filename)
		if err != nil {
			return err
		}
		inv, err = tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		inv.ImageIDs = append(inv.ImageIDs, imageID)
		inv.UpdatedAt = r.touch(inv.UpdatedAt)
		return tx.PutInvoice(ctx, inv)
	})
	if err != nil {
		return model.Invoice{}, fmt.Errorf("attach image: %w", err)
	}
	return inv, nil
}

// DetachImage removes imageID from the invoice's image set and deletes the image.
// Returns a NOT_FOUND ledgererr if the invoice is absent or does not hold the image.
func (r *Repository) DetachImage(ctx context.Context, invoiceID, imageID string) (model.Invoice, error) {
	var inv model.Invoice
	err := r.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		inv, err = tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if !inv.HasImage(imageID) {
			return ledgererr.Newf(ledgererr.CodeNotFound, "detach image", "invoice %q has no image %q", invoiceID, imageID)
		}
		inv.ImageIDs = without(inv.ImageIDs, imageID)
		inv.UpdatedAt = r.touch(inv.UpdatedAt)
		if err := tx.PutInvoice(ctx, inv); err != nil {
			return err
		}
		return tx.DeleteImage(ctx, imageID)
	})
	if err != nil {
		return model.Invoice{}, fmt.Errorf("detach image: %w", err)
	}
	return inv, nil
}

// ImagesForInvoice returns the invoice's images in image-set order.
// Ids in the set with no stored image are skipped.
func (r *Repository) ImagesForInvoice(ctx context.Context, invoiceID string) (model.Invoice, []model.StoredImage, error) {
	inv, err := r.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return model.Invoice{}, nil, fmt.Errorf("images for invoice: %w", err)
	}
	images := []model.StoredImage{}
	for _, id := range inv.ImageIDs {
		img, err := r.store.GetImage(ctx, id)
		if ledgererr.IsNotFound(err) {
			continue
		}
		if err != nil {
			return model.Invoice{}, nil, fmt.Errorf("images for invoice: %w", err)
		}
		images = append(images, img)
	}
	return inv, images, nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
