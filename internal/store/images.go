package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/roach88/ledgerbook/internal/model"
)

// PutImage upserts an image by identity, payload included.
func (s *Store) PutImage(ctx context.Context, img model.StoredImage) error {
	data := img.Data
	if data == nil {
		// go-sqlite3 binds a nil slice as NULL
		data = []byte{}
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO images (id, invoice_id, filename, data, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			invoice_id = excluded.invoice_id,
			filename = excluded.filename,
			data = excluded.data,
			created_at = excluded.created_at
	`, img.ID, img.InvoiceID, img.Filename, data, img.CreatedAt)
	if err != nil {
		return unavailable("put image", err)
	}
	return nil
}

// GetImage retrieves an image by ID.
// Returns a NOT_FOUND ledgererr if absent.
func (s *Store) GetImage(ctx context.Context, id string) (model.StoredImage, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, invoice_id, filename, data, created_at
		FROM images WHERE id = ?
	`, id)

	var img model.StoredImage
	err := row.Scan(&img.ID, &img.InvoiceID, &img.Filename, &img.Data, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoredImage{}, notFound("get image", "image", id)
	}
	if err != nil {
		return model.StoredImage{}, unavailable("get image", err)
	}
	return img, nil
}

// ListImages returns every image ordered by id, payloads included.
func (s *Store) ListImages(ctx context.Context) ([]model.StoredImage, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, invoice_id, filename, data, created_at
		FROM images
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, unavailable("list images", err)
	}
	defer rows.Close()

	images := []model.StoredImage{}
	for rows.Next() {
		var img model.StoredImage
		if err := rows.Scan(&img.ID, &img.InvoiceID, &img.Filename, &img.Data, &img.CreatedAt); err != nil {
			return nil, unavailable("scan image", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate images", err)
	}
	return images, nil
}

// DeleteImage removes an image. Deleting an absent id is a no-op.
func (s *Store) DeleteImage(ctx context.Context, id string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id); err != nil {
		return unavailable("delete image", err)
	}
	return nil
}

// ImageIDsByInvoice returns the ids of every image owned by invoiceID, ordered by id.
func (s *Store) ImageIDsByInvoice(ctx context.Context, invoiceID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id FROM images
		WHERE invoice_id = ?
		ORDER BY id COLLATE BINARY ASC
	`, invoiceID)
	if err != nil {
		return nil, unavailable("list images by invoice", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scan image id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate image ids", err)
	}
	return ids, nil
}
