package transfer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/roach88/ledgerbook/internal/backup"
	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/repository"
)

// Import replaces the whole store with the snapshot read from r.
//
// A document that fails validation is an INVALID_BACKUP_FORMAT ledgererr and
// nothing is changed. After validation the three collections are cleared
// and rewritten. In sequential mode a failure during the rewrite, such as
// image data that is not valid base64, leaves the store partially replaced;
// in atomic mode the store is left as it was.
func (e *Engine) Import(ctx context.Context, r io.Reader) (Summary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Summary{}, fmt.Errorf("import: read: %w", err)
	}
	sum, err := e.restore(ctx, "import", data)
	if err != nil {
		return sum, fmt.Errorf("import: %w", err)
	}
	return sum, nil
}

// ImportFile imports the backup file at path.
func (e *Engine) ImportFile(ctx context.Context, path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("import: %w", err)
	}
	defer f.Close()
	return e.Import(ctx, f)
}

func (e *Engine) validate(data []byte) (*backup.Snapshot, error) {
	if e.strict {
		return backup.ValidateStrict(data)
	}
	return backup.Parse(data)
}

// restore validates data and replaces the store with it.
func (e *Engine) restore(ctx context.Context, op string, data []byte) (Summary, error) {
	snap, err := e.validate(data)
	if err != nil {
		e.logger.Warn().Err(err).Str("op", op).Msg("backup rejected")
		return Summary{}, err
	}

	createdAt := model.Millis(e.now())
	batch := repository.Batch{
		Customers:  snap.Customers,
		Invoices:   snap.Invoices,
		ImageCount: len(snap.Images),
		Image: func(i int) (model.StoredImage, error) {
			return snap.Images[i].Decode(createdAt)
		},
	}

	if e.mode == repository.ReplaceAtomic {
		images := make([]model.StoredImage, 0, len(snap.Images))
		for _, entry := range snap.Images {
			img, err := entry.Decode(createdAt)
			if err != nil {
				return Summary{}, err
			}
			images = append(images, img)
		}
		batch = repository.BatchOf(repository.Dataset{
			Customers: snap.Customers,
			Invoices:  snap.Invoices,
			Images:    images,
		})
	}

	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	sum, err := e.repo.Replace(context.WithoutCancel(ctx), batch, e.mode)
	if err != nil {
		return sum, err
	}
	e.logger.Info().Str("op", op).Str("app_name", snap.AppName).
		Int("customers", sum.Customers).Int("invoices", sum.Invoices).Int("images", sum.Images).
		Msg("backup restored")
	return sum, nil
}

// precondition checks the cloud preconditions before any remote call.
func (e *Engine) precondition(ctx context.Context, op string) error {
	if e.slot == nil {
		return ledgererr.New(ledgererr.CodeNetworkOrAuthUnavailable, op, "no remote configured")
	}
	if e.session == nil || e.session.Identity() == "" {
		return ledgererr.New(ledgererr.CodeNetworkOrAuthUnavailable, op, "not signed in")
	}
	if !e.session.Online(ctx) {
		return ledgererr.New(ledgererr.CodeNetworkOrAuthUnavailable, op, "offline")
	}
	return nil
}

// remoteError gives uncoded slot failures the cloud error code.
func remoteError(op string, err error) error {
	if ledgererr.CodeOf(err) != "" {
		return err
	}
	return ledgererr.Wrap(ledgererr.CodeNetworkOrAuthUnavailable, op, err)
}

// Upload sends a compact snapshot of the whole store to the remote slot,
// replacing whatever it held.
func (e *Engine) Upload(ctx context.Context) error {
	const op = "upload"
	if err := e.precondition(ctx, op); err != nil {
		return err
	}

	data, err := e.snapshot(ctx, false)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := e.slot.Put(ctx, string(data)); err != nil {
		return remoteError(op, err)
	}
	e.logger.Info().Str("op", op).Int("bytes", len(data)).Msg("backup uploaded")
	return nil
}

// Download fetches the remote snapshot and replaces the store with it,
// exactly as Import does. An empty slot is a NO_REMOTE_BACKUP ledgererr.
func (e *Engine) Download(ctx context.Context) (Summary, error) {
	const op = "download"
	if err := e.precondition(ctx, op); err != nil {
		return Summary{}, err
	}

	blob, ok, err := e.slot.Get(ctx)
	if err != nil {
		return Summary{}, remoteError(op, err)
	}
	if !ok {
		return Summary{}, ledgererr.New(ledgererr.CodeNoRemoteBackup, op, "remote slot is empty")
	}

	sum, err := e.restore(ctx, op, []byte(blob))
	if err != nil {
		return sum, fmt.Errorf("%s: %w", op, err)
	}
	return sum, nil
}
