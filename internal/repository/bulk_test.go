package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/store"
)

func datasetB() Dataset {
	return Dataset{
		Customers: []model.Customer{{ID: "b", Name: "Customer B", CreatedAt: 10, UpdatedAt: 20}},
		Invoices: []model.Invoice{{
			ID: "b-inv", CustomerID: "b", InvoiceNumber: "B-1", Date: 15,
			Total: model.NewMoney(5), Status: model.StatusSent, ImageIDs: []string{"b-img"},
			CreatedAt: 10, UpdatedAt: 20,
		}},
		Images: []model.StoredImage{{ID: "b-img", InvoiceID: "b-inv", Filename: "b.png", Data: []byte{9, 9}, CreatedAt: 11}},
	}
}

func TestParseReplaceMode(t *testing.T) {
	m, err := ParseReplaceMode("")
	require.NoError(t, err)
	assert.Equal(t, ReplaceSequential, m)

	m, err = ParseReplaceMode("atomic")
	require.NoError(t, err)
	assert.Equal(t, ReplaceAtomic, m)

	_, err = ParseReplaceMode("merge")
	assert.True(t, errors.Is(err, ledgererr.ErrInvalidInput))
}

func TestReplace_ReplacesEverything(t *testing.T) {
	for _, mode := range []ReplaceMode{ReplaceSequential, ReplaceAtomic} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			a := f.customer(t, "Customer A")
			inv := f.invoice(t, a.ID, "A-1")
			_, err := f.repo.AttachImage(ctx, inv.ID, []byte{1}, "a.png")
			require.NoError(t, err)

			sum, err := f.repo.Replace(ctx, BatchOf(datasetB()), mode)
			require.NoError(t, err)
			assert.Equal(t, Summary{Customers: 1, Invoices: 1, Images: 1}, sum)

			ds, err := f.repo.Dump(ctx)
			require.NoError(t, err)
			require.Len(t, ds.Customers, 1)
			assert.Equal(t, datasetB().Customers[0], ds.Customers[0])
			require.Len(t, ds.Invoices, 1)
			assert.Equal(t, "b-inv", ds.Invoices[0].ID)
			assert.Equal(t, int64(20), ds.Invoices[0].UpdatedAt, "timestamps are restored as given")
			require.Len(t, ds.Images, 1)
			assert.Equal(t, []byte{9, 9}, ds.Images[0].Data)
		})
	}
}

func TestReplace_EmptyBatchClears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.customer(t, "Customer A")

	_, err := f.repo.Replace(ctx, BatchOf(Dataset{}), ReplaceSequential)
	require.NoError(t, err)

	for _, c := range store.Collections {
		n, err := f.store.Count(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, 0, n, c)
	}
}

func failingImageBatch() Batch {
	b := BatchOf(datasetB())
	b.Image = func(int) (model.StoredImage, error) {
		return model.StoredImage{}, ledgererr.New(ledgererr.CodeMalformedEncoding, "decode image", "bad data")
	}
	return b
}

func TestReplace_SequentialLeavesPartialStateOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.customer(t, "Customer A")

	sum, err := f.repo.Replace(ctx, failingImageBatch(), ReplaceSequential)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererr.ErrMalformedEncoding))
	assert.Equal(t, Summary{Customers: 1, Invoices: 1}, sum)

	ds, err := f.repo.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, ds.Customers, 1)
	assert.Equal(t, "b", ds.Customers[0].ID, "A was cleared and B written before the failure")
	assert.Len(t, ds.Invoices, 1)
	assert.Empty(t, ds.Images)
}

func TestReplace_AtomicRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.customer(t, "Customer A")

	_, err := f.repo.Replace(ctx, failingImageBatch(), ReplaceAtomic)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererr.ErrMalformedEncoding))

	ds, err := f.repo.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, ds.Customers, 1)
	assert.Equal(t, a.ID, ds.Customers[0].ID)
	assert.Empty(t, ds.Invoices)
}

func TestReplace_UnknownMode(t *testing.T) {
	f := newFixture(t)
	f.customer(t, "Customer A")

	_, err := f.repo.Replace(context.Background(), BatchOf(datasetB()), ReplaceMode("merge"))
	assert.True(t, errors.Is(err, ledgererr.ErrInvalidInput))

	n, err := f.store.Count(context.Background(), store.Customers)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDump_Empty(t *testing.T) {
	f := newFixture(t)

	ds, err := f.repo.Dump(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, ds.Customers)
	assert.NotNil(t, ds.Invoices)
	assert.NotNil(t, ds.Images)
}
