package backup

import (
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
)

var fixtureNow = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func fixtureSnapshot() Snapshot {
	t := model.Millis(fixtureNow)
	customers := []model.Customer{{
		ID: "cust-1", Name: "Acme", Email: "billing@acme.test",
		CreatedAt: t, UpdatedAt: t + 1000,
	}}
	invoices := []model.Invoice{{
		ID: "inv-1", CustomerID: "cust-1", InvoiceNumber: "INV-1", Date: t,
		LineItems: []model.LineItem{{
			Description: "Bill scan",
			Quantity:    model.NewMoney(1),
			UnitPrice:   model.NewMoney(100),
			Total:       model.NewMoney(100),
		}},
		Total: model.NewMoney(100), Status: model.StatusDraft, ImageIDs: []string{"img-1"},
		CreatedAt: t, UpdatedAt: t + 2000,
	}}
	images := []model.StoredImage{{
		ID: "img-1", InvoiceID: "inv-1", Filename: "bill.png",
		Data: []byte{0x89, 'P', 'N', 'G'}, CreatedAt: t,
	}}
	return Build(customers, invoices, images, "Invoice Manager", fixtureNow)
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestBuild(t *testing.T) {
	snap := fixtureSnapshot()

	assert.Equal(t, Version, snap.Version)
	assert.Equal(t, "Invoice Manager", snap.AppName)
	assert.Equal(t, model.Millis(fixtureNow), snap.Timestamp)
	require.Len(t, snap.Images, 1)
	assert.Equal(t, "inv-1", snap.Images[0].InvoiceID)
	assert.Equal(t, "iVBORw==", snap.Images[0].Data)
}

func TestBuild_EmptyCollectionsAreArrays(t *testing.T) {
	data, err := Marshal(Build(nil, nil, nil, "App", fixtureNow), false)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"customers":[]`)
	assert.Contains(t, string(data), `"invoices":[]`)
	assert.Contains(t, string(data), `"images":[]`)
}

func TestMarshal_PrettyGolden(t *testing.T) {
	data, err := Marshal(fixtureSnapshot(), true)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "snapshot_pretty", data)
}

func TestMarshal_CompactGolden(t *testing.T) {
	data, err := Marshal(fixtureSnapshot(), false)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "snapshot_compact", data)
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	data, err := Marshal(Build(nil, nil, nil, "Smith & Sons <Ltd>", fixtureNow), false)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"appName":"Smith & Sons <Ltd>"`)
}

func TestParse_RoundTrip(t *testing.T) {
	want := fixtureSnapshot()
	data, err := Marshal(want, true)
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.AppName, got.AppName)
	assert.Equal(t, want.Timestamp, got.Timestamp)
	assert.Equal(t, want.Customers, got.Customers)
	assert.Equal(t, want.Images, got.Images)
	require.Len(t, got.Invoices, 1)
	assert.Equal(t, want.Invoices[0].ImageIDs, got.Invoices[0].ImageIDs)
	assert.True(t, want.Invoices[0].Total.Equal(got.Invoices[0].Total))

	img, err := got.Images[0].Decode(42)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img.Data)
	assert.Equal(t, int64(42), img.CreatedAt)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"version": "1.0",`},
		{"array", `[]`},
		{"null", `null`},
		{"string", `"backup"`},
		{"missing version", `{"customers":[],"invoices":[],"images":[]}`},
		{"numeric version", `{"version":1,"customers":[],"invoices":[],"images":[]}`},
		{"null version", `{"version":null,"customers":[],"invoices":[],"images":[]}`},
		{"missing images", `{"version":"1.0","customers":[],"invoices":[]}`},
		{"missing customers", `{"version":"1.0","invoices":[],"images":[]}`},
		{"invoices object", `{"version":"1.0","customers":[],"invoices":{},"images":[]}`},
		{"images null", `{"version":"1.0","customers":[],"invoices":[],"images":null}`},
		{"record wrong shape", `{"version":"1.0","customers":[{"id":7}],"invoices":[],"images":[]}`},
		{"createdAt as date string", `{"version":"1.0","customers":[{"id":"c","name":"Acme","createdAt":"2024-01-01"}],"invoices":[],"images":[]}`},
		{"total not a number", `{"version":"1.0","customers":[],"invoices":[{"id":"i","total":"lots"}],"images":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ledgererr.ErrInvalidBackupFormat), "got %v", err)
		})
	}
}

func TestParse_AcceptsOrphanImage(t *testing.T) {
	doc := `{"version":"1.0","customers":[],"invoices":[],
		"images":[{"id":"img-1","invoiceId":"nowhere","filename":"a.png","data":"AQID"}]}`

	snap, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, snap.Images, 1)

	issues := CheckIntegrity(snap)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueMissingInvoice, issues[0].Kind)
	assert.Equal(t, "images[0].invoiceId", issues[0].Path)
}

func TestParse_AcceptsMalformedImageData(t *testing.T) {
	doc := `{"version":"1.0","customers":[],"invoices":[],
		"images":[{"id":"img-1","invoiceId":"inv-1","filename":"a.png","data":"***"}]}`

	snap, err := Parse([]byte(doc))
	require.NoError(t, err)

	_, err = snap.Images[0].Decode(0)
	assert.True(t, errors.Is(err, ledgererr.ErrMalformedEncoding), "got %v", err)
}

func TestCheckSchema(t *testing.T) {
	valid, err := Marshal(fixtureSnapshot(), false)
	require.NoError(t, err)
	assert.NoError(t, CheckSchema(valid))

	tests := []struct {
		name string
		doc  string
	}{
		{"negative total", `{"version":"1.0","customers":[],"images":[],
			"invoices":[{"id":"i","customerId":"c","invoiceNumber":"1","date":1,"total":-1,"status":"draft","imageIds":[],"createdAt":1,"updatedAt":1}]}`},
		{"unknown status", `{"version":"1.0","customers":[],"images":[],
			"invoices":[{"id":"i","customerId":"c","invoiceNumber":"1","date":1,"total":1,"status":"void","imageIds":[],"createdAt":1,"updatedAt":1}]}`},
		{"empty customer name", `{"version":"1.0","invoices":[],"images":[],
			"customers":[{"id":"c","name":"","createdAt":1,"updatedAt":1}]}`},
		{"updatedAt before createdAt", `{"version":"1.0","invoices":[],"images":[],
			"customers":[{"id":"c","name":"Acme","createdAt":5,"updatedAt":1}]}`},
		{"image missing data", `{"version":"1.0","customers":[],"invoices":[],
			"images":[{"id":"img","invoiceId":"i","filename":"a.png"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSchema([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ledgererr.ErrInvalidBackupFormat), "got %v", err)
		})
	}
}

func TestCheckSchema_AllowsUnknownFields(t *testing.T) {
	doc := `{"version":"1.0","exportedBy":"web","customers":[
		{"id":"c","name":"Acme","createdAt":1,"updatedAt":2,"tier":"gold"}],"invoices":[],"images":[]}`
	assert.NoError(t, CheckSchema([]byte(doc)))
}

func TestCheckIntegrity(t *testing.T) {
	snap := fixtureSnapshot()
	assert.Empty(t, CheckIntegrity(&snap))

	snap.Version = "2.0"
	snap.Customers = append(snap.Customers, snap.Customers[0])
	snap.Invoices[0].ImageIDs = append(snap.Invoices[0].ImageIDs, "img-ghost")
	snap.Invoices = append(snap.Invoices, model.Invoice{ID: "inv-2", CustomerID: "cust-ghost"})

	kinds := map[IssueKind]int{}
	for _, is := range CheckIntegrity(&snap) {
		kinds[is.Kind]++
	}
	assert.Equal(t, map[IssueKind]int{
		IssueUnsupportedVersion: 1,
		IssueDuplicateID:        1,
		IssueMissingCustomer:    1,
		IssueMissingImage:       1,
	}, kinds)
}

func TestValidateStrict(t *testing.T) {
	valid, err := Marshal(fixtureSnapshot(), true)
	require.NoError(t, err)

	snap, err := ValidateStrict(valid)
	require.NoError(t, err)
	assert.Len(t, snap.Customers, 1)

	orphan := `{"version":"1.0","customers":[],"invoices":[],
		"images":[{"id":"img-1","invoiceId":"nowhere","filename":"a.png","data":"AQID"}]}`
	_, err = ValidateStrict([]byte(orphan))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererr.ErrInvalidBackupFormat))
	assert.Contains(t, err.Error(), "nowhere")
}

func TestFileName(t *testing.T) {
	day := time.Date(2026, 3, 4, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))

	tests := []struct {
		appName string
		want    string
	}{
		{"Invoice Manager", "Invoice_Manager_backup_2026-03-05.json"},
		{"My  Shop\tBooks", "My_Shop_Books_backup_2026-03-05.json"},
		{"Ledger", "Ledger_backup_2026-03-05.json"},
		{"My\u3000Shop", "My_Shop_backup_2026-03-05.json"},
		{"Corner\u00a0\u2028Shop\v", "Corner_Shop__backup_2026-03-05.json"},
	}
	for _, tt := range tests {
		t.Run(tt.appName, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.appName, day))
		})
	}
}

func TestBundle(t *testing.T) {
	_, err := BuildImageBundle("INV-1", nil, fixtureNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererr.ErrInvalidInput))
	assert.Contains(t, err.Error(), "no images to download")

	snap := fixtureSnapshot()
	img, err := snap.Images[0].Decode(0)
	require.NoError(t, err)

	bundle, err := BuildImageBundle("INV-1", []model.StoredImage{img}, fixtureNow)
	require.NoError(t, err)

	data, err := Marshal(bundle, true)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "bundle", data)

	assert.Equal(t, "invoice_INV-1_images.json", BundleFileName("INV-1"))
	assert.Equal(t, "invoice_2026_01_images.json", BundleFileName("2026/01"))
}
