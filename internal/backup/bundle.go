package backup

import (
	"time"

	"github.com/roach88/ledgerbook/internal/codec"
	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
)

// Bundle carries the images of one invoice for download.
type Bundle struct {
	InvoiceNumber string        `json:"invoiceNumber"`
	Timestamp     int64         `json:"timestamp"`
	Images        []BundleImage `json:"images"`
}

// BundleImage is one image in a bundle, payload in text form.
type BundleImage struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

// BuildImageBundle assembles a bundle from the invoice's images.
// Returns an INVALID_INPUT ledgererr when there are no images.
func BuildImageBundle(invoiceNumber string, images []model.StoredImage, now time.Time) (Bundle, error) {
	if len(images) == 0 {
		return Bundle{}, ledgererr.New(ledgererr.CodeInvalidInput, "build image bundle", "no images to download")
	}
	out := make([]BundleImage, 0, len(images))
	for _, img := range images {
		out = append(out, BundleImage{Filename: img.Filename, Data: codec.Encode(img.Data)})
	}
	return Bundle{
		InvoiceNumber: invoiceNumber,
		Timestamp:     model.Millis(now),
		Images:        out,
	}, nil
}
