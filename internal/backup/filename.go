package backup

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Unicode space separators and BOM count as whitespace too.
var whitespaceRun = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)

// FileName returns the export file name for appName at t:
// "{appName}_backup_{YYYY-MM-DD}.json", whitespace runs in appName collapsed
// to a single underscore and the date taken in UTC.
func FileName(appName string, t time.Time) string {
	name := whitespaceRun.ReplaceAllString(norm.NFC.String(appName), "_")
	return name + "_backup_" + t.UTC().Format("2006-01-02") + ".json"
}

// BundleFileName returns the image bundle file name for an invoice number.
// Path separators in the invoice number are replaced so the result is a
// single path element.
func BundleFileName(invoiceNumber string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_").Replace(invoiceNumber)
	return "invoice_" + safe + "_images.json"
}
