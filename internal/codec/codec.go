// Package codec converts binary image payloads to and from the text form
// carried inside backup documents.
//
// The text form is standard base64 with padding and no media-type prefix.
// Decoding is strict: any character outside the alphabet, bad padding or
// trailing garbage is a MALFORMED_ENCODING error, never a silent truncation.
package codec

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/roach88/ledgerbook/internal/ledgererr"
)

var enc = base64.StdEncoding.Strict()

// Encode returns the text form of data. Empty input encodes to "".
func Encode(data []byte) string {
	return enc.EncodeToString(data)
}

// Decode returns the bytes represented by text.
// Returns a MALFORMED_ENCODING ledgererr if text is not valid base64.
func Decode(text string) ([]byte, error) {
	// DecodeString skips \r and \n; reject them so decode(encode(b)) is the only accepted form.
	if strings.ContainsAny(text, "\r\n") {
		return nil, ledgererr.New(ledgererr.CodeMalformedEncoding, "decode image", "line breaks in encoded data")
	}
	data, err := enc.DecodeString(text)
	if err != nil {
		return nil, ledgererr.Wrap(ledgererr.CodeMalformedEncoding, "decode image", err)
	}
	return data, nil
}

// MediaType sniffs the MIME type of an image payload, e.g. "image/png".
// Unrecognised payloads report "application/octet-stream".
func MediaType(data []byte) string {
	return mimetype.Detect(data).String()
}

// Extension returns the file extension for an image payload, including the
// leading dot, or "" when the type is unknown.
func Extension(data []byte) string {
	return mimetype.Detect(data).Extension()
}
