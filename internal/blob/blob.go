/*
Package blob normalizes tool payloads into a single binary representation.

Pages hand the history service either text or raw bytes. Both are stored as a
Blob: the payload bytes plus a MIME type. Text-like types can be decoded back
into a displayable string; everything else stays opaque.
*/
package blob

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultType is the MIME type used when a caller does not supply one.
const DefaultType = "text/plain"

// Blob is a binary payload tagged with its MIME type.
type Blob struct {
	Data []byte `json:"-"`
	Type string `json:"type"`
}

// ToBlob converts v into a Blob.
//
// Blob values pass through unchanged. Strings are wrapped with mimeType (or
// DefaultType). Byte slices are wrapped with mimeType, or with the sniffed
// content type when mimeType is empty.
func ToBlob(v any, mimeType string) (Blob, error) {
	switch t := v.(type) {
	case Blob:
		return t, nil
	case *Blob:
		if t == nil {
			return Blob{}, fmt.Errorf("nil blob")
		}
		return *t, nil
	case string:
		if mimeType == "" {
			mimeType = DefaultType
		}
		return Blob{Data: []byte(t), Type: mimeType}, nil
	case []byte:
		if mimeType == "" {
			mimeType = mimetype.Detect(t).String()
		}
		data := make([]byte, len(t))
		copy(data, t)
		return Blob{Data: data, Type: mimeType}, nil
	case nil:
		if mimeType == "" {
			mimeType = DefaultType
		}
		return Blob{Data: []byte{}, Type: mimeType}, nil
	default:
		return Blob{}, fmt.Errorf("unsupported payload type %T", v)
	}
}

// FromBlob decodes the payload as UTF-8 text. A leading UTF-8 byte order
// mark is dropped and invalid sequences become U+FFFD. Other encodings are
// not detected, so a UTF-16 payload decodes as replacement characters.
func FromBlob(ctx context.Context, b Blob) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dec := unicode.UTF8BOM.NewDecoder()
	out, _, err := transform.Bytes(dec, b.Data)
	if err != nil {
		return "", fmt.Errorf("failed to decode blob: %w", err)
	}
	return string(out), nil
}

// IsTextType reports whether payloads of the given MIME type are text that
// can be shown directly.
func IsTextType(mimeType string) bool {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	if mt == "" {
		return false
	}
	if strings.HasPrefix(mt, "text/") {
		return true
	}
	if strings.HasSuffix(mt, "+json") || strings.HasSuffix(mt, "+xml") {
		return true
	}
	switch mt {
	case "application/json",
		"application/xml",
		"application/javascript",
		"application/ecmascript",
		"application/x-javascript",
		"application/x-www-form-urlencoded":
		return true
	}
	return false
}
