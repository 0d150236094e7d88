// Package asset keeps uploaded image payloads together with the row that
// owns them and turns stored payloads back into downloads.
package asset

import (
	"fmt"
	"mime"
	"strings"

	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
	"github.com/laocai-wudi/chunmpre.cn/pkg/slug"
)

// DefaultMimeType is served when a stored image has no recorded type.
const DefaultMimeType = "image/jpeg"

// Ref is the (payload, filename, MIME type) triple persisted in the owning
// row. The zero Ref means "no image" and is persisted as NULLs.
type Ref struct {
	Data     []byte
	Filename string
	MimeType string
}

// IsZero reports whether r holds no payload.
func (r Ref) IsZero() bool {
	return len(r.Data) == 0
}

// Size returns the payload length in bytes.
func (r Ref) Size() int {
	return len(r.Data)
}

// Download is a payload ready to be streamed to a client.
type Download struct {
	Data     []byte
	MimeType string
	Filename string
}

// Store prepares an uploaded payload for persistence. The filename is reduced
// to a safe ASCII base name and the declared MIME type is kept without its
// parameters. Size and type policy is enforced by callers beforehand.
func Store(payload []byte, declaredFilename, declaredMimeType string) (Ref, error) {
	if strings.TrimSpace(declaredFilename) == "" {
		return Ref{}, apperrors.InvalidInput("filename is required")
	}
	name := slug.Filename(declaredFilename)
	if name == "" {
		return Ref{}, apperrors.InvalidInput(fmt.Sprintf("filename %q has no usable characters", declaredFilename))
	}
	if len(payload) == 0 {
		return Ref{}, apperrors.InvalidInput("image payload is empty")
	}

	return Ref{
		Data:     payload,
		Filename: name,
		MimeType: baseMimeType(declaredMimeType),
	}, nil
}

// Serve turns a stored Ref into a Download. The recorded MIME type is used
// as-is and the payload is never sniffed. fallbackName is used when the row
// has no filename, for example "product_<id>.jpg".
func Serve(ref Ref, fallbackName string) (*Download, error) {
	if ref.IsZero() {
		return nil, apperrors.NotFound("image", fallbackName)
	}

	d := &Download{
		Data:     ref.Data,
		MimeType: ref.MimeType,
		Filename: ref.Filename,
	}
	if d.MimeType == "" {
		d.MimeType = DefaultMimeType
	}
	if d.Filename == "" {
		d.Filename = fallbackName
	}
	return d, nil
}

// ProductFallbackName is the download name for a product image without a
// recorded filename.
func ProductFallbackName(id string) string {
	return "product_" + id + ".jpg"
}

func baseMimeType(declared string) string {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
		return mediaType
	}
	mediaType, _, _ := strings.Cut(declared, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}
