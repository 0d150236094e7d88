package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestStore_SanitizesFilename(t *testing.T) {
	ref, err := Store(pngHeader, `C:\fakepath\Front View.PNG`, "image/png; charset=binary")
	require.NoError(t, err)

	assert.Equal(t, "front-view.png", ref.Filename)
	assert.Equal(t, "image/png", ref.MimeType)
	assert.Equal(t, pngHeader, ref.Data)
	assert.Equal(t, len(pngHeader), ref.Size())
}

func TestStore_KeepsDeclaredMimeType(t *testing.T) {
	ref, err := Store(pngHeader, "a.jpg", "")
	require.NoError(t, err)
	assert.Empty(t, ref.MimeType)

	ref, err = Store(pngHeader, "a.jpg", "Image/JPEG")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ref.MimeType)
}

func TestStore_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		filename string
	}{
		{"empty filename", pngHeader, "   "},
		{"nothing left after sanitizing", pngHeader, "???.png"},
		{"empty payload", nil, "a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Store(tt.payload, tt.filename, "image/png")
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestServe(t *testing.T) {
	d, err := Serve(Ref{Data: pngHeader, Filename: "probe.png", MimeType: "image/png"}, "product_1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/png", d.MimeType)
	assert.Equal(t, "probe.png", d.Filename)
}

func TestServe_Fallbacks(t *testing.T) {
	d, err := Serve(Ref{Data: []byte("GIF89a")}, ProductFallbackName("42"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMimeType, d.MimeType)
	assert.Equal(t, "product_42.jpg", d.Filename)
	assert.Equal(t, []byte("GIF89a"), d.Data)
}

func TestServe_EmptyPayloadIsNotFound(t *testing.T) {
	_, err := Serve(Ref{}, "x.jpg")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.True(t, Ref{Filename: "only-name.png"}.IsZero())
}

func TestPolicy_Check(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		filename string
		size     int64
		wantErr  bool
	}{
		{"png", "a.png", 1024, false},
		{"upper case jpg", "A.JPG", 1024, false},
		{"jpeg", "a.jpeg", 1024, false},
		{"gif", "a.gif", 1024, false},
		{"exactly 5 MiB", "a.png", 5 << 20, false},
		{"too large", "a.png", 5<<20 + 1, true},
		{"webp not allowed", "a.webp", 10, true},
		{"no extension", "image", 10, true},
		{"empty file", "a.png", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Check(tt.filename, tt.size)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
