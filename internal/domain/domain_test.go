package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
)

func TestProduct_JSONKeepsSpecOrder(t *testing.T) {
	p := Product{
		ID:             "p1",
		Name:           "激光干涉仪 XL-80",
		TechnicalSpecs: codec.NewMapping("测量范围", "80m", "精度", "±0.5ppm"),
	}
	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"technical_specs":{"测量范围":"80m","精度":"±0.5ppm"}`)
	assert.Contains(t, string(out), `"tab_contents":{}`)
}

func TestImageChange(t *testing.T) {
	assert.True(t, ImageChange{}.Keep())
	assert.False(t, RemoveImage().Keep())

	c := ReplaceImage(asset.Ref{Data: []byte{1}, Filename: "a.png"})
	assert.True(t, c.Set)
	assert.Equal(t, "a.png", c.Ref.Filename)
}

func TestUploadReport_Add(t *testing.T) {
	var r UploadReport
	r.Add(ImageResult{Filename: "a.png", ImageID: "i1"})
	r.Add(ImageResult{Filename: "b.bmp", Err: errors.New("file type not allowed")})

	assert.Equal(t, 1, r.Succeeded)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, "file type not allowed", r.Results[1].Error)
}

func TestPageContent_JSONValue(t *testing.T) {
	var contact struct {
		Phone string `json:"phone"`
	}

	p := PageContent{ContentType: ContentTypeJSON, ContentValue: `{"phone":"400-800-1234"}`}
	assert.True(t, p.JSONValue(&contact))
	assert.Equal(t, "400-800-1234", contact.Phone)

	p.ContentValue = "{broken"
	assert.False(t, p.JSONValue(&contact))

	p = PageContent{ContentType: ContentTypeText, ContentValue: `{"phone":"x"}`}
	assert.False(t, p.JSONValue(&contact))
}

func TestIsValidContentType(t *testing.T) {
	for _, ct := range []string{"text", "richtext", "json", "image"} {
		assert.True(t, IsValidContentType(ct), ct)
	}
	assert.False(t, IsValidContentType("html"))
}

func TestProductImage_Ref(t *testing.T) {
	img := ProductImage{Filename: "x.gif", MimeType: "image/gif", Data: []byte("GIF89a")}
	assert.Equal(t, asset.Ref{Data: []byte("GIF89a"), Filename: "x.gif", MimeType: "image/gif"}, img.Ref())
}
