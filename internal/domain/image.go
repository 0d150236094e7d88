package domain

import (
	"time"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
)

// ProductImage is one gallery image. Listings carry metadata only; Data is
// loaded when the image itself is requested.
type ProductImage struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mime_type"`
	Size         int       `json:"size"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	Data         []byte    `json:"-"`
}

// Ref returns the stored payload triple.
func (i *ProductImage) Ref() asset.Ref {
	return asset.Ref{Data: i.Data, Filename: i.Filename, MimeType: i.MimeType}
}

// ImageResult reports the outcome of one file of a multi-file upload.
type ImageResult struct {
	Filename string `json:"filename"`
	ImageID  string `json:"image_id,omitempty"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// UploadReport summarizes a multi-file upload. Files are stored
// independently, so some may fail while others succeed.
type UploadReport struct {
	Results   []ImageResult `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// Add records one result.
func (r *UploadReport) Add(res ImageResult) {
	if res.Err != nil {
		res.Error = res.Err.Error()
		r.Failed++
	} else {
		r.Succeeded++
	}
	r.Results = append(r.Results, res)
}
