package domain

import (
	"encoding/json"
	"time"
)

// Page content types.
const (
	ContentTypeText     = "text"
	ContentTypeRichText = "richtext"
	ContentTypeJSON     = "json"
	ContentTypeImage    = "image"
)

// IsValidContentType reports whether t is one of the four content types.
func IsValidContentType(t string) bool {
	switch t {
	case ContentTypeText, ContentTypeRichText, ContentTypeJSON, ContentTypeImage:
		return true
	}
	return false
}

// PageContent is an editable storefront slot addressed by a unique key,
// for example "home.hero_title" or "about.banner".
type PageContent struct {
	ID            string    `json:"id"`
	PageKey       string    `json:"page_key"`
	ContentType   string    `json:"content_type"`
	ContentValue  string    `json:"content_value,omitempty"`
	ImageFilename string    `json:"image_filename,omitempty"`
	ImageMimeType string    `json:"image_mime_type,omitempty"`
	HasImage      bool      `json:"has_image"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// JSONValue decodes ContentValue into target. It reports false when the
// slot is not JSON or does not decode.
func (p *PageContent) JSONValue(target any) bool {
	if p.ContentType != ContentTypeJSON || p.ContentValue == "" {
		return false
	}
	return json.Unmarshal([]byte(p.ContentValue), target) == nil
}
