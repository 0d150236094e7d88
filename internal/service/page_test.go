package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

func TestPageService_TypedDefaults(t *testing.T) {
	tc := newTestCatalog(t)
	ctx := context.Background()

	assert.Equal(t, "欢迎", tc.Pages.GetText(ctx, "home.hero_title", "欢迎"))

	contact := struct {
		Phone string `json:"phone"`
	}{Phone: "400-000-0000"}
	assert.False(t, tc.Pages.GetJSON(ctx, "contact.info", &contact))
	assert.Equal(t, "400-000-0000", contact.Phone)

	_, err := tc.Pages.SetContent(ctx, "home.hero_title", domain.ContentTypeText, "精密测量专家")
	require.NoError(t, err)
	assert.Equal(t, "精密测量专家", tc.Pages.GetText(ctx, "home.hero_title", "欢迎"))

	_, err = tc.Pages.SetContent(ctx, "contact.info", domain.ContentTypeJSON, `{"phone":"400-800-1234"}`)
	require.NoError(t, err)
	assert.True(t, tc.Pages.GetJSON(ctx, "contact.info", &contact))
	assert.Equal(t, "400-800-1234", contact.Phone)
}

func TestPageService_SetContentValidation(t *testing.T) {
	tc := newTestCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name, key, contentType, value string
	}{
		{"bad key", "Home Title", domain.ContentTypeText, "x"},
		{"broken json", "home.stats", domain.ContentTypeJSON, "{broken"},
		{"image through text api", "home.banner", domain.ContentTypeImage, ""},
		{"unknown type", "home.body", "html", "<p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tc.Pages.SetContent(ctx, tt.key, tt.contentType, tt.value)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestPageService_ImageSlot(t *testing.T) {
	tc := newTestCatalog(t)
	ctx := context.Background()

	_, err := tc.Pages.SetContent(ctx, "home.banner", domain.ContentTypeRichText, "<b>旧</b>")
	require.NoError(t, err)

	pc, err := tc.Pages.SetImage(ctx, "home.banner", pngUpload("banner.png"))
	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypeImage, pc.ContentType)
	assert.True(t, pc.HasImage)
	assert.Equal(t, "fallback", tc.Pages.GetText(ctx, "home.banner", "fallback"))

	dl, err := tc.Pages.Image(ctx, pc.ID)
	require.NoError(t, err)
	assert.Equal(t, "banner.png", dl.Filename)
	assert.Equal(t, "image/png", dl.MimeType)

	_, err = tc.Pages.SetImage(ctx, "home.banner", Upload{Filename: "banner.svg", Data: []byte("<svg/>")})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = tc.Pages.Image(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
