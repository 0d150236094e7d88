package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
	"github.com/laocai-wudi/chunmpre.cn/pkg/validator"
)

// PageService manages the editable page slots of the storefront.
type PageService struct {
	repo   repository.PageContentRepository
	policy asset.Policy
	logger *slog.Logger
}

// NewPageService creates a new page content service.
func NewPageService(repo repository.PageContentRepository, policy asset.Policy, logger *slog.Logger) *PageService {
	return &PageService{repo: repo, policy: policy, logger: logger}
}

// GetPage returns the slot stored under key.
func (s *PageService) GetPage(ctx context.Context, key string) (*domain.PageContent, error) {
	pc, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get page content: %w", err)
	}
	return pc, nil
}

// ListPages returns every slot ordered by key.
func (s *PageService) ListPages(ctx context.Context) ([]domain.PageContent, error) {
	pages, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list page content: %w", err)
	}
	return pages, nil
}

// GetText returns the text of a slot, or def when the slot is missing,
// holds an image or cannot be read.
func (s *PageService) GetText(ctx context.Context, key, def string) string {
	pc, err := s.repo.Get(ctx, key)
	if err != nil {
		s.logMissing(ctx, key, err)
		return def
	}
	if pc.ContentType == domain.ContentTypeImage {
		return def
	}
	return pc.ContentValue
}

// GetJSON decodes a json slot into target and reports whether it did.
// target keeps its prior value, the caller's default, otherwise.
func (s *PageService) GetJSON(ctx context.Context, key string, target any) bool {
	pc, err := s.repo.Get(ctx, key)
	if err != nil {
		s.logMissing(ctx, key, err)
		return false
	}
	if !pc.JSONValue(target) {
		s.logger.WarnContext(ctx, "page content is not valid json",
			slog.String("page_key", key),
			slog.String("content_type", pc.ContentType),
		)
		return false
	}
	return true
}

func (s *PageService) logMissing(ctx context.Context, key string, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		return
	}
	s.logger.ErrorContext(ctx, "failed to load page content",
		slog.String("page_key", key),
		slog.String("error", err.Error()),
	)
}

// SetContent writes a text, richtext or json slot. A json value must parse.
func (s *PageService) SetContent(ctx context.Context, key, contentType, value string) (*domain.PageContent, error) {
	if !validator.ValidPageKey(key) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid page key %q", key))
	}
	if contentType == "" {
		contentType = domain.ContentTypeText
	}
	switch contentType {
	case domain.ContentTypeText, domain.ContentTypeRichText:
	case domain.ContentTypeJSON:
		if !json.Valid([]byte(value)) {
			return nil, apperrors.InvalidInput("content_value is not valid json")
		}
	case domain.ContentTypeImage:
		return nil, apperrors.InvalidInput("image slots are set by uploading a file")
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown content_type %q", contentType))
	}

	pc := &domain.PageContent{
		PageKey:      key,
		ContentType:  contentType,
		ContentValue: value,
	}
	if err := s.repo.Upsert(ctx, pc); err != nil {
		return nil, fmt.Errorf("save page content: %w", err)
	}

	s.logger.InfoContext(ctx, "page content saved",
		slog.String("page_key", key),
		slog.String("content_type", contentType),
	)
	return pc, nil
}

// SetImage stores an uploaded image in a slot.
func (s *PageService) SetImage(ctx context.Context, key string, upload Upload) (*domain.PageContent, error) {
	if !validator.ValidPageKey(key) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid page key %q", key))
	}
	ref, err := prepareUpload(s.policy, upload)
	if err != nil {
		return nil, err
	}

	pc, err := s.repo.SetImage(ctx, key, ref)
	if err != nil {
		return nil, fmt.Errorf("save page image: %w", err)
	}

	s.logger.InfoContext(ctx, "page image saved",
		slog.String("page_key", key),
		slog.String("filename", ref.Filename),
	)
	return pc, nil
}

// Image returns the image of a slot by slot id.
func (s *PageService) Image(ctx context.Context, id string) (*asset.Download, error) {
	ref, err := s.repo.GetImage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get page image: %w", err)
	}
	return asset.Serve(ref, "page_"+id+".jpg")
}
