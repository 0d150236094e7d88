package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

const maxCategoryName = 100

// CategoryService implements category management.
type CategoryService struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(repo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

// CreateCategoryInput holds the parameters for creating a category.
type CreateCategoryInput struct {
	Name        string
	Description string
}

// UpdateCategoryInput renames a category. A nil Description keeps the
// current one.
type UpdateCategoryInput struct {
	Name        string
	Description *string
}

// ListCategories returns every category, oldest first.
func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategory retrieves a category by its ID.
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// CreateCategory creates a category with a unique name.
func (s *CategoryService) CreateCategory(ctx context.Context, input *CreateCategoryInput) (*domain.Category, error) {
	name, err := categoryName(input.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &domain.Category{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", c.ID),
		slog.String("name", c.Name),
	)
	return c, nil
}

// UpdateCategory renames a category.
func (s *CategoryService) UpdateCategory(ctx context.Context, id string, input *UpdateCategoryInput) (*domain.Category, error) {
	name, err := categoryName(input.Name)
	if err != nil {
		return nil, err
	}
	var description *string
	if input.Description != nil {
		d := strings.TrimSpace(*input.Description)
		description = &d
	}

	c, err := s.repo.Rename(ctx, id, name, description)
	if err != nil {
		return nil, fmt.Errorf("rename category: %w", err)
	}

	s.logger.InfoContext(ctx, "category updated",
		slog.String("category_id", c.ID),
		slog.String("name", c.Name),
	)
	return c, nil
}

// DeleteCategory removes a category that no product references.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}

// SeedDefaults creates the default categories that do not exist yet and
// returns how many were created.
func (s *CategoryService) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, name := range domain.DefaultCategories {
		_, err := s.CreateCategory(ctx, &CreateCategoryInput{Name: name})
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperrors.ErrAlreadyExists):
		default:
			return created, err
		}
	}
	return created, nil
}

func categoryName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperrors.InvalidInput("category name is required")
	}
	if utf8.RuneCountInString(name) > maxCategoryName {
		return "", apperrors.InvalidInput(fmt.Sprintf("category name must be at most %d characters", maxCategoryName))
	}
	return name, nil
}
