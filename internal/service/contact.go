package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/event"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	"github.com/laocai-wudi/chunmpre.cn/pkg/pagination"
	"github.com/laocai-wudi/chunmpre.cn/pkg/validator"
)

// ContactService implements the contact inbox.
type ContactService struct {
	repo           repository.ContactRepository
	producer       *event.Producer
	defaultPerPage int
	logger         *slog.Logger
}

// NewContactService creates a new contact service.
func NewContactService(repo repository.ContactRepository, producer *event.Producer, defaultPerPage int, logger *slog.Logger) *ContactService {
	if defaultPerPage <= 0 {
		defaultPerPage = DefaultAdminPerPage
	}
	return &ContactService{
		repo:           repo,
		producer:       producer,
		defaultPerPage: defaultPerPage,
		logger:         logger,
	}
}

// ContactInput is a message submitted through the public contact form.
// Every field is required after trimming.
type ContactInput struct {
	Name    string `json:"name" validate:"notblank,max=100"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone" validate:"notblank,max=50"`
	Subject string `json:"subject" validate:"notblank,max=200"`
	Message string `json:"message" validate:"notblank"`
}

func (in *ContactInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
}

// CreateContact stores a contact message.
func (s *ContactService) CreateContact(ctx context.Context, input *ContactInput) (*domain.Contact, error) {
	input.trim()
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	c := &domain.Contact{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Subject:   input.Subject,
		Message:   input.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}

	if err := s.producer.PublishContactReceived(ctx, c); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish contact.received event",
			slog.String("contact_id", c.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "contact received", slog.String("contact_id", c.ID))
	return c, nil
}

// ListContacts returns one page of messages, newest first.
func (s *ContactService) ListContacts(ctx context.Context, page, perPage int) (pagination.Result[domain.Contact], error) {
	params := pagination.NewParams(page, perPage, s.defaultPerPage)
	contacts, total, err := s.repo.List(ctx, params)
	if err != nil {
		return pagination.Result[domain.Contact]{}, fmt.Errorf("list contacts: %w", err)
	}
	return pagination.NewResult(contacts, total, params), nil
}

// GetContact returns a message and marks it read.
func (s *ContactService) GetContact(ctx context.Context, id string) (*domain.Contact, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	if !c.IsRead {
		if err := s.repo.MarkRead(ctx, id); err != nil {
			return nil, fmt.Errorf("mark contact read: %w", err)
		}
		c.IsRead = true
	}
	return c, nil
}

// MarkRead marks one message read.
func (s *ContactService) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("mark contact read: %w", err)
	}
	return nil
}

// MarkAllRead marks every message read and returns how many changed.
func (s *ContactService) MarkAllRead(ctx context.Context) (int, error) {
	n, err := s.repo.MarkAllRead(ctx)
	if err != nil {
		return 0, fmt.Errorf("mark all contacts read: %w", err)
	}
	s.logger.InfoContext(ctx, "contacts marked read", slog.Int("count", n))
	return n, nil
}

// DeleteContact removes a message.
func (s *ContactService) DeleteContact(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	s.logger.InfoContext(ctx, "contact deleted", slog.String("contact_id", id))
	return nil
}

// forEachContact walks every message newest first, one page at a time.
func (s *ContactService) forEachContact(ctx context.Context, fn func(domain.Contact) error) error {
	for page := 1; ; page++ {
		params := pagination.NewParams(page, pagination.MaxPerPage, pagination.MaxPerPage)
		contacts, total, err := s.repo.List(ctx, params)
		if err != nil {
			return fmt.Errorf("list contacts: %w", err)
		}
		for _, c := range contacts {
			if err := fn(c); err != nil {
				return err
			}
		}
		if len(contacts) == 0 || params.Offset+len(contacts) >= total {
			return nil
		}
	}
}
