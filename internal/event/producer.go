package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	pkgkafka "github.com/laocai-wudi/chunmpre.cn/pkg/kafka"
	"github.com/laocai-wudi/chunmpre.cn/pkg/logger"
)

// Kafka topics for catalog domain events.
const (
	TopicProductCreated  = "catalog.product.created"
	TopicProductUpdated  = "catalog.product.updated"
	TopicProductDeleted  = "catalog.product.deleted"
	TopicProductFeatured = "catalog.product.featured"
	TopicContactReceived = "catalog.contact.received"
)

// Aggregate types.
const (
	AggregateTypeProduct = "product"
	AggregateTypeContact = "contact"
)

// SourceCatalogService identifies events emitted by this service.
const SourceCatalogService = "catalog-service"

// ProductData is the payload of product.created and product.updated.
type ProductData struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CategoryID string    `json:"category_id"`
	Brand      string    `json:"brand,omitempty"`
	Price      *float64  `json:"price,omitempty"`
	Status     bool      `json:"status"`
	Featured   bool      `json:"is_featured"`
	HasImage   bool      `json:"has_image"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProductDeletedData is the payload of product.deleted.
type ProductDeletedData struct {
	ID            string `json:"id"`
	ImagesRemoved int    `json:"images_removed"`
}

// ProductFeaturedData is the payload of product.featured.
type ProductFeaturedData struct {
	ID       string `json:"id"`
	Featured bool   `json:"is_featured"`
}

// ContactReceivedData is the payload of contact.received. The message body
// stays in the catalog database.
type ContactReceivedData struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
}

// Producer publishes catalog domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates an event producer on top of publisher.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, AggregateTypeProduct, productData(product))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, AggregateTypeProduct, productData(product))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string, imagesRemoved int) error {
	return p.publish(ctx, TopicProductDeleted, id, AggregateTypeProduct,
		ProductDeletedData{ID: id, ImagesRemoved: imagesRemoved})
}

// PublishProductFeatured publishes a product.featured event for both marking
// and unmarking.
func (p *Producer) PublishProductFeatured(ctx context.Context, id string, featured bool) error {
	return p.publish(ctx, TopicProductFeatured, id, AggregateTypeProduct,
		ProductFeaturedData{ID: id, Featured: featured})
}

// PublishContactReceived publishes a contact.received event.
func (p *Producer) PublishContactReceived(ctx context.Context, c *domain.Contact) error {
	return p.publish(ctx, TopicContactReceived, c.ID, AggregateTypeContact, ContactReceivedData{
		ID:      c.ID,
		Name:    c.Name,
		Email:   c.Email,
		Subject: c.Subject,
	})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:         p.ID,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		Brand:      p.Brand,
		Price:      p.Price,
		Status:     p.Status,
		Featured:   p.Featured,
		HasImage:   p.HasImage,
		UpdatedAt:  p.UpdatedAt,
	}
}
