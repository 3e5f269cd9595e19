package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	pkgkafka "github.com/Lnando2k21/projetofinal/pkg/kafka"
)

// Kafka topics for marketplace domain events.
const (
	TopicRequestCreated       = "conectabairro.request.created"
	TopicRequestStatusChanged = "conectabairro.request.status_changed"
	TopicReviewCreated        = "conectabairro.review.created"
	TopicReviewUpdated        = "conectabairro.review.updated"
	TopicReviewDeleted        = "conectabairro.review.deleted"
	TopicServiceRatingChanged = "conectabairro.service.rating_changed"
)

// Aggregate types.
const (
	AggregateTypeRequest = "service_request"
	AggregateTypeReview  = "review"
	AggregateTypeService = "service"
)

// SourceMarketplace identifies events originating from this service.
const SourceMarketplace = "marketplace-service"

// RequestCreatedData is the payload for a request.created event.
type RequestCreatedData struct {
	RequestID     string  `json:"request_id"`
	ServiceID     string  `json:"service_id"`
	CustomerID    string  `json:"customer_id"`
	ProviderID    string  `json:"provider_id,omitempty"`
	Status        string  `json:"status"`
	TotalPrice    float64 `json:"total_price"`
	ScheduledDate string  `json:"scheduled_date,omitempty"`
}

// RequestStatusChangedData is the payload for a request.status_changed event.
type RequestStatusChangedData struct {
	RequestID  string `json:"request_id"`
	ServiceID  string `json:"service_id"`
	CustomerID string `json:"customer_id"`
	OldStatus  string `json:"old_status"`
	NewStatus  string `json:"new_status"`
	ActorID    string `json:"actor_id"`
	Version    int    `json:"version"`
}

// ReviewData is the payload for review.created, review.updated and
// review.deleted events.
type ReviewData struct {
	ReviewID   string `json:"review_id"`
	RequestID  string `json:"request_id"`
	ServiceID  string `json:"service_id"`
	ReviewerID string `json:"reviewer_id"`
	Rating     int    `json:"rating"`
}

// RatingChangedData is the payload for a service.rating_changed event.
type RatingChangedData struct {
	ServiceID      string        `json:"service_id"`
	ProviderID     string        `json:"provider_id"`
	ServiceRating  domain.Rating `json:"service_rating"`
	ProviderRating domain.Rating `json:"provider_rating"`
}

// Producer publishes marketplace domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishRequestCreated publishes a request.created event.
func (p *Producer) PublishRequestCreated(ctx context.Context, req *domain.ServiceRequest) error {
	data := RequestCreatedData{
		RequestID:  req.ID,
		ServiceID:  req.ServiceID,
		CustomerID: req.CustomerID,
		ProviderID: req.ProviderID,
		Status:     req.Status,
		TotalPrice: req.TotalPrice,
	}
	if req.ScheduledDate != nil {
		data.ScheduledDate = req.ScheduledDate.UTC().Format(time.RFC3339)
	}
	return p.publish(ctx, TopicRequestCreated, req.ID, AggregateTypeRequest, data)
}

// PublishRequestStatusChanged publishes a request.status_changed event.
func (p *Producer) PublishRequestStatusChanged(ctx context.Context, req *domain.ServiceRequest, oldStatus, actorID string) error {
	return p.publish(ctx, TopicRequestStatusChanged, req.ID, AggregateTypeRequest, RequestStatusChangedData{
		RequestID:  req.ID,
		ServiceID:  req.ServiceID,
		CustomerID: req.CustomerID,
		OldStatus:  oldStatus,
		NewStatus:  req.Status,
		ActorID:    actorID,
		Version:    req.Version,
	})
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, rv *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, rv.ID, AggregateTypeReview, reviewData(rv))
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, rv *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, rv.ID, AggregateTypeReview, reviewData(rv))
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, rv *domain.Review) error {
	return p.publish(ctx, TopicReviewDeleted, rv.ID, AggregateTypeReview, reviewData(rv))
}

// PublishServiceRatingChanged publishes the recomputed aggregates of a
// service and its provider.
func (p *Producer) PublishServiceRatingChanged(ctx context.Context, serviceID, providerID string, service, provider domain.Rating) error {
	return p.publish(ctx, TopicServiceRatingChanged, serviceID, AggregateTypeService, RatingChangedData{
		ServiceID:      serviceID,
		ProviderID:     providerID,
		ServiceRating:  service,
		ProviderRating: provider,
	})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, event.Stamp(ctx)); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published domain event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func reviewData(rv *domain.Review) ReviewData {
	return ReviewData{
		ReviewID:   rv.ID,
		RequestID:  rv.RequestID,
		ServiceID:  rv.ServiceID,
		ReviewerID: rv.ReviewerID,
		Rating:     rv.Rating,
	}
}

// NopPublisher discards every event. It stands in for Producer when Kafka is
// disabled.
type NopPublisher struct{}

func (NopPublisher) PublishRequestCreated(context.Context, *domain.ServiceRequest) error { return nil }

func (NopPublisher) PublishRequestStatusChanged(context.Context, *domain.ServiceRequest, string, string) error {
	return nil
}

func (NopPublisher) PublishReviewCreated(context.Context, *domain.Review) error { return nil }
func (NopPublisher) PublishReviewUpdated(context.Context, *domain.Review) error { return nil }
func (NopPublisher) PublishReviewDeleted(context.Context, *domain.Review) error { return nil }

func (NopPublisher) PublishServiceRatingChanged(context.Context, string, string, domain.Rating, domain.Rating) error {
	return nil
}
