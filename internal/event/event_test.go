package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
	pkgkafka "github.com/Lnando2k21/projetofinal/pkg/kafka"
	"github.com/Lnando2k21/projetofinal/pkg/logger"
)

type captureWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProducer(w *captureWriter) *Producer {
	l := newTestLogger()
	return NewProducer(pkgkafka.NewProducerWithWriter(w, nil, l), l)
}

func decode[T any](t *testing.T, msg kafka.Message) (*pkgkafka.Event, T) {
	t.Helper()
	evt, err := pkgkafka.UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	var data T
	require.NoError(t, evt.UnmarshalData(&data))
	return evt, data
}

// --- Producer ---

func TestProducer_RequestStatusChanged(t *testing.T) {
	w := &captureWriter{}
	p := newTestProducer(w)

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ctx = logger.WithActor(ctx, "prov-1", domain.RoleProvider)

	req := &domain.ServiceRequest{ID: "req-1", ServiceID: "svc-1", CustomerID: "cust-1", Status: domain.RequestStatusAccepted, Version: 2}
	require.NoError(t, p.PublishRequestStatusChanged(ctx, req, domain.RequestStatusPending, "prov-1"))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, TopicRequestStatusChanged, msg.Topic)
	assert.Equal(t, "req-1", string(msg.Key))

	evt, data := decode[RequestStatusChangedData](t, msg)
	assert.Equal(t, SourceMarketplace, evt.Source)
	assert.Equal(t, AggregateTypeRequest, evt.AggregateType)
	assert.Equal(t, "corr-1", evt.CorrelationID)
	assert.Equal(t, "prov-1", evt.ActorID())
	assert.Equal(t, domain.RoleProvider, evt.Metadata[pkgkafka.MetadataActorRole])
	assert.Equal(t, domain.RequestStatusPending, data.OldStatus)
	assert.Equal(t, domain.RequestStatusAccepted, data.NewStatus)
	assert.Equal(t, 2, data.Version)
}

func TestProducer_RequestCreated(t *testing.T) {
	w := &captureWriter{}
	p := newTestProducer(w)
	when := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

	req := &domain.ServiceRequest{ID: "req-1", ServiceID: "svc-1", CustomerID: "cust-1", Status: domain.RequestStatusPending, TotalPrice: 50, ScheduledDate: &when}
	require.NoError(t, p.PublishRequestCreated(context.Background(), req))

	_, data := decode[RequestCreatedData](t, w.msgs[0])
	assert.Equal(t, 50.0, data.TotalPrice)
	assert.Equal(t, "2026-05-02T09:30:00Z", data.ScheduledDate)
}

func TestProducer_ReviewAndRatingEvents(t *testing.T) {
	w := &captureWriter{}
	p := newTestProducer(w)
	ctx := context.Background()
	rv := &domain.Review{ID: "rev-1", RequestID: "req-1", ServiceID: "svc-1", ReviewerID: "cust-1", Rating: 4}

	require.NoError(t, p.PublishReviewCreated(ctx, rv))
	require.NoError(t, p.PublishReviewUpdated(ctx, rv))
	require.NoError(t, p.PublishReviewDeleted(ctx, rv))
	require.NoError(t, p.PublishServiceRatingChanged(ctx, "svc-1", "prov-1",
		domain.Rating{Average: 4, Count: 3}, domain.Rating{Average: 4.5, Count: 6}))

	require.Len(t, w.msgs, 4)
	topics := []string{w.msgs[0].Topic, w.msgs[1].Topic, w.msgs[2].Topic, w.msgs[3].Topic}
	assert.Equal(t, []string{TopicReviewCreated, TopicReviewUpdated, TopicReviewDeleted, TopicServiceRatingChanged}, topics)

	_, rating := decode[RatingChangedData](t, w.msgs[3])
	assert.Equal(t, domain.Rating{Average: 4, Count: 3}, rating.ServiceRating)
	assert.Equal(t, 6, rating.ProviderRating.Count)
}

func TestProducer_PublishError(t *testing.T) {
	w := &captureWriter{err: errors.New("broker down")}
	p := newTestProducer(w)

	err := p.PublishReviewCreated(context.Background(), &domain.Review{ID: "rev-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), TopicReviewCreated)
}

// --- User handler ---

type fakeSyncer struct {
	users []*domain.User
	err   error
}

func (f *fakeSyncer) SyncUser(_ context.Context, u *domain.User) error {
	if f.err != nil {
		return f.err
	}
	f.users = append(f.users, u)
	return nil
}

func userEvent(t *testing.T, eventType string, data any) *pkgkafka.Event {
	t.Helper()
	evt, err := pkgkafka.NewEvent(eventType, "user-1", "user", "identity-service", data)
	require.NoError(t, err)
	return evt
}

func TestUserHandler_Syncs(t *testing.T) {
	s := &fakeSyncer{}
	h := NewUserHandler(s, newTestLogger())
	created := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	err := h(context.Background(), userEvent(t, TopicUserRegistered, UserEventData{
		ID: "user-1", Name: "Ana", Email: "ana@example.com", Role: domain.RoleProvider, CreatedAt: created,
	}))
	require.NoError(t, err)
	require.Len(t, s.users, 1)
	assert.Equal(t, "Ana", s.users[0].Name)
	assert.Equal(t, created, s.users[0].CreatedAt)
	assert.False(t, s.users[0].UpdatedAt.IsZero())
}

func TestUserHandler_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		data      any
		syncErr   error
		wantErr   bool
		synced    int
	}{
		{"unrelated event ignored", "conectabairro.user.deleted", UserEventData{ID: "user-1"}, nil, false, 0},
		{"undecodable payload dropped", TopicUserUpdated, "not an object", nil, false, 0},
		{"invalid snapshot dropped", TopicUserUpdated, UserEventData{ID: "user-1"}, apperrors.Validation("bad role"), false, 0},
		{"store failure retried", TopicUserUpdated, UserEventData{ID: "user-1"}, errors.New("db down"), true, 0},
		{"update synced", TopicUserUpdated, UserEventData{ID: "user-1", Role: domain.RoleCustomer}, nil, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSyncer{err: tt.syncErr}
			h := NewUserHandler(s, newTestLogger())

			err := h(context.Background(), userEvent(t, tt.eventType, tt.data))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, s.users, tt.synced)
		})
	}
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	ctx := context.Background()
	assert.NoError(t, p.PublishRequestCreated(ctx, &domain.ServiceRequest{}))
	assert.NoError(t, p.PublishServiceRatingChanged(ctx, "s", "p", domain.Rating{}, domain.Rating{}))
}
