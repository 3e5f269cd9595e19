package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
	pkgkafka "github.com/Lnando2k21/projetofinal/pkg/kafka"
)

// Topics published by the identity service.
const (
	TopicUserRegistered = "conectabairro.user.registered"
	TopicUserUpdated    = "conectabairro.user.updated"
)

// UserEventData is the account snapshot carried by user events.
type UserEventData struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// UserSyncer stores account snapshots in the local user mirror.
type UserSyncer interface {
	SyncUser(ctx context.Context, user *domain.User) error
}

// NewUserHandler returns a handler that mirrors user.registered and
// user.updated events. Malformed or invalid snapshots are logged and
// acknowledged; retrying them cannot succeed.
func NewUserHandler(syncer UserSyncer, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, event *pkgkafka.Event) error {
		switch event.EventType {
		case TopicUserRegistered, TopicUserUpdated:
		default:
			logger.DebugContext(ctx, "ignoring unrelated event",
				slog.String("event_type", event.EventType),
			)
			return nil
		}

		var data UserEventData
		if err := event.UnmarshalData(&data); err != nil {
			logger.WarnContext(ctx, "dropping undecodable user event",
				slog.String("event_id", event.EventID),
				slog.String("error", err.Error()),
			)
			return nil
		}

		now := time.Now().UTC()
		user := &domain.User{
			ID:        data.ID,
			Name:      data.Name,
			Email:     data.Email,
			Phone:     data.Phone,
			Role:      data.Role,
			Verified:  data.Verified,
			CreatedAt: data.CreatedAt,
			UpdatedAt: now,
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}

		if err := syncer.SyncUser(ctx, user); err != nil {
			if errors.Is(err, apperrors.ErrValidation) {
				logger.WarnContext(ctx, "dropping invalid user event",
					slog.String("event_id", event.EventID),
					slog.String("user_id", data.ID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			return fmt.Errorf("sync user %s: %w", data.ID, err)
		}
		return nil
	}
}
