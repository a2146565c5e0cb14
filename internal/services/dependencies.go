package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

// Dependencies are shared by every service
type Dependencies struct {
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Publisher events.EventPublisher
	Cache     *cache.CacheManager
	Policy    Policy
	Clock     func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Validator == nil {
		d.Validator = validator.New()
	}
	if d.Publisher == nil {
		d.Publisher = events.NewMockEventPublisher(d.Logger)
	}
	if d.Cache == nil {
		d.Cache = cache.NewCacheManager(nil)
	}
	if d.Policy == nil {
		d.Policy = NewRolePolicy(nil)
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// publish sends events after the transaction committed. Failures are logged
// and never reach the caller.
func (d Dependencies) publish(ctx context.Context, pending []*events.Event) {
	for _, event := range pending {
		if err := d.Publisher.Publish(ctx, event); err != nil {
			d.Logger.Error("Failed to publish event",
				"event_type", event.Type,
				"event_id", event.ID,
				"error", err)
		}
	}
}

// validate runs struct tag validation and maps failures to ErrInvalidArgument.
func (d Dependencies) validate(req any) error {
	if err := d.Validator.Validate(req); err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			return invalidArgument(verrs)
		}
		return err
	}
	return nil
}
