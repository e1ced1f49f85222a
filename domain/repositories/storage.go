package repositories

import (
	"context"

	"github.com/satriahrh/wicara/domain/entities"
)

// SubscriptionStore keeps each user's current plan choice. In-memory only;
// the paywall has no persisted or billed effect.
type SubscriptionStore interface {
	Choose(ctx context.Context, userID string, plan entities.SubscriptionPlan) (*entities.Subscription, error)
	Get(ctx context.Context, userID string) (*entities.Subscription, error)
}
