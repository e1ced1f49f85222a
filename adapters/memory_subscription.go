package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/satriahrh/wicara/domain/entities"
)

// MemorySubscriptionStore is an in-memory implementation of
// SubscriptionStore. The plan choice is pure UI state with no billing
// effect, so nothing is persisted.
type MemorySubscriptionStore struct {
	mu    sync.RWMutex
	plans map[string]*entities.Subscription // user_id -> subscription
}

// NewMemorySubscriptionStore creates a new in-memory subscription store
func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{
		plans: make(map[string]*entities.Subscription),
	}
}

// Choose records the user's plan choice, replacing any previous one
func (m *MemorySubscriptionStore) Choose(ctx context.Context, userID string, plan entities.SubscriptionPlan) (*entities.Subscription, error) {
	sub := &entities.Subscription{
		UserID:   userID,
		Plan:     plan,
		ChosenAt: time.Now(),
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[userID] = sub
	return sub, nil
}

// Get returns the user's current plan choice
func (m *MemorySubscriptionStore) Get(ctx context.Context, userID string) (*entities.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, exists := m.plans[userID]
	if !exists {
		return nil, errors.New("no subscription chosen")
	}
	return sub, nil
}
