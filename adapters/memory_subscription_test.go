package adapters

import (
	"context"
	"testing"

	"github.com/satriahrh/wicara/domain/entities"
)

func TestMemorySubscriptionStore(t *testing.T) {
	store := NewMemorySubscriptionStore()
	ctx := context.Background()

	// No choice yet.
	if _, err := store.Get(ctx, "user-1"); err == nil {
		t.Error("Expected error for user with no subscription")
	}

	sub, err := store.Choose(ctx, "user-1", entities.PlanMonthly)
	if err != nil {
		t.Fatalf("Choose failed: %v", err)
	}
	if sub.Plan != entities.PlanMonthly {
		t.Errorf("Expected monthly plan, got %s", sub.Plan)
	}
	if sub.ChosenAt.IsZero() {
		t.Error("Expected ChosenAt to be stamped")
	}

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Plan != entities.PlanMonthly {
		t.Errorf("Expected monthly plan, got %s", got.Plan)
	}

	// Choosing again replaces the previous plan.
	if _, err := store.Choose(ctx, "user-1", entities.PlanYearly); err != nil {
		t.Fatalf("Second Choose failed: %v", err)
	}
	got, err = store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get after replace failed: %v", err)
	}
	if got.Plan != entities.PlanYearly {
		t.Errorf("Expected yearly plan after replace, got %s", got.Plan)
	}
}

func TestMemorySubscriptionStore_InvalidPlan(t *testing.T) {
	store := NewMemorySubscriptionStore()

	if _, err := store.Choose(context.Background(), "user-1", "weekly"); err == nil {
		t.Error("Expected invalid plan to be rejected")
	}
	// A rejected choice must not be recorded.
	if _, err := store.Get(context.Background(), "user-1"); err == nil {
		t.Error("Expected no subscription after rejected choice")
	}
}
