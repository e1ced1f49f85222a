package entities

import (
	"errors"
	"time"
)

// User represents a learner account
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubscriptionPlan is the plan a user picked on the paywall screen. The
// choice gates access to the call endpoint; it carries no billing effect.
type SubscriptionPlan string

const (
	PlanMonthly SubscriptionPlan = "monthly"
	PlanYearly  SubscriptionPlan = "yearly"
)

// Subscription records a user's current plan choice
type Subscription struct {
	UserID   string           `json:"user_id"`
	Plan     SubscriptionPlan `json:"plan"`
	ChosenAt time.Time        `json:"chosen_at"`
}

// Domain validation methods
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func (s *Subscription) Validate() error {
	if s.UserID == "" {
		return errors.New("user_id is required")
	}
	if s.Plan != PlanMonthly && s.Plan != PlanYearly {
		return errors.New("invalid subscription plan")
	}
	return nil
}
