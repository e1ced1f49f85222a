package api

import (
	"time"

	"github.com/satriahrh/wicara/domain/entities"
)

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the response payload for user login
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

// SubscriptionRequest represents the plan choice payload
type SubscriptionRequest struct {
	Plan entities.SubscriptionPlan `json:"plan"`
}

// SubscriptionResponse represents the current plan choice
type SubscriptionResponse struct {
	Plan     entities.SubscriptionPlan `json:"plan"`
	ChosenAt time.Time                 `json:"chosen_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
