package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/repositories"
	"github.com/satriahrh/wicara/internal/auth"
	"github.com/satriahrh/wicara/internal/websocket"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, subscriptions repositories.SubscriptionStore, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "wicara-server",
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := e.Group("/api/v1")

	// User Management APIs
	v1.POST("/users/login", func(c echo.Context) error {
		return userLogin(c, logger)
	})

	// Subscription gate: the plan choice only opens the call screen, it has
	// no billed or persisted effect.
	v1.POST("/subscription", func(c echo.Context) error {
		return chooseSubscription(c, subscriptions, logger)
	})
	v1.GET("/subscription", func(c echo.Context) error {
		return getSubscription(c, subscriptions)
	})

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, subscriptions, logger)
	})
}

// userLogin issues a token for the call screen. There is no account store;
// any email works and gets a fresh user ID.
func userLogin(c echo.Context, logger *zap.Logger) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Email is required",
		})
	}

	userID := uuid.NewString()
	token, err := auth.GenerateUserToken(userID, "")
	if err != nil {
		logger.Error("Failed to generate user token",
			zap.String("user_id", userID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	logger.Info("User logged in",
		zap.String("user_id", userID),
		zap.String("email", req.Email))

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
		UserID:    userID,
	})
}

func chooseSubscription(c echo.Context, subscriptions repositories.SubscriptionStore, logger *zap.Logger) error {
	claims, err := claimsFromHeader(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: err.Error(),
		})
	}

	var req SubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	sub, err := subscriptions.Choose(c.Request().Context(), claims.UserID, req.Plan)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_plan",
			Message: err.Error(),
		})
	}

	logger.Info("Subscription chosen",
		zap.String("user_id", claims.UserID),
		zap.String("plan", string(sub.Plan)))

	return c.JSON(http.StatusOK, SubscriptionResponse{
		Plan:     sub.Plan,
		ChosenAt: sub.ChosenAt,
	})
}

func getSubscription(c echo.Context, subscriptions repositories.SubscriptionStore) error {
	claims, err := claimsFromHeader(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: err.Error(),
		})
	}

	sub, err := subscriptions.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "no_subscription",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, SubscriptionResponse{
		Plan:     sub.Plan,
		ChosenAt: sub.ChosenAt,
	})
}

func claimsFromHeader(c echo.Context) (*auth.JWTClaims, error) {
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}
	if token == "" {
		// Browsers cannot set headers on WebSocket upgrades, so the token
		// may arrive as a query parameter instead.
		token = c.QueryParam("token")
	}
	if token == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "JWT token is required")
	}
	return auth.ValidateToken(token)
}

// websocketWithAuth handles WebSocket connections with JWT authentication.
// The call screen sits behind the subscription gate: no plan choice, no call.
func websocketWithAuth(hub *websocket.Hub, c echo.Context, subscriptions repositories.SubscriptionStore, logger *zap.Logger) error {
	claims, err := claimsFromHeader(c)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	if claims.UserID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "User ID not found in token",
		})
	}

	if _, err := subscriptions.Get(c.Request().Context(), claims.UserID); err != nil {
		logger.Warn("WebSocket connection rejected: no subscription",
			zap.String("user_id", claims.UserID))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "subscription_required",
			Message: "Choose a subscription plan before starting a call",
		})
	}

	logger.Info("WebSocket connection authenticated",
		zap.String("user_id", claims.UserID))

	return websocket.HandleWebSocketWithAuth(hub, c, claims.UserID, logger)
}
