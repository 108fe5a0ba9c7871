package middleware

import (
	"net/http"
	"strings"

	"marketplace-service/internal/model"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the opaque bearer token and loads the
// authenticated user into the request context
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("Missing Authorization header")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("Invalid Authorization header format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Look the token up; tokens are opaque and revoked by deletion
		var token model.AuthToken
		result := database.GetDB().Preload("User").Where("key = ?", parts[1]).First(&token)
		if result.Error != nil {
			log.Warn("Unknown or revoked token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or revoked token"})
		}

		if !token.User.IsActive {
			log.Warn("Token for inactive account", zap.Uint("user_id", token.UserID))
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is not active"})
		}

		// Store user info in context for later use
		c.Set("user", token.User)
		c.Set("user_id", token.UserID)
		c.Set("token_key", token.Key)

		return next(c)
	}
}

// ShopMiddleware gates partner endpoints to shop-role users. Must run
// after AuthMiddleware.
func ShopMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := c.Get("user").(model.User)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		if user.Role != model.RoleShop {
			logger.FromContext(c).Warn("Partner endpoint denied",
				zap.Uint("user_id", user.ID),
				zap.String("role", user.Role))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "shop role required"})
		}
		return next(c)
	}
}

// StaffMiddleware gates administrative endpoints. Must run after
// AuthMiddleware.
func StaffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := c.Get("user").(model.User)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		if !user.IsStaff {
			logger.FromContext(c).Warn("Admin endpoint denied", zap.Uint("user_id", user.ID))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "staff access required"})
		}
		return next(c)
	}
}

// GetUser retrieves the authenticated user from the context
func GetUser(c echo.Context) (model.User, bool) {
	user, ok := c.Get("user").(model.User)
	return user, ok
}
