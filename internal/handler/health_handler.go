package handler

import (
	"net/http"

	"marketplace-service/pkg/database"

	"github.com/labstack/echo/v4"
)

// Health reports service and database liveness
func Health(c echo.Context) error {
	sqlDB, err := database.GetDB().DB()
	if err != nil || sqlDB.Ping() != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
