package handler

import (
	"errors"
	"net/http"

	"marketplace-service/internal/middleware"
	"marketplace-service/internal/model"
	"marketplace-service/internal/service"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// BasketRequest defines the basket POST/PUT payload
type BasketRequest struct {
	Items []service.BasketItem `json:"items"`
}

func basketResponse(basket *model.Order) echo.Map {
	if basket == nil {
		return echo.Map{
			"items":       []model.OrderItem{},
			"total_price": 0,
		}
	}
	return echo.Map{
		"id":          basket.ID,
		"status":      basket.Status,
		"items":       basket.Items,
		"total_price": basket.TotalPrice(),
	}
}

// businessError translates service-layer failures into JSON responses
func businessError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNoBasket),
		errors.Is(err, service.ErrContactRequired),
		errors.Is(err, service.ErrUnknownStatus):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrContactNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrShopNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}

	var itemErrors service.ItemErrors
	if errors.As(err, &itemErrors) {
		return c.JSON(http.StatusBadRequest, echo.Map{"items": itemErrors})
	}
	var fieldErrors service.FieldErrors
	if errors.As(err, &fieldErrors) {
		return c.JSON(http.StatusBadRequest, fieldErrors)
	}
	var transitionError *service.TransitionError
	if errors.As(err, &transitionError) {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": transitionError.Error()})
	}
	var stockError *service.StockError
	if errors.As(err, &stockError) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": stockError.Error()})
	}

	logger.FromContext(c).Error("Unexpected service error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

// GetBasket returns the caller's basket with its computed total
func GetBasket(c echo.Context) error {
	user, _ := middleware.GetUser(c)

	basket, err := service.GetBasket(database.GetDB(), user.ID)
	if err != nil {
		return businessError(c, err)
	}
	return c.JSON(http.StatusOK, basketResponse(basket))
}

// PostBasket adds items to the caller's basket, creating it if needed
func PostBasket(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.GetUser(c)
	prometheus.RecordBasketOperation("add")

	var req BasketRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"items": "this field is required"})
	}

	basket, err := service.AddToBasket(database.GetDB(), user.ID, req.Items)
	if err != nil {
		return businessError(c, err)
	}

	log.Info("Basket updated",
		zap.Uint("user_id", user.ID),
		zap.Uint("order_id", basket.ID),
		zap.Int("items", len(basket.Items)))
	return c.JSON(http.StatusOK, basketResponse(basket))
}

// PutBasket replaces the basket contents with the payload
func PutBasket(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.GetUser(c)
	prometheus.RecordBasketOperation("replace")

	var req BasketRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"items": "this field is required"})
	}

	basket, err := service.ReplaceBasket(database.GetDB(), user.ID, req.Items)
	if err != nil {
		return businessError(c, err)
	}

	log.Info("Basket replaced",
		zap.Uint("user_id", user.ID),
		zap.Uint("order_id", basket.ID),
		zap.Int("items", len(basket.Items)))
	return c.JSON(http.StatusOK, basketResponse(basket))
}

// DeleteBasket removes the caller's basket; a missing basket is fine
func DeleteBasket(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.GetUser(c)
	prometheus.RecordBasketOperation("clear")

	if err := service.ClearBasket(database.GetDB(), user.ID); err != nil {
		return businessError(c, err)
	}

	log.Info("Basket cleared", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "basket cleared"})
}
