package handler

import (
	"net/http"
	"strconv"

	"marketplace-service/internal/middleware"
	"marketplace-service/internal/model"
	"marketplace-service/internal/service"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ConfirmOrderRequest carries the delivery contact for confirmation:
// either inline fields or a stored contact id
type ConfirmOrderRequest struct {
	ContactID *uint                 `json:"contact_id"`
	Contact   *service.ContactInput `json:"contact"`
}

type orderResponse struct {
	model.Order
	TotalPrice float64 `json:"total_price"`
}

// ConfirmOrder promotes the caller's basket to a new order
func ConfirmOrder(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.GetUser(c)

	var req ConfirmOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	order, err := service.Confirm(database.GetDB(), user.ID, req.ContactID, req.Contact)
	if err != nil {
		return businessError(c, err)
	}

	prometheus.RecordStatusTransition(model.StatusNew)
	log.Info("Order confirmed",
		zap.Uint("user_id", user.ID),
		zap.Uint("order_id", order.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"order_id":    order.ID,
		"status":      order.Status,
		"total_price": order.TotalPrice(),
	})
}

// ListOrders returns the caller's placed orders
func ListOrders(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.GetUser(c)

	orders, err := service.ListOrders(database.GetDB(), user.ID)
	if err != nil {
		log.Error("Failed to list orders", zap.Uint("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve orders"})
	}

	response := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, orderResponse{Order: order, TotalPrice: order.TotalPrice()})
	}
	return c.JSON(http.StatusOK, response)
}

// GetOrder returns one of the caller's placed orders
func GetOrder(c echo.Context) error {
	user, _ := middleware.GetUser(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	order, err := service.GetOrder(database.GetDB(), user.ID, uint(id))
	if err != nil {
		return businessError(c, err)
	}
	return c.JSON(http.StatusOK, orderResponse{Order: *order, TotalPrice: order.TotalPrice()})
}

// SetOrderStatus applies an administrative status transition. Moving
// into confirmed decrements stock for every line or fails atomically.
func SetOrderStatus(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "this field is required"})
	}

	order, err := service.SetStatus(database.GetDB(), uint(id), req.Status)
	if err != nil {
		return businessError(c, err)
	}

	prometheus.RecordStatusTransition(order.Status)
	log.Info("Order status changed",
		zap.Uint("order_id", order.ID),
		zap.String("status", order.Status))
	return c.JSON(http.StatusOK, echo.Map{
		"order_id": order.ID,
		"status":   order.Status,
	})
}
