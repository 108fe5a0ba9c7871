package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"marketplace-service/internal/feed"
	"marketplace-service/internal/middleware"
	"marketplace-service/internal/model"
	"marketplace-service/internal/service"
	"marketplace-service/pkg/config"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var feedFetcher *feed.Fetcher

// Init configures handler-level collaborators from the loaded config
func Init(cfg *config.Config) {
	feedFetcher = feed.NewFetcher(cfg.Feed.FetchTimeout, cfg.Feed.MaxBodyBytes)
}

// ImportCatalog performs a full-replace catalog import for the calling
// partner. The url either points at a feed file or names a shop site
// whose feed location was stored on first import.
func ImportCatalog(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.GetUser(c)
	start := time.Now()

	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"url": "this field is required"})
	}

	url := req.URL
	if !strings.HasSuffix(url, ".yaml") {
		resolved, err := service.ResolveFeedURL(database.GetDB(), user.ID, url)
		if err != nil {
			log.Warn("No stored feed for site", zap.String("site", url), zap.Error(err))
			return businessError(c, err)
		}
		url = resolved
	}

	doc, err := feedFetcher.Fetch(url)
	if err != nil {
		prometheus.RecordImport("rejected")
		log.Warn("Feed rejected", zap.String("url", url), zap.Error(err))
		if errors.Is(err, feed.ErrMalformed) || errors.Is(err, feed.ErrUnreachable) {
			return c.JSON(http.StatusBadRequest, echo.Map{"url": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch feed"})
	}

	result, err := service.Import(database.GetDB(), user.ID, url, doc)
	if err != nil {
		prometheus.RecordImport("failed")
		log.Error("Catalog import failed", zap.String("url", url), zap.Error(err))
		return businessError(c, err)
	}

	prometheus.RecordImport("ok")
	prometheus.ImportedListings.Add(float64(result.Listings))
	prometheus.ImportDuration.Observe(time.Since(start).Seconds())
	log.Info("Catalog imported",
		zap.Uint("user_id", user.ID),
		zap.Uint("shop_id", result.ShopID),
		zap.Int("categories", result.Categories),
		zap.Int("listings", result.Listings))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "catalog imported",
		"result":  result,
	})
}

// SetShopState toggles whether the partner's shop accepts new orders
func SetShopState(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.GetUser(c)

	var req struct {
		ShopID uint  `json:"shop_id"`
		IsOpen *bool `json:"is_open"`
	}
	if err := c.Bind(&req); err != nil || req.IsOpen == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"is_open": "this field is required"})
	}

	var shop model.Shop
	err := database.GetDB().Where("id = ? AND user_id = ?", req.ShopID, user.ID).First(&shop).Error
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
	}

	shop.IsOpen = *req.IsOpen
	if err := database.GetDB().Model(&shop).Update("is_open", shop.IsOpen).Error; err != nil {
		log.Error("Failed to update shop state", zap.Uint("shop_id", shop.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update shop"})
	}

	log.Info("Shop state changed",
		zap.Uint("shop_id", shop.ID),
		zap.Bool("is_open", shop.IsOpen))
	return c.JSON(http.StatusOK, shop)
}

// PartnerOrders returns placed orders containing the partner's listings
func PartnerOrders(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.GetUser(c)

	orders, err := service.PartnerOrders(database.GetDB(), user.ID)
	if err != nil {
		log.Error("Failed to list partner orders", zap.Uint("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve orders"})
	}

	response := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, orderResponse{Order: order, TotalPrice: order.TotalPrice()})
	}
	return c.JSON(http.StatusOK, response)
}
