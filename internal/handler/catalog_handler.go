package handler

import (
	"net/http"

	"marketplace-service/internal/model"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// listingDetail is a listing enriched with its parameter values
type listingDetail struct {
	model.ProductInfo
	Parameters map[string]string `json:"parameters"`
}

// ListShops returns open shops, name-ordered
func ListShops(c echo.Context) error {
	log := logger.FromContext(c)

	var shops []model.Shop
	err := database.GetDB().Where("is_open = ?", true).Order("name").Find(&shops).Error
	if err != nil {
		log.Error("Failed to list shops", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve shops"})
	}
	return c.JSON(http.StatusOK, shops)
}

// GetShop returns a shop with its listings
func GetShop(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var shop model.Shop
	if err := database.GetDB().First(&shop, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
	}

	var listings []model.ProductInfo
	if err := database.GetDB().Where("shop_id = ?", shop.ID).Find(&listings).Error; err != nil {
		log.Error("Failed to load shop listings", zap.String("shop_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve shop"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":       shop.ID,
		"name":     shop.Name,
		"site":     shop.Site,
		"is_open":  shop.IsOpen,
		"listings": listings,
	})
}

// ListCategories returns all categories, name-ordered
func ListCategories(c echo.Context) error {
	log := logger.FromContext(c)

	var categories []model.Category
	if err := database.GetDB().Order("name").Find(&categories).Error; err != nil {
		log.Error("Failed to list categories", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve categories"})
	}
	return c.JSON(http.StatusOK, categories)
}

// GetCategory returns a category with its products
func GetCategory(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var category model.Category
	if err := database.GetDB().First(&category, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	}

	var products []model.Product
	if err := database.GetDB().Where("category_id = ?", category.ID).Order("name").Find(&products).Error; err != nil {
		log.Error("Failed to load category products", zap.String("category_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve category"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":       category.ID,
		"name":     category.Name,
		"products": products,
	})
}

// ListProducts returns products with optional filtering by id, shop
// and category, and substring search by name
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB().Model(&model.Product{})

	if id := c.QueryParam("id"); id != "" {
		query = query.Where("products.id = ?", id)
	}
	if categoryID := c.QueryParam("category_id"); categoryID != "" {
		query = query.Where("products.category_id = ?", categoryID)
	}
	if shopID := c.QueryParam("shop_id"); shopID != "" {
		query = query.Joins("JOIN product_infos ON product_infos.product_id = products.id").
			Where("product_infos.shop_id = ?", shopID).
			Distinct("products.*")
	}
	if search := c.QueryParam("search"); search != "" {
		query = query.Where("products.name LIKE ?", "%"+search+"%")
	}

	var products []model.Product
	if err := query.Order("products.name").Find(&products).Error; err != nil {
		log.Error("Failed to list products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve products"})
	}

	return c.JSON(http.StatusOK, products)
}

// GetProduct returns a product with its listings and their parameters
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var product model.Product
	if err := database.GetDB().First(&product, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}

	var listings []model.ProductInfo
	if err := database.GetDB().Where("product_id = ?", product.ID).Find(&listings).Error; err != nil {
		log.Error("Failed to load product listings", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve product"})
	}

	detailed := make([]listingDetail, 0, len(listings))
	for _, listing := range listings {
		parameters, err := listingParameters(listing.ID)
		if err != nil {
			log.Error("Failed to load listing parameters", zap.Uint("listing_id", listing.ID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve product"})
		}
		detailed = append(detailed, listingDetail{ProductInfo: listing, Parameters: parameters})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":          product.ID,
		"name":        product.Name,
		"category_id": product.CategoryID,
		"rrc":         product.RRC,
		"listings":    detailed,
	})
}

func listingParameters(listingID uint) (map[string]string, error) {
	type row struct {
		Name  string
		Value string
	}
	var rows []row
	err := database.GetDB().Model(&model.ProductParameter{}).
		Select("parameters.name, product_parameters.value").
		Joins("JOIN parameters ON parameters.id = product_parameters.parameter_id").
		Where("product_parameters.product_info_id = ?", listingID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	parameters := make(map[string]string, len(rows))
	for _, r := range rows {
		parameters[r.Name] = r.Value
	}
	return parameters, nil
}
