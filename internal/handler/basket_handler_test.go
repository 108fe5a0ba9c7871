package handler

import (
	"fmt"
	"net/http"
	"testing"

	"marketplace-service/internal/middleware"
	"marketplace-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// seedAuthedBuyer creates an active buyer with an issued token and a
// shop with one listing to put in the basket
func seedAuthedBuyer(t *testing.T, db *gorm.DB) (string, *model.ProductInfo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	require.NoError(t, err)
	buyer := model.User{
		Email:    "buyer@example.com",
		Username: "buyer",
		Password: string(hash),
		Role:     model.RoleBuyer,
		IsActive: true,
	}
	require.NoError(t, db.Create(&buyer).Error)
	token := model.AuthToken{Key: "test-token-buyer", UserID: buyer.ID}
	require.NoError(t, db.Create(&token).Error)

	owner := model.User{Email: "shop@example.com", Username: "shop", Password: "x", Role: model.RoleShop, IsActive: true}
	require.NoError(t, db.Create(&owner).Error)
	shop := model.Shop{Name: "Svyaznoy", UserID: owner.ID, IsOpen: true}
	require.NoError(t, db.Create(&shop).Error)
	product := model.Product{Name: "Smartphone", CategoryID: 1, RRC: 1000}
	require.NoError(t, db.Create(&product).Error)
	info := model.ProductInfo{
		ShopID:    shop.ID,
		ProductID: product.ID,
		Model:     "apple/iphone",
		Article:   1,
		Price:     500,
		Quantity:  10,
	}
	require.NoError(t, db.Create(&info).Error)
	return token.Key, &info
}

func TestGetBasketEmpty(t *testing.T) {
	db := setupTestDB(t)
	token, _ := seedAuthedBuyer(t, db)

	rec := doJSON(t, middleware.AuthMiddleware(GetBasket), http.MethodGet, "/api/basket", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["total_price"])
	assert.Empty(t, body["items"])
}

func TestBasketLifecycleOverHTTP(t *testing.T) {
	db := setupTestDB(t)
	token, listing := seedAuthedBuyer(t, db)

	payload := fmt.Sprintf(`{"items":[{"product_info":%d,"quantity":2}]}`, listing.ID)
	rec := doJSON(t, middleware.AuthMiddleware(PostBasket), http.MethodPost, "/api/basket", payload, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1000), body["total_price"])

	payload = fmt.Sprintf(`{"items":[{"product_info":%d,"quantity":1}]}`, listing.ID)
	rec = doJSON(t, middleware.AuthMiddleware(PutBasket), http.MethodPut, "/api/basket", payload, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(500), body["total_price"])

	rec = doJSON(t, middleware.AuthMiddleware(DeleteBasket), http.MethodDelete, "/api/basket", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, middleware.AuthMiddleware(GetBasket), http.MethodGet, "/api/basket", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeBody(t, rec)["total_price"])
}

func TestPostBasketRequiresItems(t *testing.T) {
	db := setupTestDB(t)
	token, _ := seedAuthedBuyer(t, db)

	rec := doJSON(t, middleware.AuthMiddleware(PostBasket), http.MethodPost, "/api/basket", `{"items":[]}`, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "items")
}

func TestPostBasketItemErrorsKeyedByPosition(t *testing.T) {
	db := setupTestDB(t)
	token, listing := seedAuthedBuyer(t, db)

	payload := fmt.Sprintf(
		`{"items":[{"product_info":%d,"quantity":2},{"product_info":%d,"quantity":999},{"product_info":9999,"quantity":1}]}`,
		listing.ID, listing.ID)
	rec := doJSON(t, middleware.AuthMiddleware(PostBasket), http.MethodPost, "/api/basket", payload, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	items, ok := body["items"].(map[string]interface{})
	require.True(t, ok, "expected items keyed by position, got %v", body)
	assert.NotContains(t, items, "0")
	assert.Equal(t, "insufficient stock: only 10 available", items["1"])
	assert.Equal(t, "product not found or shop closed", items["2"])
}
