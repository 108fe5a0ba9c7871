package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"marketplace-service/internal/model"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func doGET(t *testing.T, handler echo.HandlerFunc, target string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for name, value := range params {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}
	require.NoError(t, handler(c))
	return rec
}

func seedCatalog(t *testing.T, db *gorm.DB) (*model.Shop, *model.Product) {
	t.Helper()
	owner := model.User{Email: "shop@example.com", Username: "shop", Password: "x", Role: model.RoleShop, IsActive: true}
	require.NoError(t, db.Create(&owner).Error)

	open := model.Shop{Name: "Svyaznoy", UserID: owner.ID, IsOpen: true}
	require.NoError(t, db.Create(&open).Error)
	closed := model.Shop{Name: "Closed shop", UserID: owner.ID, IsOpen: false}
	require.NoError(t, db.Create(&closed).Error)

	category := model.Category{ID: 224, Name: "Smartphones"}
	require.NoError(t, db.Create(&category).Error)

	phone := model.Product{Name: "Smartphone Apple iPhone", CategoryID: category.ID, RRC: 116990}
	require.NoError(t, db.Create(&phone).Error)
	accessory := model.Product{Name: "Leather case", CategoryID: category.ID, RRC: 5990}
	require.NoError(t, db.Create(&accessory).Error)

	info := model.ProductInfo{
		ShopID: open.ID, ProductID: phone.ID,
		Model: "apple/iphone", Article: 1, Price: 110000, Quantity: 14,
	}
	require.NoError(t, db.Create(&info).Error)

	color := model.Parameter{Name: "Color"}
	require.NoError(t, db.Create(&color).Error)
	require.NoError(t, db.Create(&model.ProductParameter{
		ProductInfoID: info.ID, ParameterID: color.ID, Value: "golden",
	}).Error)

	return &open, &phone
}

func TestListShopsShowsOnlyOpen(t *testing.T) {
	db := setupTestDB(t)
	open, _ := seedCatalog(t, db)

	// The closed shop must be stored closed, not coerced by a column default
	var closed model.Shop
	require.NoError(t, db.Where("name = ?", "Closed shop").First(&closed).Error)
	require.False(t, closed.IsOpen)

	rec := doGET(t, ListShops, "/api/shops", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var shops []model.Shop
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shops))
	require.Len(t, shops, 1)
	assert.Equal(t, open.ID, shops[0].ID)
}

func TestListProductsFilters(t *testing.T) {
	db := setupTestDB(t)
	open, phone := seedCatalog(t, db)

	rec := doGET(t, ListProducts, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var products []model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	assert.Len(t, products, 2)

	rec = doGET(t, ListProducts, "/api/products?search=iPhone", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, phone.ID, products[0].ID)

	// Only the phone has a listing in the open shop
	rec = doGET(t, ListProducts, "/api/products?shop_id="+itoa(open.ID), nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, phone.ID, products[0].ID)
}

func TestGetProductWithParameters(t *testing.T) {
	db := setupTestDB(t)
	_, phone := seedCatalog(t, db)

	rec := doGET(t, GetProduct, "/api/products/"+itoa(phone.ID), map[string]string{"id": itoa(phone.ID)})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	listings, ok := body["listings"].([]interface{})
	require.True(t, ok)
	require.Len(t, listings, 1)
	listing := listings[0].(map[string]interface{})
	parameters := listing["parameters"].(map[string]interface{})
	assert.Equal(t, "golden", parameters["Color"])
}

func TestGetProductNotFound(t *testing.T) {
	setupTestDB(t)
	rec := doGET(t, GetProduct, "/api/products/9999", map[string]string{"id": "9999"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
