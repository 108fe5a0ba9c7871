package service

import (
	"fmt"
	"testing"

	"marketplace-service/internal/model"
	"marketplace-service/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *model.User {
	t.Helper()
	user := model.User{
		Email:    email,
		Username: email,
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// seedListing seeds a shop-owned listing with the given stock and price
func seedListing(t *testing.T, db *gorm.DB, shopID uint, article, quantity uint, price float64) *model.ProductInfo {
	t.Helper()
	product := model.Product{Name: fmt.Sprintf("product-%d", article), CategoryID: 1, RRC: uint(price)}
	require.NoError(t, db.Create(&product).Error)
	info := model.ProductInfo{
		ShopID:    shopID,
		ProductID: product.ID,
		Model:     "test/model",
		Article:   article,
		Price:     price,
		Quantity:  quantity,
	}
	require.NoError(t, db.Create(&info).Error)
	return &info
}

func createShop(t *testing.T, db *gorm.DB, ownerID uint, name string, isOpen bool) *model.Shop {
	t.Helper()
	shop := model.Shop{Name: name, UserID: ownerID, IsOpen: isOpen}
	require.NoError(t, db.Create(&shop).Error)
	return &shop
}
