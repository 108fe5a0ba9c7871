package service

import (
	"errors"
	"strings"

	"marketplace-service/internal/feed"
	"marketplace-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ImportResult summarizes a committed catalog import
type ImportResult struct {
	ShopID     uint `json:"shop_id"`
	Categories int  `json:"categories"`
	Listings   int  `json:"listings"`
}

// ResolveFeedURL maps a shop site to its stored feed location. Called
// when the partner re-imports passing the site instead of an explicit
// feed path.
func ResolveFeedURL(db *gorm.DB, userID uint, site string) (string, error) {
	var shop model.Shop
	err := db.Where("site = ? AND user_id = ?", site, userID).First(&shop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrShopNotFound
	}
	if err != nil {
		return "", err
	}
	if shop.URL == "" || shop.Filename == "" {
		return "", ErrShopNotFound
	}
	return shop.URL + shop.Filename, nil
}

// Import performs a full-replace catalog import for the shop described
// by the feed. Everything runs in one transaction: either the whole
// snapshot is replaced or nothing changes.
func Import(db *gorm.DB, userID uint, url string, doc *feed.Document) (*ImportResult, error) {
	result := &ImportResult{}
	err := db.Transaction(func(tx *gorm.DB) error {
		shop, created, err := upsertShop(tx, userID, doc.Shop)
		if err != nil {
			return err
		}
		if created && shop.URL == "" && shop.Filename == "" {
			separator := strings.LastIndex(url, "/")
			shop.URL = url[:separator+1]
			shop.Filename = url[separator+1:]
			if err := tx.Save(shop).Error; err != nil {
				return err
			}
		}
		result.ShopID = shop.ID

		for _, category := range doc.Categories {
			if err := attachCategory(tx, shop, category); err != nil {
				return err
			}
			result.Categories++
		}

		if err := dropListings(tx, shop.ID); err != nil {
			return err
		}

		for _, item := range doc.Goods {
			if err := createListing(tx, shop.ID, item); err != nil {
				return err
			}
			result.Listings++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func upsertShop(tx *gorm.DB, userID uint, meta feed.ShopMeta) (*model.Shop, bool, error) {
	shop := model.Shop{
		Name:   meta.Name,
		UserID: userID,
		Site:   meta.Site,
		IsOpen: true,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&shop).Error
	if err != nil {
		return nil, false, err
	}
	if shop.ID != 0 {
		return &shop, true, nil
	}
	// Conflict: the shop already existed
	err = tx.Where("user_id = ? AND name = ?", userID, meta.Name).First(&shop).Error
	if err != nil {
		return nil, false, err
	}
	return &shop, false, nil
}

func attachCategory(tx *gorm.DB, shop *model.Shop, entry feed.Category) error {
	category := model.Category{ID: entry.ID, Name: entry.Name}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&category).Error
	if err != nil {
		return err
	}
	// Idempotent many-to-many attach
	return tx.Model(&category).Association("Shops").Append(shop)
}

// dropListings removes the shop's current snapshot: listings and their
// parameter values. Products and parameters are shared and stay.
func dropListings(tx *gorm.DB, shopID uint) error {
	var infoIDs []uint
	err := tx.Model(&model.ProductInfo{}).Where("shop_id = ?", shopID).Pluck("id", &infoIDs).Error
	if err != nil {
		return err
	}
	if len(infoIDs) == 0 {
		return nil
	}
	if err := tx.Where("product_info_id IN ?", infoIDs).Delete(&model.ProductParameter{}).Error; err != nil {
		return err
	}
	return tx.Where("shop_id = ?", shopID).Delete(&model.ProductInfo{}).Error
}

func createListing(tx *gorm.DB, shopID uint, item feed.Item) error {
	var product model.Product
	err := tx.Where("name = ? AND category_id = ? AND rrc = ?",
		item.Name, item.Category, item.PriceRRC).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		product = model.Product{Name: item.Name, CategoryID: item.Category, RRC: item.PriceRRC}
		err = tx.Create(&product).Error
	}
	if err != nil {
		return err
	}

	info := model.ProductInfo{
		ShopID:    shopID,
		ProductID: product.ID,
		Model:     item.Model,
		Article:   item.Article,
		Price:     item.Price,
		Quantity:  item.Quantity,
	}
	if err := tx.Create(&info).Error; err != nil {
		return err
	}

	for name, value := range item.Parameters {
		parameter := model.Parameter{Name: name}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&parameter).Error
		if err != nil {
			return err
		}
		if parameter.ID == 0 {
			if err := tx.Where("name = ?", name).First(&parameter).Error; err != nil {
				return err
			}
		}
		productParameter := model.ProductParameter{
			ProductInfoID: info.ID,
			ParameterID:   parameter.ID,
			Value:         value,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_info_id"}, {Name: "parameter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&productParameter).Error
		if err != nil {
			return err
		}
	}
	return nil
}
