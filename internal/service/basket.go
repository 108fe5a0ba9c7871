package service

import (
	"errors"
	"fmt"

	"marketplace-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BasketItem is one requested line of a basket payload
type BasketItem struct {
	ProductInfoID uint `json:"product_info"`
	Quantity      int  `json:"quantity"`
}

// GetBasket returns the user's current basket with items and listing
// detail preloaded, or nil if the user has no basket.
func GetBasket(db *gorm.DB, userID uint) (*model.Order, error) {
	var basket model.Order
	err := db.Preload("Items.ProductInfo").
		Where("user_id = ? AND status = ?", userID, model.StatusBasket).
		First(&basket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &basket, nil
}

// AddToBasket validates the requested items and upserts them into the
// user's basket, creating the basket if none exists. Quantities of
// items already present are overwritten, other lines are untouched.
func AddToBasket(db *gorm.DB, userID uint, items []BasketItem) (*model.Order, error) {
	var basket *model.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := validateItems(tx, items); err != nil {
			return err
		}
		var err error
		basket, err = ensureBasket(tx, userID)
		if err != nil {
			return err
		}
		return upsertItems(tx, basket.ID, items)
	})
	if err != nil {
		return nil, err
	}
	return GetBasket(db, userID)
}

// ReplaceBasket replaces the basket contents wholesale with the given
// items: lines omitted from the payload are removed. The payload is
// validated before anything is deleted.
func ReplaceBasket(db *gorm.DB, userID uint, items []BasketItem) (*model.Order, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := validateItems(tx, items); err != nil {
			return err
		}
		basket, err := ensureBasket(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", basket.ID).Delete(&model.OrderItem{}).Error; err != nil {
			return err
		}
		return upsertItems(tx, basket.ID, items)
	})
	if err != nil {
		return nil, err
	}
	return GetBasket(db, userID)
}

// ClearBasket removes the user's basket and its items. A missing
// basket is not an error.
func ClearBasket(db *gorm.DB, userID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var basket model.Order
		err := tx.Where("user_id = ? AND status = ?", userID, model.StatusBasket).First(&basket).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", basket.ID).Delete(&model.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&basket).Error
	})
}

// ensureBasket returns the user's basket, creating it when absent.
// Uniqueness comes from the partial unique index on orders, so a
// concurrent insert degrades to a no-op rather than a duplicate.
func ensureBasket(tx *gorm.DB, userID uint) (*model.Order, error) {
	basket := model.Order{UserID: userID, Status: model.StatusBasket}
	// The predicate must be a literal: index inference cannot match a
	// bound parameter against the partial index.
	err := tx.Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "user_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{gorm.Expr("status = 'basket'")}},
		DoNothing:   true,
	}).Create(&basket).Error
	if err != nil {
		return nil, err
	}
	if basket.ID == 0 {
		// Conflict: the basket already existed
		err = tx.Where("user_id = ? AND status = ?", userID, model.StatusBasket).First(&basket).Error
		if err != nil {
			return nil, err
		}
	}
	return &basket, nil
}

// validateItems checks every requested line against a fresh snapshot
// of open-shop listings. All failures are collected so the caller gets
// one field-keyed response, not the first error.
func validateItems(tx *gorm.DB, items []BasketItem) error {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductInfoID)
	}

	var listings []model.ProductInfo
	err := tx.Joins("JOIN shops ON shops.id = product_infos.shop_id").
		Where("product_infos.id IN ? AND shops.is_open = ?", ids, true).
		Find(&listings).Error
	if err != nil {
		return err
	}
	available := make(map[uint]model.ProductInfo, len(listings))
	for _, listing := range listings {
		available[listing.ID] = listing
	}

	itemErrors := ItemErrors{}
	for i, item := range items {
		listing, ok := available[item.ProductInfoID]
		if !ok {
			itemErrors[i] = "product not found or shop closed"
			continue
		}
		if item.Quantity <= 0 {
			itemErrors[i] = "quantity must be positive"
			continue
		}
		if uint(item.Quantity) > listing.Quantity {
			itemErrors[i] = fmt.Sprintf("insufficient stock: only %d available", listing.Quantity)
		}
	}
	if len(itemErrors) > 0 {
		return itemErrors
	}
	return nil
}

// upsertItems inserts or overwrites basket lines keyed by listing
func upsertItems(tx *gorm.DB, orderID uint, items []BasketItem) error {
	for _, item := range items {
		line := model.OrderItem{
			OrderID:       orderID,
			ProductInfoID: item.ProductInfoID,
			Quantity:      uint(item.Quantity),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "product_info_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
		}).Create(&line).Error
		if err != nil {
			return err
		}
	}
	return nil
}
