package model

import (
	"time"
)

// Shop represents a partner storefront importing its catalog
type Shop struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	Name      string    `json:"name" gorm:"type:varchar(75);not null;uniqueIndex:uniq_shop_owner_name"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:uniq_shop_owner_name"`
	User      User      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Site      string    `json:"site" gorm:"type:varchar(255)"`
	URL       string    `json:"url" gorm:"type:varchar(255)"`
	Filename  string    `json:"filename" gorm:"type:varchar(55)"`
	// No column default: gorm would drop a false value on insert.
	// Creators set the field explicitly.
	IsOpen    bool      `json:"is_open"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category groups products; a category can be sold by many shops
type Category struct {
	ID    uint   `json:"id" gorm:"primarykey"`
	Name  string `json:"name" gorm:"type:varchar(50);not null"`
	Shops []Shop `json:"-" gorm:"many2many:shop_categories"`
}

// Product is the master record for a good, shared across shops
type Product struct {
	ID         uint     `json:"id" gorm:"primarykey"`
	Name       string   `json:"name" gorm:"type:varchar(100);not null;index"`
	CategoryID uint     `json:"category_id" gorm:"index;not null"`
	Category   Category `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	// Recommended retail price
	RRC uint `json:"rrc" gorm:"not null"`
}

// ProductInfo is a shop-specific listing: model, article, price and stock.
// The whole set for a shop is replaced on every import.
type ProductInfo struct {
	ID        uint    `json:"id" gorm:"primarykey"`
	ShopID    uint    `json:"shop_id" gorm:"not null;uniqueIndex:uniq_listing"`
	Shop      Shop    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	ProductID uint    `json:"product_id" gorm:"not null;uniqueIndex:uniq_listing"`
	Product   Product `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Model     string  `json:"model" gorm:"type:varchar(100)"`
	Article   uint    `json:"article" gorm:"not null;uniqueIndex:uniq_listing"`
	Price     float64 `json:"price" gorm:"type:numeric(9,2);not null"`
	Quantity  uint    `json:"quantity" gorm:"not null;check:quantity >= 0"`
}

// Parameter names an arbitrary product attribute
type Parameter struct {
	ID   uint   `json:"id" gorm:"primarykey"`
	Name string `json:"name" gorm:"type:varchar(55);uniqueIndex;not null"`
}

// ProductParameter attaches a parameter value to a listing
type ProductParameter struct {
	ID            uint        `json:"id" gorm:"primarykey"`
	ProductInfoID uint        `json:"product_info_id" gorm:"not null;uniqueIndex:uniq_listing_param"`
	ProductInfo   ProductInfo `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	ParameterID   uint        `json:"parameter_id" gorm:"not null;uniqueIndex:uniq_listing_param"`
	Parameter     Parameter   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Value         string      `json:"value" gorm:"type:varchar(55);not null"`
}
