package model

import (
	"time"
)

// Order is a user's order. While status is StatusBasket it acts as the
// user's single in-progress cart; the partial unique index enforces
// one basket per user at the database level.
type Order struct {
	ID        uint        `json:"id" gorm:"primarykey"`
	UserID    uint        `json:"user_id" gorm:"not null;index;uniqueIndex:uniq_user_basket,where:status = 'basket'"`
	User      User        `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	ContactID *uint       `json:"contact_id"`
	Contact   *Contact    `json:"contact,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	Status    string      `json:"status" gorm:"type:varchar(10);not null"`
	Items     []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TotalPrice sums quantity times listing price over loaded items.
// It is computed, never persisted.
func (o *Order) TotalPrice() float64 {
	var total float64
	for _, item := range o.Items {
		total += float64(item.Quantity) * item.ProductInfo.Price
	}
	return total
}

// OrderItem is a single line of an order, owned exclusively by it
type OrderItem struct {
	ID            uint        `json:"id" gorm:"primarykey"`
	OrderID       uint        `json:"order_id" gorm:"not null;uniqueIndex:uniq_order_listing"`
	ProductInfoID uint        `json:"product_info_id" gorm:"not null;uniqueIndex:uniq_order_listing"`
	ProductInfo   ProductInfo `json:"product_info" gorm:"constraint:OnDelete:CASCADE"`
	Quantity      uint        `json:"quantity" gorm:"not null;default:1;check:quantity > 0"`
}
