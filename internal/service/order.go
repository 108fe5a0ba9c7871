package service

import (
	"errors"

	"marketplace-service/internal/model"
	"marketplace-service/internal/notify"

	"gorm.io/gorm"
)

// ContactInput carries inline delivery contact fields supplied at
// confirmation time
type ContactInput struct {
	City      string `json:"city"`
	Street    string `json:"street"`
	House     string `json:"house"`
	Apartment string `json:"apartment"`
	Phone     string `json:"phone"`
}

func (in *ContactInput) validate() error {
	fieldErrors := FieldErrors{}
	if in.City == "" {
		fieldErrors["city"] = "this field is required"
	}
	if in.Street == "" {
		fieldErrors["street"] = "this field is required"
	}
	if in.House == "" {
		fieldErrors["house"] = "this field is required"
	}
	if in.Phone == "" {
		fieldErrors["phone"] = "this field is required"
	}
	if len(fieldErrors) > 0 {
		return fieldErrors
	}
	return nil
}

// Confirm promotes the caller's basket to a new order. The delivery
// contact comes either from inline fields (persisted as a new contact)
// or from an existing contact id owned by the caller. The status
// change, contact attachment and both notification rows commit in one
// transaction.
func Confirm(db *gorm.DB, userID uint, contactID *uint, inline *ContactInput) (*model.Order, error) {
	var order model.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Items.ProductInfo").
			Where("user_id = ? AND status = ?", userID, model.StatusBasket).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoBasket
		}
		if err != nil {
			return err
		}

		contact, err := resolveContact(tx, userID, contactID, inline)
		if err != nil {
			return err
		}

		order.Status = model.StatusNew
		order.ContactID = &contact.ID
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":     model.StatusNew,
			"contact_id": contact.ID,
		}).Error; err != nil {
			return err
		}

		return notify.EnqueueOrder(tx, model.NotifyNewOrder, userID, order.ID, model.StatusNew)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func resolveContact(tx *gorm.DB, userID uint, contactID *uint, inline *ContactInput) (*model.Contact, error) {
	if inline != nil {
		if err := inline.validate(); err != nil {
			return nil, err
		}
		contact := model.Contact{
			UserID:    userID,
			City:      inline.City,
			Street:    inline.Street,
			House:     inline.House,
			Apartment: inline.Apartment,
			Phone:     inline.Phone,
		}
		if err := tx.Create(&contact).Error; err != nil {
			return nil, err
		}
		return &contact, nil
	}
	if contactID != nil {
		var contact model.Contact
		err := tx.Where("id = ? AND user_id = ?", *contactID, userID).First(&contact).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		if err != nil {
			return nil, err
		}
		return &contact, nil
	}
	return nil, ErrContactRequired
}

// SetStatus applies an administrative status transition. Moving into
// confirmed decrements every listing's stock with a conditional
// set-based update; if any row would go negative the whole transition
// rolls back and the order keeps its prior status.
func SetStatus(db *gorm.DB, orderID uint, newStatus string) (*model.Order, error) {
	var order model.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Items").First(&order, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		// A basket is not a placed order yet; only confirmation
		// promotes it, never an administrative transition.
		if order.Status == model.StatusBasket {
			return ErrOrderNotFound
		}
		if !model.ValidStatus(newStatus) {
			return ErrUnknownStatus
		}
		if !model.CanTransition(order.Status, newStatus) {
			return &TransitionError{From: order.Status, To: newStatus}
		}

		if newStatus == model.StatusConfirmed {
			if err := decrementStock(tx, order.Items); err != nil {
				return err
			}
		}

		order.Status = newStatus
		if err := tx.Model(&order).Update("status", newStatus).Error; err != nil {
			return err
		}

		return notify.EnqueueOrder(tx, model.NotifyOrderStatus, order.UserID, order.ID, newStatus)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// decrementStock applies `quantity = quantity - n` guarded by
// `quantity >= n` for every order line. A row left unaffected means
// the guard failed; the returned error aborts the enclosing
// transaction so no partial decrement survives.
func decrementStock(tx *gorm.DB, items []model.OrderItem) error {
	for _, item := range items {
		result := tx.Model(&model.ProductInfo{}).
			Where("id = ? AND quantity >= ?", item.ProductInfoID, item.Quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", item.Quantity))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var listing model.ProductInfo
			available := uint(0)
			if err := tx.First(&listing, item.ProductInfoID).Error; err == nil {
				available = listing.Quantity
			}
			return &StockError{
				ProductInfoID: item.ProductInfoID,
				Requested:     item.Quantity,
				Available:     available,
			}
		}
	}
	return nil
}

// ListOrders returns the user's placed orders, newest first, with
// items and listing detail for total computation
func ListOrders(db *gorm.DB, userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := db.Preload("Items.ProductInfo").Preload("Contact").
		Where("user_id = ? AND status <> ?", userID, model.StatusBasket).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

// GetOrder returns one of the user's placed orders
func GetOrder(db *gorm.DB, userID, orderID uint) (*model.Order, error) {
	var order model.Order
	err := db.Preload("Items.ProductInfo").Preload("Contact").
		Where("id = ? AND user_id = ? AND status <> ?", orderID, userID, model.StatusBasket).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// PartnerOrders returns placed orders that contain at least one
// listing belonging to one of the partner's shops
func PartnerOrders(db *gorm.DB, ownerID uint) ([]model.Order, error) {
	var orderIDs []uint
	err := db.Model(&model.OrderItem{}).
		Distinct("order_items.order_id").
		Joins("JOIN product_infos ON product_infos.id = order_items.product_info_id").
		Joins("JOIN shops ON shops.id = product_infos.shop_id").
		Where("shops.user_id = ?", ownerID).
		Pluck("order_items.order_id", &orderIDs).Error
	if err != nil {
		return nil, err
	}
	if len(orderIDs) == 0 {
		return []model.Order{}, nil
	}
	var orders []model.Order
	err = db.Preload("Items.ProductInfo").Preload("Contact").
		Where("id IN ? AND status <> ?", orderIDs, model.StatusBasket).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}
