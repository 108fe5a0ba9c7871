// Package notify implements the transactional outbox and the
// dispatcher that drains it. Rows are enqueued inside the transaction
// that changes user or order state; delivery is asynchronous and
// best-effort, never surfaced to the request path.
package notify

import (
	"marketplace-service/internal/model"

	"gorm.io/gorm"
)

// Enqueue writes an outbox row. Call it with the transaction handle of
// the state change the notification reports so both commit together.
func Enqueue(tx *gorm.DB, msg model.OutboxMessage) error {
	msg.State = model.OutboxPending
	return tx.Create(&msg).Error
}

// EnqueueOrder writes the buyer and admin notifications for an order event
func EnqueueOrder(tx *gorm.DB, kind string, userID, orderID uint, status string) error {
	err := Enqueue(tx, model.OutboxMessage{
		Kind:        kind,
		UserID:      userID,
		OrderID:     &orderID,
		OrderStatus: status,
	})
	if err != nil {
		return err
	}
	adminKind := model.NotifyNewOrderAdmin
	if kind != model.NotifyNewOrder {
		adminKind = kind
	}
	return Enqueue(tx, model.OutboxMessage{
		Kind:        adminKind,
		UserID:      userID,
		OrderID:     &orderID,
		OrderStatus: status,
		ToAdmin:     true,
	})
}
