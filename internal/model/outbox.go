package model

import (
	"time"
)

// Outbox message kinds
const (
	NotifyRegistration     = "registration"
	NotifyAccountConfirmed = "account_confirmed"
	NotifyPasswordReset    = "password_reset"
	NotifyPasswordChanged  = "password_changed"
	NotifyNewOrder         = "new_order"
	NotifyNewOrderAdmin    = "new_order_admin"
	NotifyOrderStatus      = "order_status"
)

// Outbox delivery states
const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// OutboxMessage is a notification job written in the same transaction
// as the state change it reports. The dispatcher drains pending rows;
// message bodies are rebuilt from the referenced IDs at send time.
type OutboxMessage struct {
	ID          uint       `json:"id" gorm:"primarykey"`
	Kind        string     `json:"kind" gorm:"type:varchar(20);not null"`
	UserID      uint       `json:"user_id" gorm:"not null"`
	OrderID     *uint      `json:"order_id"`
	OrderStatus string     `json:"order_status" gorm:"type:varchar(10)"`
	ToAdmin     bool       `json:"to_admin" gorm:"default:false"`
	Token       string     `json:"-" gorm:"type:varchar(64)"`
	State       string     `json:"state" gorm:"type:varchar(10);not null;default:'pending';index"`
	Attempts    int        `json:"attempts" gorm:"not null;default:0"`
	LastError   string     `json:"last_error" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at"`
	SentAt      *time.Time `json:"sent_at"`
}
