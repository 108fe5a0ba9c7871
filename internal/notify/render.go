package notify

import (
	"fmt"
	"strings"

	"marketplace-service/internal/model"

	"gorm.io/gorm"
)

// render rebuilds the e-mail for an outbox row from current database
// state. Order bodies are itemized from the order's lines; token mails
// carry the confirmation or reset token enqueued with the row.
func render(db *gorm.DB, msg model.OutboxMessage, adminEmail string) (Email, error) {
	var user model.User
	if err := db.First(&user, msg.UserID).Error; err != nil {
		return Email{}, err
	}

	recipient := user.Email
	if msg.ToAdmin {
		admin, err := resolveAdmin(db, adminEmail)
		if err != nil {
			return Email{}, err
		}
		recipient = admin
	}

	switch msg.Kind {
	case model.NotifyRegistration:
		return Email{
			To:      []string{recipient},
			Subject: "Confirm your registration",
			Body: fmt.Sprintf("%s, your registration confirmation token: %s",
				user.Username, msg.Token),
		}, nil
	case model.NotifyAccountConfirmed:
		return Email{
			To:      []string{recipient},
			Subject: "Account confirmed",
			Body:    fmt.Sprintf("%s, congratulations! Your account has been confirmed", user.Username),
		}, nil
	case model.NotifyPasswordReset:
		return Email{
			To:      []string{recipient},
			Subject: "Password reset requested",
			Body:    fmt.Sprintf("%s, your password reset token: %s", user.Username, msg.Token),
		}, nil
	case model.NotifyPasswordChanged:
		return Email{
			To:      []string{recipient},
			Subject: "Password updated",
			Body:    fmt.Sprintf("%s, your password has been updated", user.Username),
		}, nil
	case model.NotifyNewOrder, model.NotifyNewOrderAdmin, model.NotifyOrderStatus:
		return renderOrder(db, msg, user, recipient)
	default:
		return Email{}, fmt.Errorf("unknown notification kind %q", msg.Kind)
	}
}

func renderOrder(db *gorm.DB, msg model.OutboxMessage, user model.User, recipient string) (Email, error) {
	if msg.OrderID == nil {
		return Email{}, fmt.Errorf("notification %d has no order reference", msg.ID)
	}
	var order model.Order
	err := db.Preload("Items.ProductInfo").Preload("Contact").First(&order, *msg.OrderID).Error
	if err != nil {
		return Email{}, err
	}

	lines := make([]string, 0, len(order.Items))
	for i, item := range order.Items {
		lines = append(lines, fmt.Sprintf("%d. %s, %.2f x %d",
			i+1, item.ProductInfo.Model, item.ProductInfo.Price, item.Quantity))
	}
	items := strings.Join(lines, "\n")
	address := ""
	if order.Contact != nil {
		address = order.Contact.String()
	}
	total := order.TotalPrice()

	switch msg.Kind {
	case model.NotifyNewOrder:
		return Email{
			To:      []string{recipient},
			Subject: "Thank you for your order",
			Body: fmt.Sprintf("%s, order %d has been created.\nItems:\n%s\nDelivery address: %s\nTotal due: %.2f",
				user.Username, order.ID, items, address, total),
		}, nil
	case model.NotifyNewOrderAdmin:
		return Email{
			To:      []string{recipient},
			Subject: "New order",
			Body: fmt.Sprintf("Order %d has been created.\nUser: %s\nTotal due: %.2f\nDelivery address: %s\nItems:\n%s",
				order.ID, user.Username, total, address, items),
		}, nil
	default:
		return Email{
			To:      []string{recipient},
			Subject: "Order status updated",
			Body:    fmt.Sprintf("Order %d, status: %s", order.ID, msg.OrderStatus),
		}, nil
	}
}

// resolveAdmin picks the operator recipient: the configured address,
// or the first staff user when none is configured
func resolveAdmin(db *gorm.DB, adminEmail string) (string, error) {
	if adminEmail != "" {
		return adminEmail, nil
	}
	var admin model.User
	err := db.Where("is_staff = ?", true).Order("id").First(&admin).Error
	if err != nil {
		return "", fmt.Errorf("no admin recipient available: %w", err)
	}
	return admin.Email, nil
}
