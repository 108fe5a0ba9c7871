package notify

import (
	"testing"

	"marketplace-service/pkg/config"

	"github.com/stretchr/testify/assert"
)

func TestSMTPMessageHeaders(t *testing.T) {
	sender := &SMTPSender{cfg: config.SMTPConfig{From: "noreply@marketplace.local"}}
	msg := string(sender.message(Email{
		To:      []string{"buyer@example.com", "admin@example.com"},
		Subject: "New order",
		Body:    "Order 1 has been created.",
	}))

	assert.Contains(t, msg, "From: noreply@marketplace.local\r\n")
	assert.Contains(t, msg, "To: buyer@example.com, admin@example.com\r\n")
	assert.Contains(t, msg, "Subject: New order\r\n")
	assert.Contains(t, msg, "\r\n\r\nOrder 1 has been created.\r\n")
}
