package notify

import (
	"context"
	"time"

	"marketplace-service/internal/model"
	"marketplace-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dispatcher drains pending outbox rows on an interval and hands the
// rendered notifications to a Sender. Failures are retried on later
// polls until the attempt cap, then the row is parked as failed.
type Dispatcher struct {
	db          *gorm.DB
	sender      Sender
	log         *zap.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
	adminEmail  string
}

// NewDispatcher creates a dispatcher over the given database and sender
func NewDispatcher(db *gorm.DB, sender Sender, log *zap.Logger, interval time.Duration,
	batchSize, maxAttempts int, adminEmail string) *Dispatcher {
	return &Dispatcher{
		db:          db,
		sender:      sender,
		log:         log,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		adminEmail:  adminEmail,
	}
}

// Run polls until the context is canceled
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Notification dispatcher stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := d.RunOnce(); err != nil {
				d.log.Error("Outbox poll failed", zap.Error(err))
			}
		}
	}
}

// RunOnce processes one batch of pending rows
func (d *Dispatcher) RunOnce() error {
	var pending []model.OutboxMessage
	err := d.db.Where("state = ?", model.OutboxPending).
		Order("id").
		Limit(d.batchSize).
		Find(&pending).Error
	if err != nil {
		return err
	}

	for _, msg := range pending {
		d.deliver(msg)
	}
	return nil
}

func (d *Dispatcher) deliver(msg model.OutboxMessage) {
	email, err := render(d.db, msg, d.adminEmail)
	if err == nil {
		err = d.sender.Send(email)
	}

	if err != nil {
		d.log.Warn("Notification delivery failed",
			zap.Uint("outbox_id", msg.ID),
			zap.String("kind", msg.Kind),
			zap.Int("attempts", msg.Attempts+1),
			zap.Error(err))
		prometheus.RecordNotification(msg.Kind, "error")

		updates := map[string]interface{}{
			"attempts":   msg.Attempts + 1,
			"last_error": err.Error(),
		}
		if msg.Attempts+1 >= d.maxAttempts {
			updates["state"] = model.OutboxFailed
		}
		if err := d.db.Model(&model.OutboxMessage{}).Where("id = ?", msg.ID).Updates(updates).Error; err != nil {
			d.log.Error("Failed to record delivery failure", zap.Uint("outbox_id", msg.ID), zap.Error(err))
		}
		return
	}

	now := time.Now()
	err = d.db.Model(&model.OutboxMessage{}).Where("id = ?", msg.ID).Updates(map[string]interface{}{
		"state":    model.OutboxSent,
		"attempts": msg.Attempts + 1,
		"sent_at":  &now,
	}).Error
	if err != nil {
		d.log.Error("Failed to mark notification sent", zap.Uint("outbox_id", msg.ID), zap.Error(err))
		return
	}
	prometheus.RecordNotification(msg.Kind, "sent")
	d.log.Debug("Notification delivered",
		zap.Uint("outbox_id", msg.ID),
		zap.String("kind", msg.Kind))
}
