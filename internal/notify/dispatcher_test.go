package notify

import (
	"errors"
	"os"
	"testing"
	"time"

	"marketplace-service/internal/model"
	"marketplace-service/pkg/config"
	"marketplace-service/pkg/database"
	"marketplace-service/prometheus"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "notifytest"}})
	os.Exit(m.Run())
}

// fakeSender records deliveries and fails on demand
type fakeSender struct {
	sent []Email
	err  error
}

func (s *fakeSender) Send(email Email) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, email)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB) (*model.User, *model.Order) {
	t.Helper()
	user := model.User{
		Email:    "buyer@example.com",
		Username: "buyer",
		Password: "x",
		Role:     model.RoleBuyer,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)

	owner := model.User{Email: "shop@example.com", Username: "shop", Password: "x", Role: model.RoleShop}
	require.NoError(t, db.Create(&owner).Error)
	shop := model.Shop{Name: "Svyaznoy", UserID: owner.ID, IsOpen: true}
	require.NoError(t, db.Create(&shop).Error)
	product := model.Product{Name: "Smartphone", CategoryID: 1, RRC: 1000}
	require.NoError(t, db.Create(&product).Error)
	info := model.ProductInfo{
		ShopID:    shop.ID,
		ProductID: product.ID,
		Model:     "apple/iphone",
		Article:   1,
		Price:     500,
		Quantity:  10,
	}
	require.NoError(t, db.Create(&info).Error)

	contact := model.Contact{
		UserID: user.ID,
		City:   "Moscow",
		Street: "Tverskaya",
		House:  "1",
		Phone:  "+7 900 000-00-00",
	}
	require.NoError(t, db.Create(&contact).Error)

	order := model.Order{
		UserID:    user.ID,
		ContactID: &contact.ID,
		Status:    model.StatusNew,
		Items: []model.OrderItem{
			{ProductInfoID: info.ID, Quantity: 2},
		},
	}
	require.NoError(t, db.Create(&order).Error)
	return &user, &order
}

func newDispatcher(db *gorm.DB, sender Sender, maxAttempts int) *Dispatcher {
	return NewDispatcher(db, sender, zap.NewNop(), time.Second, 10, maxAttempts, "admin@example.com")
}

func TestRunOnceDeliversPending(t *testing.T) {
	db := newTestDB(t)
	user, order := seedOrder(t, db)
	require.NoError(t, EnqueueOrder(db, model.NotifyNewOrder, user.ID, order.ID, model.StatusNew))

	sender := &fakeSender{}
	require.NoError(t, newDispatcher(db, sender, 3).RunOnce())

	require.Len(t, sender.sent, 2)
	assert.Equal(t, []string{"buyer@example.com"}, sender.sent[0].To)
	assert.Equal(t, "Thank you for your order", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "apple/iphone")
	assert.Contains(t, sender.sent[0].Body, "Moscow, Tverskaya 1-")
	assert.Contains(t, sender.sent[0].Body, "1000.00")

	// Second row goes to the configured admin address
	assert.Equal(t, []string{"admin@example.com"}, sender.sent[1].To)
	assert.Equal(t, "New order", sender.sent[1].Subject)

	var remaining int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).
		Where("state = ?", model.OutboxPending).Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)

	var sent []model.OutboxMessage
	require.NoError(t, db.Where("state = ?", model.OutboxSent).Find(&sent).Error)
	require.Len(t, sent, 2)
	for _, msg := range sent {
		assert.Equal(t, 1, msg.Attempts)
		assert.NotNil(t, msg.SentAt)
	}
}

func TestRunOnceRetriesThenParks(t *testing.T) {
	db := newTestDB(t)
	user, _ := seedOrder(t, db)
	require.NoError(t, Enqueue(db, model.OutboxMessage{
		Kind:   model.NotifyRegistration,
		UserID: user.ID,
		Token:  "abc123",
	}))

	sender := &fakeSender{err: errors.New("smtp unavailable")}
	dispatcher := newDispatcher(db, sender, 2)

	require.NoError(t, dispatcher.RunOnce())
	var msg model.OutboxMessage
	require.NoError(t, db.First(&msg).Error)
	assert.Equal(t, model.OutboxPending, msg.State)
	assert.Equal(t, 1, msg.Attempts)
	assert.Equal(t, "smtp unavailable", msg.LastError)

	// Attempt cap reached: the row is parked as failed
	require.NoError(t, dispatcher.RunOnce())
	require.NoError(t, db.First(&msg).Error)
	assert.Equal(t, model.OutboxFailed, msg.State)
	assert.Equal(t, 2, msg.Attempts)

	// Parked rows are never picked up again
	require.NoError(t, dispatcher.RunOnce())
	require.NoError(t, db.First(&msg).Error)
	assert.Equal(t, 2, msg.Attempts)
}

func TestRenderTokenMail(t *testing.T) {
	db := newTestDB(t)
	user, _ := seedOrder(t, db)
	require.NoError(t, Enqueue(db, model.OutboxMessage{
		Kind:   model.NotifyPasswordReset,
		UserID: user.ID,
		Token:  "reset-token-1",
	}))

	sender := &fakeSender{}
	require.NoError(t, newDispatcher(db, sender, 3).RunOnce())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Password reset requested", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "reset-token-1")
}

func TestRenderFallsBackToStaffAdmin(t *testing.T) {
	db := newTestDB(t)
	user, order := seedOrder(t, db)
	staff := model.User{
		Email:    "staff@example.com",
		Username: "staff",
		Password: "x",
		Role:     model.RoleBuyer,
		IsStaff:  true,
	}
	require.NoError(t, db.Create(&staff).Error)
	require.NoError(t, EnqueueOrder(db, model.NotifyNewOrder, user.ID, order.ID, model.StatusNew))

	// No configured admin address: fall back to the first staff user
	sender := &fakeSender{}
	dispatcher := NewDispatcher(db, sender, zap.NewNop(), time.Second, 10, 3, "")
	require.NoError(t, dispatcher.RunOnce())

	require.Len(t, sender.sent, 2)
	assert.Equal(t, []string{"staff@example.com"}, sender.sent[1].To)
}
