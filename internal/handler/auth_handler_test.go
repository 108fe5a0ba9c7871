package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"marketplace-service/internal/middleware"
	"marketplace-service/internal/model"
	"marketplace-service/pkg/config"
	"marketplace-service/pkg/database"
	"marketplace-service/prometheus"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "handlertest"}})
	os.Exit(m.Run())
}

// setupTestDB installs a fresh embedded database as the global handle
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.Set(db)
	return db
}

func doJSON(t *testing.T, handler echo.HandlerFunc, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegisterConfirmLoginFlow(t *testing.T) {
	db := setupTestDB(t)

	rec := doJSON(t, Register, http.MethodPost, "/api/users/register",
		`{"email":"buyer@example.com","username":"buyer","password":"secret-password","role":"buyer"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	// The account starts inactive with a confirmation token enqueued
	var user model.User
	require.NoError(t, db.Where("email = ?", "buyer@example.com").First(&user).Error)
	assert.False(t, user.IsActive)

	var outbox model.OutboxMessage
	require.NoError(t, db.Where("kind = ?", model.NotifyRegistration).First(&outbox).Error)
	assert.Equal(t, user.ID, outbox.UserID)
	require.NotEmpty(t, outbox.Token)

	// Login before confirmation is refused
	rec = doJSON(t, Login, http.MethodPost, "/api/users/login",
		`{"email":"buyer@example.com","password":"secret-password"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, ConfirmAccount, http.MethodPost, "/api/users/register/confirm",
		`{"email":"buyer@example.com","token":"`+outbox.Token+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, Login, http.MethodPost, "/api/users/login",
		`{"email":"buyer@example.com","password":"secret-password"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	// Re-login hands back the same token
	rec = doJSON(t, Login, http.MethodPost, "/api/users/login",
		`{"email":"buyer@example.com","password":"secret-password"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, token, decodeBody(t, rec)["token"])

	// The token authenticates protected endpoints
	rec = doJSON(t, middleware.AuthMiddleware(GetProfile), http.MethodGet, "/api/users/profile", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "buyer@example.com", decodeBody(t, rec)["email"])

	// Logout revokes it
	rec = doJSON(t, middleware.AuthMiddleware(Logout), http.MethodPost, "/api/users/logout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, middleware.AuthMiddleware(GetProfile), http.MethodGet, "/api/users/profile", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	setupTestDB(t)

	rec := doJSON(t, Register, http.MethodPost, "/api/users/register",
		`{"email":"not-an-email","username":"","password":"short","role":"admin"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body, "email")
	assert.Contains(t, body, "username")
	assert.Contains(t, body, "password")
	assert.Contains(t, body, "role")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	setupTestDB(t)

	payload := `{"email":"dup@example.com","username":"first","password":"secret-password"}`
	rec := doJSON(t, Register, http.MethodPost, "/api/users/register", payload, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, Register, http.MethodPost, "/api/users/register",
		`{"email":"dup@example.com","username":"second","password":"secret-password"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "email")
}

func TestResetPasswordRevokesTokens(t *testing.T) {
	db := setupTestDB(t)

	rec := doJSON(t, Register, http.MethodPost, "/api/users/register",
		`{"email":"buyer@example.com","username":"buyer","password":"secret-password"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, db.Model(&model.User{}).
		Where("email = ?", "buyer@example.com").Update("is_active", true).Error)

	rec = doJSON(t, Login, http.MethodPost, "/api/users/login",
		`{"email":"buyer@example.com","password":"secret-password"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	oldToken, _ := decodeBody(t, rec)["token"].(string)

	rec = doJSON(t, ResetPassword, http.MethodPost, "/api/users/reset-password",
		`{"email":"buyer@example.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resetMsg model.OutboxMessage
	require.NoError(t, db.Where("kind = ?", model.NotifyPasswordReset).First(&resetMsg).Error)
	require.NotEmpty(t, resetMsg.Token)

	rec = doJSON(t, ResetPasswordConfirm, http.MethodPost, "/api/users/reset-password/confirm",
		`{"email":"buyer@example.com","token":"`+resetMsg.Token+`","password":"brand-new-password"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Old bearer token no longer works, new password does
	rec = doJSON(t, middleware.AuthMiddleware(GetProfile), http.MethodGet, "/api/users/profile", "", oldToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, Login, http.MethodPost, "/api/users/login",
		`{"email":"buyer@example.com","password":"brand-new-password"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var changed model.OutboxMessage
	assert.NoError(t, db.Where("kind = ?", model.NotifyPasswordChanged).First(&changed).Error)
}
