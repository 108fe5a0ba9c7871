package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"marketplace-service/internal/middleware"
	"marketplace-service/internal/model"
	"marketplace-service/internal/notify"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterRequest defines the registration payload
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Company  string `json:"company"`
	Position string `json:"position"`
	Role     string `json:"role"`
}

// randomToken returns an opaque 40-character hex token
func randomToken() string {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// Register creates an inactive account and mails out a confirmation token
func Register(c echo.Context) error {
	log := logger.FromContext(c)

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	fieldErrors := echo.Map{}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		fieldErrors["email"] = "a valid email is required"
	}
	if req.Username == "" {
		fieldErrors["username"] = "this field is required"
	}
	if len(req.Password) < 8 {
		fieldErrors["password"] = "password must be at least 8 characters"
	}
	if req.Role == "" {
		req.Role = model.RoleBuyer
	}
	if !model.ValidRole(req.Role) {
		fieldErrors["role"] = `role must be "buyer" or "shop"`
	}
	if len(fieldErrors) > 0 {
		return c.JSON(http.StatusBadRequest, fieldErrors)
	}

	var count int64
	database.GetDB().Model(&model.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		log.Warn("Registration with existing email", zap.String("email", req.Email))
		return c.JSON(http.StatusBadRequest, echo.Map{"email": "a user with this email already exists"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	user := model.User{
		Email:    req.Email,
		Username: req.Username,
		Password: string(hash),
		Role:     req.Role,
		Company:  req.Company,
		Position: req.Position,
	}
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		token := model.ConfirmToken{Token: randomToken(), UserID: user.ID}
		if err := tx.Create(&token).Error; err != nil {
			return err
		}
		return notify.Enqueue(tx, model.OutboxMessage{
			Kind:   model.NotifyRegistration,
			UserID: user.ID,
			Token:  token.Token,
		})
	})
	if err != nil {
		log.Error("Failed to register user", zap.String("email", req.Email), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to register user"})
	}

	log.Info("User registered", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "registration successful, confirmation instructions have been sent by email",
	})
}

// ConfirmAccount activates an account using the mailed token
func ConfirmAccount(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email string `json:"email"`
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and token are required"})
	}

	var token model.ConfirmToken
	err := database.GetDB().
		Joins("JOIN users ON users.id = confirm_tokens.user_id").
		Where("users.email = ? AND confirm_tokens.token = ?", req.Email, req.Token).
		First(&token).Error
	if err != nil {
		log.Warn("Account confirmation with bad token", zap.String("email", req.Email))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email or token"})
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.User{}).Where("id = ?", token.UserID).Update("is_active", true).Error; err != nil {
			return err
		}
		if err := tx.Delete(&token).Error; err != nil {
			return err
		}
		return notify.Enqueue(tx, model.OutboxMessage{
			Kind:   model.NotifyAccountConfirmed,
			UserID: token.UserID,
		})
	})
	if err != nil {
		log.Error("Failed to confirm account", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to confirm account"})
	}

	log.Info("Account confirmed", zap.Uint("user_id", token.UserID))
	return c.JSON(http.StatusOK, echo.Map{"message": "account confirmed"})
}

// Login verifies credentials and issues an opaque bearer token
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AuthAttemptsCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	var user model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Warn("Login for unknown email", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Login with invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if !user.IsActive {
		log.Warn("Login for unconfirmed account", zap.String("email", req.Email))
		prometheus.RecordAuthError("account_inactive")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is not confirmed"})
	}

	// One token per user; re-login returns the existing token
	var token model.AuthToken
	err := database.GetDB().Where("user_id = ?", user.ID).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		token = model.AuthToken{Key: randomToken(), UserID: user.ID}
		err = database.GetDB().Create(&token).Error
	}
	if err != nil {
		log.Error("Failed to issue token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}

	log.Info("User logged in", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return c.JSON(http.StatusOK, echo.Map{
		"username": user.Username,
		"email":    user.Email,
		"token":    token.Key,
	})
}

// Logout revokes the caller's token
func Logout(c echo.Context) error {
	log := logger.FromContext(c)

	key, _ := c.Get("token_key").(string)
	if err := database.GetDB().Where("key = ?", key).Delete(&model.AuthToken{}).Error; err != nil {
		log.Error("Failed to revoke token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to log out"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// ResetPassword mails a password-reset token to a known account
func ResetPassword(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"email": "this field is required"})
	}

	var user model.User
	if err := database.GetDB().Where("email = ?", req.Email).First(&user).Error; err != nil {
		log.Warn("Password reset for unknown email", zap.String("email", req.Email))
		return c.JSON(http.StatusBadRequest, echo.Map{"email": "no user with this email"})
	}

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var token model.ConfirmToken
		err := tx.Where("user_id = ?", user.ID).First(&token).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			token = model.ConfirmToken{Token: randomToken(), UserID: user.ID}
			err = tx.Create(&token).Error
		}
		if err != nil {
			return err
		}
		return notify.Enqueue(tx, model.OutboxMessage{
			Kind:   model.NotifyPasswordReset,
			UserID: user.ID,
			Token:  token.Token,
		})
	})
	if err != nil {
		log.Error("Failed to start password reset", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start password reset"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password reset instructions have been sent by email"})
}

// ResetPasswordConfirm sets a new password using the mailed token and
// revokes every auth token so the user has to log in again
func ResetPasswordConfirm(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email    string `json:"email"`
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, token and password are required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"password": "password must be at least 8 characters"})
	}

	var token model.ConfirmToken
	err := database.GetDB().
		Joins("JOIN users ON users.id = confirm_tokens.user_id").
		Where("users.email = ? AND confirm_tokens.token = ?", req.Email, req.Token).
		First(&token).Error
	if err != nil {
		log.Warn("Password reset with bad token", zap.String("email", req.Email))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email or token"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.User{}).Where("id = ?", token.UserID).Update("password", string(hash)).Error; err != nil {
			return err
		}
		if err := tx.Delete(&token).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", token.UserID).Delete(&model.AuthToken{}).Error; err != nil {
			return err
		}
		return notify.Enqueue(tx, model.OutboxMessage{
			Kind:   model.NotifyPasswordChanged,
			UserID: token.UserID,
		})
	})
	if err != nil {
		log.Error("Failed to reset password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reset password"})
	}

	log.Info("Password reset", zap.Uint("user_id", token.UserID))
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated, please log in again"})
}

// GetProfile returns the caller's profile
func GetProfile(c echo.Context) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile partially updates the caller's profile. Changing the
// password revokes existing tokens.
func UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)
	user, ok := middleware.GetUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Username *string `json:"username"`
		Company  *string `json:"company"`
		Position *string `json:"position"`
		Password *string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		if *req.Username == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"username": "this field may not be blank"})
		}
		updates["username"] = *req.Username
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	passwordChanged := false
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return c.JSON(http.StatusBadRequest, echo.Map{"password": "password must be at least 8 characters"})
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
		}
		updates["password"] = string(hash)
		passwordChanged = true
	}

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}
		if passwordChanged {
			return tx.Where("user_id = ?", user.ID).Delete(&model.AuthToken{}).Error
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to update profile", zap.Uint("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}

	var fresh model.User
	if err := database.GetDB().First(&fresh, user.ID).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load profile"})
	}
	return c.JSON(http.StatusOK, fresh)
}
