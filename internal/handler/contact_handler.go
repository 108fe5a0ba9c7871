package handler

import (
	"net/http"

	"marketplace-service/internal/middleware"
	"marketplace-service/internal/model"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ContactRequest defines the contact creation/update payload
type ContactRequest struct {
	City      string `json:"city"`
	Street    string `json:"street"`
	House     string `json:"house"`
	Apartment string `json:"apartment"`
	Phone     string `json:"phone"`
}

func (r *ContactRequest) fieldErrors() echo.Map {
	errs := echo.Map{}
	if r.City == "" {
		errs["city"] = "this field is required"
	}
	if r.Street == "" {
		errs["street"] = "this field is required"
	}
	if r.House == "" {
		errs["house"] = "this field is required"
	}
	if r.Phone == "" {
		errs["phone"] = "this field is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ownedContact loads a contact by path id, scoped to the caller
func ownedContact(c echo.Context) (*model.Contact, error) {
	user, _ := middleware.GetUser(c)
	var contact model.Contact
	err := database.GetDB().Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// CreateContact stores a delivery contact for the caller
func CreateContact(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.GetUser(c)

	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if errs := req.fieldErrors(); errs != nil {
		return c.JSON(http.StatusBadRequest, errs)
	}

	contact := model.Contact{
		UserID:    user.ID,
		City:      req.City,
		Street:    req.Street,
		House:     req.House,
		Apartment: req.Apartment,
		Phone:     req.Phone,
	}
	if err := database.GetDB().Create(&contact).Error; err != nil {
		log.Error("Failed to create contact", zap.Uint("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create contact"})
	}

	log.Info("Contact created", zap.Uint("user_id", user.ID), zap.Uint("contact_id", contact.ID))
	return c.JSON(http.StatusCreated, contact)
}

// GetContact returns one of the caller's contacts
func GetContact(c echo.Context) error {
	contact, err := ownedContact(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "contact not found"})
	}
	return c.JSON(http.StatusOK, contact)
}

// UpdateContact replaces one of the caller's contacts
func UpdateContact(c echo.Context) error {
	log := logger.FromContext(c)

	contact, err := ownedContact(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "contact not found"})
	}

	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	// PATCH keeps unsupplied fields, PUT requires the full payload
	if c.Request().Method == http.MethodPut {
		if errs := req.fieldErrors(); errs != nil {
			return c.JSON(http.StatusBadRequest, errs)
		}
	}

	if req.City != "" {
		contact.City = req.City
	}
	if req.Street != "" {
		contact.Street = req.Street
	}
	if req.House != "" {
		contact.House = req.House
	}
	if req.Apartment != "" {
		contact.Apartment = req.Apartment
	}
	if req.Phone != "" {
		contact.Phone = req.Phone
	}

	if err := database.GetDB().Save(contact).Error; err != nil {
		log.Error("Failed to update contact", zap.Uint("contact_id", contact.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update contact"})
	}

	return c.JSON(http.StatusOK, contact)
}

// DeleteContact removes one of the caller's contacts
func DeleteContact(c echo.Context) error {
	log := logger.FromContext(c)

	contact, err := ownedContact(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "contact not found"})
	}

	if err := database.GetDB().Delete(contact).Error; err != nil {
		log.Error("Failed to delete contact", zap.Uint("contact_id", contact.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete contact"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "contact deleted"})
}
