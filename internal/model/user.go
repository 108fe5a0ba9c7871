package model

import (
	"time"
)

// User roles
const (
	RoleBuyer = "buyer"
	RoleShop  = "shop"
)

// User represents an account in the marketplace
type User struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	Email     string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Username  string    `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	Role      string    `json:"role" gorm:"type:varchar(5);not null;default:'buyer'"`
	IsActive  bool      `json:"is_active" gorm:"default:false"`
	IsStaff   bool      `json:"is_staff" gorm:"default:false"`
	Company   string    `json:"company" gorm:"type:varchar(50)"`
	Position  string    `json:"position" gorm:"type:varchar(50)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidRole reports whether role is one of the accepted user roles
func ValidRole(role string) bool {
	return role == RoleBuyer || role == RoleShop
}

// AuthToken is an opaque bearer token issued at login
type AuthToken struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	Key       string    `json:"key" gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	User      User      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
}

// ConfirmToken is a one-time token mailed out for account confirmation
// and password reset
type ConfirmToken struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	Token     string    `json:"token" gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	User      User      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
}

// Contact holds delivery address details owned by a user
type Contact struct {
	ID        uint   `json:"id" gorm:"primarykey"`
	UserID    uint   `json:"user_id" gorm:"index;not null"`
	User      User   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	City      string `json:"city" gorm:"type:varchar(50);not null"`
	Street    string `json:"street" gorm:"type:varchar(100);not null"`
	House     string `json:"house" gorm:"type:varchar(10);not null"`
	Apartment string `json:"apartment" gorm:"type:varchar(10)"`
	Phone     string `json:"phone" gorm:"type:varchar(20);not null"`
}

// String renders the contact the way it appears in order e-mails
func (c Contact) String() string {
	return c.City + ", " + c.Street + " " + c.House + "-" + c.Apartment + ", tel: " + c.Phone
}
