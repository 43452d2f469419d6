package model

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NormalizeEmail lowercases and trims the email string.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var (
	ErrInvalidPassword = fmt.Errorf("invalid password")
	ErrUnauthorized    = fmt.Errorf("unauthorized")
)

// Roles. Approving or rejecting proformas and crediting invoices require an
// elevated role; plain clerks record documents and payments.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleClerk   = "clerk"
)

// HasCapability reports whether the role is in the allowed set. The check is
// a plain lookup; callers inject it at the HTTP edge, it is never consulted
// inside the model so that tests can exercise every transition directly.
func HasCapability(role string, allowed ...string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// User represents an application user.
type User struct {
	gorm.Model
	Email       string `gorm:"uniqueIndex;not null"` // always stored lowercase
	FullName    string
	Password    string `gorm:"not null"`
	Role        string `gorm:"type:text;not null;default:clerk"`
	Verified    bool   `gorm:"not null;default:false"`
	LastLoginAt *time.Time
	OwnerID     uint
}

// BeforeSave normalizes the email before writing.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

func (s *Store) TouchLastLogin(u *User) error {
	now := time.Now().UTC()
	u.LastLoginAt = &now
	return s.db.Model(u).Update("last_login_at", now).Error
}

// AuthenticateUser checks email and password and returns the user.
func (s *Store) AuthenticateUser(email, password string) (*User, error) {
	email = NormalizeEmail(email)
	user, err := s.GetUserByEMail(email)
	if err != nil {
		return nil, err
	}
	if !s.CheckPassword(user, password) {
		return nil, ErrInvalidPassword
	}
	return user, nil
}

func (s *Store) GetUserByID(id any) (*User, error) {
	var user User
	if id == nil {
		return nil, fmt.Errorf("user ID cannot be nil")
	}
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEMail(email string) (*User, error) {
	email = NormalizeEmail(email)
	var user User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetPassword hashes and stores the password on the struct (not persisted).
func (s *Store) SetPassword(u *User, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (s *Store) CheckPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// CreateUser stores a new user with a hashed password.
func (s *Store) CreateUser(u *User, password string) error {
	if err := s.SetPassword(u, password); err != nil {
		return err
	}
	if u.Role == "" {
		u.Role = RoleClerk
	}
	if err := s.db.Create(u).Error; err != nil {
		return err
	}
	if u.OwnerID == 0 {
		u.OwnerID = u.ID
		return s.db.Model(u).Update("owner_id", u.ID).Error
	}
	return nil
}
