package models

import (
	"time"
)

type UserRole string

const (
	RoleHomeowner UserRole = "homeowner"
	RoleCleaner   UserRole = "cleaner"
	RoleAdmin     UserRole = "admin"
)

type User struct {
	BaseUUIDModel
	FirstName string   `gorm:"not null"                 json:"firstName"`
	LastName  string   `gorm:"not null"                 json:"lastName"`
	Email     string   `gorm:"not null;uniqueIndex"     json:"email"`
	Phone     string   `                                json:"phone"`
	Role      UserRole `gorm:"not null;default:'homeowner';index" json:"role"`
	IsActive  bool     `gorm:"not null;default:true"    json:"isActive"`
}

// AccountAgeDays returns whole days since the account was created.
func (u *User) AccountAgeDays(now time.Time) int {
	if now.Before(u.CreatedAt) {
		return 0
	}
	return int(now.Sub(u.CreatedAt).Hours() / 24)
}

func (u *User) IsCleaner() bool {
	return u.Role == RoleCleaner
}

func (u *User) IsHomeowner() bool {
	return u.Role == RoleHomeowner
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
