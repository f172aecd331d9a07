// Package models contains data structures for the gate-pass domain.
package models

import (
	"strings"
	"time"
)

// Resident statuses. Stored values are free-form; these are the ones the
// transition table knows about.
const (
	UserStatusIn   = "in"
	UserStatusOut  = "out"
	UserStatusHome = "home"
)

// DefaultUserRole is applied when a user or request is created without a role.
const DefaultUserRole = "Student"

// User is a campus resident, visitor or staff member.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Password  string    `gorm:"type:text;not null" json:"-"`
	Image     *string   `gorm:"type:text" json:"image"`
	Phone     *string   `gorm:"size:15" json:"phone"`
	Role      string    `gorm:"size:50;default:'Student'" json:"role"`
	Status    string    `gorm:"size:20;default:'in'" json:"status"`
	Offences  int       `gorm:"default:0" json:"offences"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// HasPhone reports whether the user can receive SMS notifications.
func (u User) HasPhone() bool {
	return u.Phone != nil && strings.TrimSpace(*u.Phone) != ""
}
