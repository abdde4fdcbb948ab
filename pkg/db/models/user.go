package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// User is an operator or customer account. Import synthesizes operator
// accounts for salespeople it has not seen before.
type User struct {
	UserID       uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey"`
	Username     string         `gorm:"column:username;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	DisplayName  string         `gorm:"column:display_name;not null;default:''"`
	Role         enums.UserRole `gorm:"column:role;not null;default:viewer"`
	Department   string         `gorm:"column:department;not null;default:''"`
	Email        string         `gorm:"column:email;not null;default:''"`
	Phone        string         `gorm:"column:phone;not null;default:''"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

// Validate reports whether the account satisfies the minimum identity rules.
func (u *User) Validate() bool {
	return len(u.Username) >= 3 && u.PasswordHash != ""
}
