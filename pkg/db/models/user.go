package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartly/storefront-backend/pkg/enums"
)

// User is the shopper identity. TotalSpent only ever grows, once per settled order.
type User struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email      string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name       string          `gorm:"column:name;not null"`
	Phone      *string         `gorm:"column:phone"`
	Role       enums.UserRole  `gorm:"column:role;not null;default:customer"`
	TotalSpent decimal.Decimal `gorm:"column:total_spent;type:numeric(14,2);not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
