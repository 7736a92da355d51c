package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartly/storefront-backend/pkg/enums"
)

// Coupon codes are stored upper-cased so lookups can be case-insensitive.
// usage_count never exceeds max_usage when max_usage is set.
type Coupon struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string           `gorm:"column:code;not null;uniqueIndex:ux_coupons_code"`
	Type         enums.CouponType `gorm:"column:type;not null"`
	Value        decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	MinCartValue decimal.Decimal  `gorm:"column:min_cart_value;type:numeric(12,2);not null;default:0"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	UsageCount   int              `gorm:"column:usage_count;not null;default:0"`
	MaxUsage     *int             `gorm:"column:max_usage"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Exhausted reports whether the usage limit has been reached.
func (c Coupon) Exhausted() bool {
	return c.MaxUsage != nil && c.UsageCount >= *c.MaxUsage
}
