package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry checked out by shoppers. Price is authoritative;
// carts never carry their own prices.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Brand       string          `gorm:"column:brand;not null;default:''"`
	Category    string          `gorm:"column:category;not null;default:''"`
	Image       string          `gorm:"column:image;not null;default:''"`
	Description *string         `gorm:"column:description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	InStock     bool            `gorm:"column:in_stock;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
