package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartly/storefront-backend/pkg/enums"
	"github.com/kartly/storefront-backend/pkg/types"
)

// Order is written exactly once, when a verified payment settles. The
// razorpay_order_id unique index is what makes settlement exactly-once.
type Order struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       string                `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID            uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Items             []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Subtotal          decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountAmount    decimal.Decimal       `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	TotalAmount       decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency          string                `gorm:"column:currency;not null"`
	ShippingAddress   types.ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_"`
	CouponCode        *string               `gorm:"column:coupon_code"`
	RazorpayOrderID   string                `gorm:"column:razorpay_order_id;not null;uniqueIndex:ux_orders_razorpay_order_id"`
	RazorpayPaymentID string                `gorm:"column:razorpay_payment_id;not null"`
	RazorpaySignature string                `gorm:"column:razorpay_signature;not null"`
	Status            enums.OrderStatus     `gorm:"column:status;not null"`
	PaymentStatus     enums.PaymentStatus   `gorm:"column:payment_status;not null"`
	TrackingNumber    *string               `gorm:"column:tracking_number"`
	DeliveredAt       *time.Time            `gorm:"column:delivered_at"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem holds the product snapshot taken at settlement so history stays
// stable after catalog edits.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	Brand     string          `gorm:"column:brand;not null"`
	Category  string          `gorm:"column:category;not null"`
	Image     string          `gorm:"column:image;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	Position  int             `gorm:"column:position;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
