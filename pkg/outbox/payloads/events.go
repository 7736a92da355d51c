package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartly/storefront-backend/pkg/enums"
)

// OrderConfirmedEvent is emitted once per settled payment.
type OrderConfirmedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	CouponCode  *string         `json:"coupon_code,omitempty"`
	ItemCount   int             `json:"item_count"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

// OrderStatusChangedEvent records an admin-driven fulfilment transition.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	UserID    uuid.UUID         `json:"user_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ChangedAt time.Time         `json:"changed_at"`
}

// NotificationRequestedEvent asks the notification worker to contact the shopper.
type NotificationRequestedEvent struct {
	Kind        enums.NotificationKind `json:"kind"`
	OrderID     uuid.UUID              `json:"order_id"`
	OrderNumber string                 `json:"order_number"`
	UserID      uuid.UUID              `json:"user_id"`
	Email       string                 `json:"email,omitempty"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
	Currency    string                 `json:"currency"`
}
