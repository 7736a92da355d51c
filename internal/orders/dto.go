package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartly/storefront-backend/pkg/db/models"
	"github.com/kartly/storefront-backend/pkg/enums"
	"github.com/kartly/storefront-backend/pkg/types"
)

// OrderSummary is the row shown in the shopper's order history.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"orderNumber"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	Currency      string              `json:"currency"`
	ItemCount     int                 `json:"itemCount"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// OrderItemView is an immutable line snapshot.
type OrderItemView struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Category  string          `json:"category"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// OrderDetail is the full order as returned to its owner or an admin.
type OrderDetail struct {
	ID                uuid.UUID             `json:"id"`
	OrderNumber       string                `json:"orderNumber"`
	Status            enums.OrderStatus     `json:"status"`
	PaymentStatus     enums.PaymentStatus   `json:"paymentStatus"`
	Items             []OrderItemView       `json:"items"`
	Subtotal          decimal.Decimal       `json:"subtotal"`
	DiscountAmount    decimal.Decimal       `json:"discountAmount"`
	TotalAmount       decimal.Decimal       `json:"totalAmount"`
	Currency          string                `json:"currency"`
	CouponCode        *string               `json:"couponCode,omitempty"`
	ShippingAddress   types.ShippingAddress `json:"shippingAddress"`
	RazorpayOrderID   string                `json:"razorpayOrderId"`
	RazorpayPaymentID string                `json:"razorpayPaymentId"`
	TrackingNumber    *string               `json:"trackingNumber,omitempty"`
	DeliveredAt       *time.Time            `json:"deliveredAt,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// NewOrderSummary projects an order row into its history entry.
func NewOrderSummary(order models.Order) OrderSummary {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	return OrderSummary{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		ItemCount:     count,
		CreatedAt:     order.CreatedAt,
	}
}

// NewOrderDetail projects an order and its items. The signature is never
// echoed back.
func NewOrderDetail(order *models.Order) *OrderDetail {
	if order == nil {
		return nil
	}
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemView{
			ProductID: item.ProductID,
			Name:      item.Name,
			Brand:     item.Brand,
			Category:  item.Category,
			Image:     item.Image,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	return &OrderDetail{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		PaymentStatus:     order.PaymentStatus,
		Items:             items,
		Subtotal:          order.Subtotal,
		DiscountAmount:    order.DiscountAmount,
		TotalAmount:       order.TotalAmount,
		Currency:          order.Currency,
		CouponCode:        order.CouponCode,
		ShippingAddress:   order.ShippingAddress,
		RazorpayOrderID:   order.RazorpayOrderID,
		RazorpayPaymentID: order.RazorpayPaymentID,
		TrackingNumber:    order.TrackingNumber,
		DeliveredAt:       order.DeliveredAt,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}
