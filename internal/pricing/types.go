package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartly/storefront-backend/pkg/checkout"
	"github.com/kartly/storefront-backend/pkg/enums"
)

// CartLine is the untrusted (productId, quantity) pair sent by the client.
type CartLine = checkout.CartLine

// ProductSnapshot is the catalog data frozen into an order line.
type ProductSnapshot struct {
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
}

// ResolvedLine is a cart line priced from the catalog.
type ResolvedLine struct {
	ProductID       uuid.UUID       `json:"productId"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
	ProductSnapshot ProductSnapshot `json:"productSnapshot"`
}

// AppliedCoupon is the coupon that produced DiscountAmount.
type AppliedCoupon struct {
	ID           uuid.UUID        `json:"-"`
	Code         string           `json:"code"`
	Type         enums.CouponType `json:"type"`
	Value        decimal.Decimal  `json:"value"`
	MinCartValue decimal.Decimal  `json:"minCartValue"`
}

// OrderCalculation is recomputed on every call and never trusted from an
// earlier request. FinalTotal = max(0, Subtotal-DiscountAmount) in whole units.
type OrderCalculation struct {
	ValidatedItems []ResolvedLine  `json:"validatedItems"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	AppliedCoupon  *AppliedCoupon  `json:"appliedCoupon"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
}

// CouponCode returns the applied code or nil.
func (c *OrderCalculation) CouponCode() *string {
	if c == nil || c.AppliedCoupon == nil {
		return nil
	}
	code := c.AppliedCoupon.Code
	return &code
}
