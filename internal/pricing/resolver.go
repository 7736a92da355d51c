package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartly/storefront-backend/internal/coupons"
	"github.com/kartly/storefront-backend/pkg/checkout"
	"github.com/kartly/storefront-backend/pkg/db/models"
	"github.com/kartly/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
	"github.com/kartly/storefront-backend/pkg/logger"
)

// ProductReader loads catalog entries by id.
type ProductReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// CouponReader looks a coupon up by its case-insensitive code.
type CouponReader interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
}

var hundred = decimal.NewFromInt(100)

// Resolver turns untrusted cart lines into an authoritative OrderCalculation.
// It only reads, so every failure is safe to retry.
type Resolver struct {
	products ProductReader
	coupons  CouponReader
	logg     *logger.Logger
}

// NewResolver wires the pricing resolver.
func NewResolver(products ProductReader, coupons CouponReader, logg *logger.Logger) (*Resolver, error) {
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon reader required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{products: products, coupons: coupons, logg: logg}, nil
}

// Resolve prices lines against the current catalog and applies couponCode
// when it is not blank. Identical inputs against identical catalog state
// always produce identical output.
func (r *Resolver) Resolve(ctx context.Context, lines []CartLine, couponCode string) (*OrderCalculation, error) {
	if err := checkout.ValidateLines(lines); err != nil {
		return nil, err
	}

	items, err := r.resolveLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}

	calc := &OrderCalculation{
		ValidatedItems: items,
		Subtotal:       subtotal,
		DiscountAmount: decimal.Zero,
	}

	if code := strings.TrimSpace(couponCode); code != "" {
		coupon, err := r.eligibleCoupon(ctx, code, subtotal)
		if err != nil {
			return nil, err
		}
		calc.AppliedCoupon = &AppliedCoupon{
			ID:           coupon.ID,
			Code:         coupon.Code,
			Type:         coupon.Type,
			Value:        coupon.Value,
			MinCartValue: coupon.MinCartValue,
		}
		calc.DiscountAmount = Discount(coupon.Type, coupon.Value, subtotal)
	}

	calc.FinalTotal = FinalTotal(calc.Subtotal, calc.DiscountAmount)
	return calc, nil
}

func (r *Resolver) resolveLines(ctx context.Context, lines []CartLine) ([]ResolvedLine, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	catalog, err := r.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	items := make([]ResolvedLine, 0, len(lines))
	for _, line := range lines {
		product, ok := catalog[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, fmt.Sprintf("product %s not found", line.ProductID)).
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if !product.InStock {
			return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("%s is out of stock", product.Name)).
				WithDetails(map[string]any{"product_id": product.ID, "name": product.Name})
		}
		items = append(items, ResolvedLine{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			LineTotal: product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			ProductSnapshot: ProductSnapshot{
				Name:     product.Name,
				Brand:    product.Brand,
				Category: product.Category,
				Image:    product.Image,
				Price:    product.Price,
			},
		})
	}
	return items, nil
}

func (r *Resolver) eligibleCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*models.Coupon, error) {
	coupon, err := r.coupons.FindByCode(ctx, code)
	if errors.Is(err, coupons.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "invalid coupon code")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if !coupon.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "invalid coupon code")
	}
	if subtotal.LessThan(coupon.MinCartValue) {
		return nil, pkgerrors.New(pkgerrors.CodeCouponMinimumNotMet, fmt.Sprintf("minimum ₹%s required", coupon.MinCartValue.String())).
			WithDetails(map[string]any{"min_cart_value": coupon.MinCartValue})
	}
	if coupon.Exhausted() {
		return nil, pkgerrors.New(pkgerrors.CodeCouponExhausted, "coupon usage limit reached")
	}
	if !coupon.Type.IsValid() {
		r.logg.Warn(r.logg.WithField(ctx, "coupon_code", coupon.Code), "coupon has unknown type")
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "invalid coupon code")
	}
	return coupon, nil
}

// Discount computes the coupon discount, never exceeding subtotal.
func Discount(kind enums.CouponType, value, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch kind {
	case enums.CouponTypeFlat:
		discount = value
	case enums.CouponTypePercentage:
		discount = subtotal.Mul(value).Div(hundred)
	default:
		return decimal.Zero
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(discount, subtotal)
}

// FinalTotal rounds subtotal-discount to whole currency units (half away from
// zero) and clamps it at zero.
func FinalTotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount).Round(0)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
