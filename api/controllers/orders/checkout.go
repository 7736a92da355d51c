package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartly/storefront-backend/api/middleware"
	"github.com/kartly/storefront-backend/api/responses"
	"github.com/kartly/storefront-backend/api/validators"
	"github.com/kartly/storefront-backend/internal/payments"
	"github.com/kartly/storefront-backend/internal/pricing"
	"github.com/kartly/storefront-backend/internal/settlement"
	"github.com/kartly/storefront-backend/pkg/checkout"
	"github.com/kartly/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/types"
)

// Pricer recomputes a cart against the catalog.
type Pricer interface {
	Resolve(ctx context.Context, lines []pricing.CartLine, couponCode string) (*pricing.OrderCalculation, error)
}

// SessionOpener opens a gateway payment session for a priced cart.
type SessionOpener interface {
	CreateSession(ctx context.Context, userID uuid.UUID, calc *pricing.OrderCalculation) (*payments.Session, error)
}

// Settler commits a verified payment.
type Settler interface {
	Commit(ctx context.Context, in settlement.CommitInput) (*settlement.CommitResult, error)
}

// cartLineRequest accepts a price from older clients but never reads it.
type cartLineRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	Price     any       `json:"price,omitempty"`
}

func toCartLines(in []cartLineRequest) []pricing.CartLine {
	lines := make([]pricing.CartLine, 0, len(in))
	for _, line := range in {
		lines = append(lines, pricing.CartLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return lines
}

type createOrderRequest struct {
	Items           []cartLineRequest     `json:"items"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	CouponCode      string                `json:"couponCode,omitempty"`
}

func (r *createOrderRequest) Normalize() {
	r.ShippingAddress = r.ShippingAddress.Normalize()
	r.CouponCode = strings.TrimSpace(r.CouponCode)
}

type createOrderResponse struct {
	RazorpayOrderID  string                    `json:"razorpayOrderId"`
	Amount           int64                     `json:"amount"`
	Currency         string                    `json:"currency"`
	Key              string                    `json:"key"`
	Receipt          string                    `json:"receipt"`
	OrderCalculation *pricing.OrderCalculation `json:"orderCalculation"`
	Items            []pricing.ResolvedLine    `json:"items"`
	ShippingAddress  types.ShippingAddress     `json:"shippingAddress"`
	CouponCode       *string                   `json:"couponCode"`
}

// CreateOrder prices the cart from the catalog and opens a payment session
// for the recomputed total. Nothing is persisted besides the session.
func CreateOrder(pricer Pricer, sessions SessionOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pricer == nil || sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines := toCartLines(payload.Items)
		if err := checkout.ValidateLines(lines); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		address := payload.ShippingAddress
		if err := checkout.ValidateShippingAddress(address); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		calc, err := pricer.Resolve(r.Context(), lines, payload.CouponCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := sessions.CreateSession(r.Context(), userID, calc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createOrderResponse{
			RazorpayOrderID:  session.SessionID,
			Amount:           session.AmountMinorUnits,
			Currency:         session.Currency,
			Key:              session.GatewayPublicKey,
			Receipt:          session.Receipt,
			OrderCalculation: calc,
			Items:            calc.ValidatedItems,
			ShippingAddress:  address,
			CouponCode:       calc.CouponCode(),
		})
	}
}

type verifyPaymentRequest struct {
	RazorpayPaymentID string                `json:"razorpayPaymentId"`
	RazorpayOrderID   string                `json:"razorpayOrderId"`
	RazorpaySignature string                `json:"razorpaySignature"`
	Items             []cartLineRequest     `json:"items"`
	ShippingAddress   types.ShippingAddress `json:"shippingAddress"`
	CouponCode        string                `json:"couponCode,omitempty"`
}

// Normalize leaves RazorpaySignature untouched; it is verified byte for byte.
func (r *verifyPaymentRequest) Normalize() {
	r.RazorpayPaymentID = strings.TrimSpace(r.RazorpayPaymentID)
	r.RazorpayOrderID = strings.TrimSpace(r.RazorpayOrderID)
	r.ShippingAddress = r.ShippingAddress.Normalize()
	r.CouponCode = strings.TrimSpace(r.CouponCode)
}

type settledOrder struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"orderNumber"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
}

type verifyPaymentResponse struct {
	Message string       `json:"message"`
	Order   settledOrder `json:"order"`
}

// VerifyPayment settles a gateway receipt. Retrying an already settled
// receipt returns the same order.
func VerifyPayment(settler Settler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if settler == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := settler.Commit(r.Context(), settlement.CommitInput{
			Receipt: settlement.Receipt{
				SessionID: payload.RazorpayOrderID,
				PaymentID: payload.RazorpayPaymentID,
				Signature: payload.RazorpaySignature,
			},
			Lines:           toCartLines(payload.Items),
			ShippingAddress: payload.ShippingAddress,
			CouponCode:      payload.CouponCode,
			UserID:          userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, verifyPaymentResponse{
			Message: "Payment verified successfully",
			Order: settledOrder{
				ID:          result.Order.ID,
				OrderNumber: result.Order.OrderNumber,
				Status:      result.Order.Status,
				TotalAmount: result.Order.TotalAmount,
			},
		})
	}
}
