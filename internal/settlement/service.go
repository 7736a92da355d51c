package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartly/storefront-backend/internal/coupons"
	"github.com/kartly/storefront-backend/internal/orders"
	"github.com/kartly/storefront-backend/internal/payments"
	"github.com/kartly/storefront-backend/internal/pricing"
	"github.com/kartly/storefront-backend/internal/users"
	"github.com/kartly/storefront-backend/pkg/checkout"
	"github.com/kartly/storefront-backend/pkg/config"
	"github.com/kartly/storefront-backend/pkg/db"
	"github.com/kartly/storefront-backend/pkg/db/models"
	"github.com/kartly/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/metrics"
	"github.com/kartly/storefront-backend/pkg/outbox"
	"github.com/kartly/storefront-backend/pkg/outbox/payloads"
	"github.com/kartly/storefront-backend/pkg/redis"
	"github.com/kartly/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (uuid.UUID, error)
}

// Resolver prices a cart against the current catalog.
type Resolver interface {
	Resolve(ctx context.Context, lines []pricing.CartLine, couponCode string) (*pricing.OrderCalculation, error)
}

// SessionLoader returns the stored payment session.
type SessionLoader interface {
	LoadSession(ctx context.Context, sessionID string) (*payments.SessionRecord, error)
}

// SignatureVerifier checks a gateway receipt signature.
type SignatureVerifier interface {
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// Notifier asks for the order confirmation message.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

// Receipt is what the gateway hands the storefront after a payment.
type Receipt struct {
	SessionID string
	PaymentID string
	Signature string
}

// CommitInput carries a verify-payment request.
type CommitInput struct {
	Receipt         Receipt
	Lines           []pricing.CartLine
	ShippingAddress types.ShippingAddress
	CouponCode      string
	UserID          uuid.UUID
}

// CommitResult is the settled order. Replayed is true when the session had
// already been settled with the same payment and nothing new was written.
type CommitResult struct {
	Order    *models.Order
	Replayed bool
}

// Deps groups the collaborators of the settlement service.
type Deps struct {
	Resolver  Resolver
	Sessions  SessionLoader
	Verifier  SignatureVerifier
	Locker    redis.Locker
	Tx        txRunner
	Orders    orders.Repository
	Coupons   coupons.Repository
	Users     *users.Repository
	Outbox    outboxPublisher
	Notifier  Notifier
	Metrics   *metrics.SettlementMetrics
	Logger    *logger.Logger
	Razorpay  config.RazorpayConfig
	Config    config.SettlementConfig
	Ownership bool
}

// Service turns a verified payment into exactly one persisted order.
type Service struct {
	deps Deps
	now  func() time.Time
}

var errDuplicateOrder = errors.New("order already exists for session")

// NewService validates deps and builds the settlement service.
func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Resolver == nil:
		return nil, fmt.Errorf("pricing resolver required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session loader required")
	case deps.Verifier == nil:
		return nil, fmt.Errorf("signature verifier required")
	case deps.Locker == nil:
		return nil, fmt.Errorf("settlement locker required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Coupons == nil:
		return nil, fmt.Errorf("coupons repository required")
	case deps.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case deps.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	}
	if deps.Config.LockTTL <= 0 {
		return nil, fmt.Errorf("settlement lock ttl must be positive")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewSettlementMetrics(nil)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &Service{deps: deps, now: time.Now}, nil
}

// Commit verifies the receipt, re-prices the cart and writes the order, the
// coupon usage and the user's lifetime spend in one transaction. The
// confirmation notification is requested after commit and its failure is only
// logged.
func (s *Service) Commit(ctx context.Context, in CommitInput) (result *CommitResult, err error) {
	started := s.now()
	in = normalize(in)
	ctx = s.deps.Logger.WithSessionID(ctx, in.Receipt.SessionID)
	defer func() {
		s.deps.Metrics.ObserveDuration(s.now().Sub(started))
		s.record(ctx, result, err)
	}()

	if err := validate(in); err != nil {
		return nil, err
	}

	if !s.deps.Verifier.VerifyPaymentSignature(in.Receipt.SessionID, in.Receipt.PaymentID, in.Receipt.Signature) {
		s.deps.Metrics.IncSignatureFailure()
		s.deps.Logger.Warn(s.deps.Logger.WithFields(ctx, map[string]any{
			"event":      "settlement.signature_invalid",
			"payment_id": in.Receipt.PaymentID,
			"user_id":    in.UserID.String(),
		}), "payment signature mismatch")
		return nil, pkgerrors.New(pkgerrors.CodePaymentSignatureInvalid, "payment verification failed")
	}

	if replay, err := s.existing(ctx, in); replay != nil || err != nil {
		return replay, err
	}

	session, err := s.deps.Sessions.LoadSession(ctx, in.Receipt.SessionID)
	if err != nil {
		return nil, err
	}
	if s.deps.Ownership && session.UserID != in.UserID {
		s.deps.Logger.Warn(s.deps.Logger.WithField(ctx, "user_id", in.UserID.String()), "payment session owned by another user")
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment session belongs to another user")
	}

	lockKey := s.deps.Locker.SettlementLockKey(in.Receipt.SessionID)
	token := uuid.NewString()
	acquired, err := s.deps.Locker.AcquireLock(ctx, lockKey, token, s.deps.Config.LockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire settlement lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "settlement already in progress")
	}
	defer func() {
		if relErr := s.deps.Locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); relErr != nil {
			s.deps.Logger.Error(ctx, "failed to release settlement lock", relErr)
		}
	}()

	// A concurrent request may have committed between the first lookup and
	// taking the lock.
	if replay, err := s.existing(ctx, in); replay != nil || err != nil {
		return replay, err
	}

	calc, err := s.deps.Resolver.Resolve(ctx, in.Lines, in.CouponCode)
	if err != nil {
		return nil, err
	}
	if !calc.FinalTotal.Equal(session.FinalTotal) {
		s.deps.Metrics.IncPriceDrift()
		s.deps.Logger.Warn(s.deps.Logger.WithFields(ctx, map[string]any{
			"session_total": session.FinalTotal.String(),
			"current_total": calc.FinalTotal.String(),
		}), "settling at current price, total changed since session creation")
	}

	order := s.buildOrder(in, calc, session)
	err = s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		if calc.AppliedCoupon != nil {
			claimed, err := s.deps.Coupons.WithTx(tx).IncrementUsage(ctx, calc.AppliedCoupon.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "claim coupon usage")
			}
			if !claimed {
				return pkgerrors.New(pkgerrors.CodeCouponExhausted, "coupon usage limit reached")
			}
		}
		if err := s.deps.Orders.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errDuplicateOrder
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist order")
		}
		if err := s.deps.Users.WithTx(tx).IncrementTotalSpent(ctx, in.UserID, order.TotalAmount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update lifetime spend")
		}
		_, err := s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: in.UserID, Role: string(enums.UserRoleCustomer)},
			OccurredAt:    order.CreatedAt,
			Data: payloads.OrderConfirmedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				TotalAmount: order.TotalAmount,
				Currency:    order.Currency,
				CouponCode:  order.CouponCode,
				ItemCount:   len(order.Items),
				ConfirmedAt: order.CreatedAt,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "queue order confirmed event")
		}
		return nil
	})
	if errors.Is(err, errDuplicateOrder) {
		replay, lookupErr := s.existing(ctx, in)
		if lookupErr != nil || replay != nil {
			return replay, lookupErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist order")
	}
	if err != nil {
		return nil, err
	}

	logCtx := s.deps.Logger.WithOrderID(ctx, order.ID.String())
	s.deps.Logger.Info(s.deps.Logger.WithFields(logCtx, map[string]any{
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.String(),
	}), "order settled")

	if err := s.deps.Notifier.SendOrderConfirmation(ctx, order); err != nil {
		s.deps.Logger.Error(logCtx, "order confirmation notification failed", err)
	}
	return &CommitResult{Order: order}, nil
}

// existing returns the order already settled for the session, if any. The
// same payment replays it; anything else is a conflict.
func (s *Service) existing(ctx context.Context, in CommitInput) (*CommitResult, error) {
	order, err := s.deps.Orders.FindByRazorpayOrderID(ctx, in.Receipt.SessionID)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up settled order")
	}
	if order.UserID != in.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment session belongs to another user")
	}
	if order.RazorpayPaymentID != in.Receipt.PaymentID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment session already settled with a different payment")
	}
	s.deps.Logger.Info(s.deps.Logger.WithOrderID(ctx, order.ID.String()), "settlement replayed")
	return &CommitResult{Order: order, Replayed: true}, nil
}

func (s *Service) buildOrder(in CommitInput, calc *pricing.OrderCalculation, session *payments.SessionRecord) *models.Order {
	now := s.now().UTC()
	id := uuid.New()
	currency := session.Currency
	if currency == "" {
		currency = s.deps.Razorpay.NormalizedCurrency()
	}
	items := make([]models.OrderItem, 0, len(calc.ValidatedItems))
	for i, line := range calc.ValidatedItems {
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   id,
			ProductID: line.ProductID,
			Name:      line.ProductSnapshot.Name,
			Brand:     line.ProductSnapshot.Brand,
			Category:  line.ProductSnapshot.Category,
			Image:     line.ProductSnapshot.Image,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
			Position:  i,
			CreatedAt: now,
		})
	}
	return &models.Order{
		ID:                id,
		OrderNumber:       orders.NewOrderNumber(id, now),
		UserID:            in.UserID,
		Items:             items,
		Subtotal:          calc.Subtotal,
		DiscountAmount:    calc.DiscountAmount,
		TotalAmount:       calc.FinalTotal,
		Currency:          currency,
		ShippingAddress:   in.ShippingAddress,
		CouponCode:        calc.CouponCode(),
		RazorpayOrderID:   in.Receipt.SessionID,
		RazorpayPaymentID: in.Receipt.PaymentID,
		RazorpaySignature: in.Receipt.Signature,
		Status:            enums.OrderStatusConfirmed,
		PaymentStatus:     enums.PaymentStatusCompleted,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (s *Service) record(ctx context.Context, result *CommitResult, err error) {
	switch {
	case err == nil && result != nil && result.Replayed:
		s.deps.Metrics.IncSettlement(metrics.OutcomeReplayed, "")
	case err == nil:
		s.deps.Metrics.IncSettlement(metrics.OutcomeCommitted, "")
	default:
		code := pkgerrors.CodeInternal
		if typed := pkgerrors.As(err); typed != nil {
			code = typed.Code()
		}
		outcome := metrics.OutcomeRejected
		if pkgerrors.MetadataFor(code).HTTPStatus >= 500 {
			outcome = metrics.OutcomeFailed
			s.deps.Logger.Error(ctx, "settlement failed", err)
		}
		s.deps.Metrics.IncSettlement(outcome, string(code))
	}
}

// normalize trims identifiers and the address. The signature is left as
// received so it is verified byte for byte.
func normalize(in CommitInput) CommitInput {
	in.Receipt.SessionID = strings.TrimSpace(in.Receipt.SessionID)
	in.Receipt.PaymentID = strings.TrimSpace(in.Receipt.PaymentID)
	in.CouponCode = strings.TrimSpace(in.CouponCode)
	in.ShippingAddress = in.ShippingAddress.Normalize()
	return in
}

func validate(in CommitInput) error {
	if in.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	var missing []string
	if in.Receipt.PaymentID == "" {
		missing = append(missing, "razorpayPaymentId")
	}
	if in.Receipt.SessionID == "" {
		missing = append(missing, "razorpayOrderId")
	}
	if in.Receipt.Signature == "" {
		missing = append(missing, "razorpaySignature")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing payment details").WithDetails(map[string]any{
			"missing": missing,
		})
	}
	if err := checkout.ValidateLines(in.Lines); err != nil {
		return err
	}
	return checkout.ValidateShippingAddress(in.ShippingAddress)
}
