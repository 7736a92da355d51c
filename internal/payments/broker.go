package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartly/storefront-backend/internal/pricing"
	"github.com/kartly/storefront-backend/pkg/config"
	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/metrics"
	"github.com/kartly/storefront-backend/pkg/razorpay"
	"github.com/kartly/storefront-backend/pkg/redis"
)

const (
	receiptPrefix    = "rcpt_"
	maxReceiptLength = 40
)

// Gateway opens payment sessions at the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	KeyID() string
}

// Broker opens a gateway session for a resolved order and remembers it.
type Broker struct {
	gateway  Gateway
	sessions redis.SessionStore
	currency string
	scale    int32
	ttl      time.Duration
	metrics  *metrics.SettlementMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewBroker wires the payment session broker.
func NewBroker(gateway Gateway, sessions redis.SessionStore, rzp config.RazorpayConfig, settlement config.SettlementConfig, m *metrics.SettlementMetrics, logg *logger.Logger) (*Broker, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if settlement.SessionTTL <= 0 {
		return nil, fmt.Errorf("payment session ttl must be positive")
	}
	if m == nil {
		m = metrics.NewSettlementMetrics(nil)
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Broker{
		gateway:  gateway,
		sessions: sessions,
		currency: rzp.NormalizedCurrency(),
		scale:    rzp.MinorUnitScale,
		ttl:      settlement.SessionTTL,
		metrics:  m,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// CreateSession opens a gateway order for calc.FinalTotal. Nothing is stored
// when the gateway call fails.
func (b *Broker) CreateSession(ctx context.Context, userID uuid.UUID, calc *pricing.OrderCalculation) (*Session, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if calc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order calculation required")
	}
	amount, err := ToMinorUnits(calc.FinalTotal, b.scale)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order amount")
	}
	if amount <= 0 {
		b.metrics.IncSession("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be greater than zero")
	}

	receipt := NewReceipt()
	ctx = b.logg.WithFields(ctx, map[string]any{
		"receipt":      receipt,
		"amount_minor": amount,
		"currency":     b.currency,
	})

	notes := map[string]string{"user_id": userID.String()}
	if code := calc.CouponCode(); code != nil {
		notes["coupon_code"] = *code
	}
	order, err := b.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   amount,
		Currency: b.currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		b.metrics.IncSession("gateway_error")
		b.logg.Error(ctx, "payment session creation failed", err)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment gateway unavailable")
	}

	record := SessionRecord{
		SessionID:        order.ID,
		UserID:           userID,
		AmountMinorUnits: amount,
		FinalTotal:       calc.FinalTotal,
		Currency:         b.currency,
		Receipt:          receipt,
		CouponCode:       calc.CouponCode(),
		CreatedAt:        b.now().UTC(),
	}
	encoded, err := record.encode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment session")
	}
	if err := b.sessions.Set(ctx, b.sessions.PaymentSessionKey(order.ID), encoded, b.ttl); err != nil {
		b.metrics.IncSession("store_error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment session")
	}

	b.metrics.IncSession("created")
	b.logg.Info(b.logg.WithSessionID(ctx, order.ID), "payment session created")

	return &Session{
		SessionID:        order.ID,
		AmountMinorUnits: amount,
		Currency:         b.currency,
		GatewayPublicKey: b.gateway.KeyID(),
		Receipt:          receipt,
	}, nil
}

// LoadSession returns the stored record for sessionID. A missing or expired
// session is reported as CodeSessionExpired.
func (b *Broker) LoadSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	raw, err := b.sessions.Get(ctx, b.sessions.PaymentSessionKey(sessionID))
	if errors.Is(err, redis.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeSessionExpired, "payment session expired or unknown")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment session")
	}
	rec, err := decodeSessionRecord(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode payment session")
	}
	return rec, nil
}

// ToMinorUnits converts a whole-unit amount to the gateway's smallest unit,
// e.g. rupees to paise for scale 2.
func ToMinorUnits(amount decimal.Decimal, scale int32) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount %s is negative", amount)
	}
	minor := amount.Shift(scale)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount, scale)
	}
	return minor.IntPart(), nil
}

// NewReceipt builds a unique receipt id within the gateway's 40 character
// limit.
func NewReceipt() string {
	receipt := receiptPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(receipt) > maxReceiptLength {
		receipt = receipt[:maxReceiptLength]
	}
	return receipt
}
