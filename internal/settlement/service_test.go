package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kartly/storefront-backend/internal/coupons"
	"github.com/kartly/storefront-backend/internal/notifications"
	"github.com/kartly/storefront-backend/internal/orders"
	"github.com/kartly/storefront-backend/internal/payments"
	"github.com/kartly/storefront-backend/internal/pricing"
	"github.com/kartly/storefront-backend/internal/products"
	"github.com/kartly/storefront-backend/internal/users"
	"github.com/kartly/storefront-backend/pkg/config"
	"github.com/kartly/storefront-backend/pkg/db"
	"github.com/kartly/storefront-backend/pkg/db/dbtest"
	"github.com/kartly/storefront-backend/pkg/db/models"
	"github.com/kartly/storefront-backend/pkg/enums"
	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/metrics"
	"github.com/kartly/storefront-backend/pkg/outbox"
	"github.com/kartly/storefront-backend/pkg/razorpay"
	"github.com/kartly/storefront-backend/pkg/redis/redistest"
	"github.com/kartly/storefront-backend/pkg/types"
)

const testSecret = "rzp_test_secret"

type sequentialGateway struct {
	n atomic.Int64
}

func (g *sequentialGateway) CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	return &razorpay.Order{ID: fmt.Sprintf("order_T%04d", g.n.Add(1)), Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt}, nil
}

func (g *sequentialGateway) KeyID() string { return "rzp_test_key" }

type countingNotifier struct {
	inner Notifier
	calls int
	err   error
}

func (n *countingNotifier) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	n.calls++
	if n.err != nil {
		return n.err
	}
	if n.inner != nil {
		return n.inner.SendOrderConfirmation(ctx, order)
	}
	return nil
}

// staleResolver replays a calculation taken earlier, as if two settlements
// priced their carts before either committed.
type staleResolver struct {
	calc *pricing.OrderCalculation
}

func (r staleResolver) Resolve(ctx context.Context, lines []pricing.CartLine, couponCode string) (*pricing.OrderCalculation, error) {
	return r.calc, nil
}

type fixture struct {
	t        *testing.T
	conn     *gorm.DB
	store    *redistest.Store
	broker   *payments.Broker
	resolver *pricing.Resolver
	notifier *countingNotifier
	registry *prometheus.Registry
	deps     Deps
	svc      *Service
	user     *models.User
	mug      *models.Product
	lamp     *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	store := redistest.New()
	reg := prometheus.NewRegistry()
	m := metrics.NewSettlementMetrics(reg)
	rzpCfg := config.RazorpayConfig{KeyID: "rzp_test_key", KeySecret: testSecret, Currency: "INR", MinorUnitScale: 2}
	settleCfg := config.SettlementConfig{SessionTTL: 30 * time.Minute, LockTTL: 30 * time.Second}

	resolver, err := pricing.NewResolver(products.NewRepository(conn), coupons.NewRepository(conn), logger.Nop())
	require.NoError(t, err)
	broker, err := payments.NewBroker(&sequentialGateway{}, store, rzpCfg, settleCfg, m, logger.Nop())
	require.NoError(t, err)
	verifier, err := razorpay.NewClient(rzpCfg, nil, logger.Nop())
	require.NoError(t, err)

	client := db.FromConn(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logger.Nop())
	usersRepo := users.NewRepository(conn)
	realNotifier, err := notifications.NewNotifier(client, outboxSvc, usersRepo)
	require.NoError(t, err)
	notifier := &countingNotifier{inner: realNotifier}

	f := &fixture{
		t:        t,
		conn:     conn,
		store:    store,
		broker:   broker,
		resolver: resolver,
		notifier: notifier,
		registry: reg,
		user:     dbtest.SeedUser(t, conn, "4900"),
		mug:      dbtest.SeedProduct(t, conn, "mug", "100", true),
		lamp:     dbtest.SeedProduct(t, conn, "lamp", "250", true),
	}
	f.deps = Deps{
		Resolver:  resolver,
		Sessions:  broker,
		Verifier:  verifier,
		Locker:    store,
		Tx:        client,
		Orders:    orders.NewRepository(conn),
		Coupons:   coupons.NewRepository(conn),
		Users:     usersRepo,
		Outbox:    outboxSvc,
		Notifier:  notifier,
		Metrics:   m,
		Logger:    logger.Nop(),
		Razorpay:  rzpCfg,
		Config:    settleCfg,
		Ownership: true,
	}
	f.rebuild()
	return f
}

func (f *fixture) rebuild() {
	svc, err := NewService(f.deps)
	require.NoError(f.t, err)
	f.svc = svc
}

func address() types.ShippingAddress {
	return types.ShippingAddress{Name: "Asha Rao", Phone: "9876543210", Address: "12 MG Road", City: "Bengaluru", State: "Karnataka", Pincode: "560001"}
}

// open resolves the cart and opens a payment session for userID, returning a
// correctly signed commit input.
func (f *fixture) open(userID uuid.UUID, lines []pricing.CartLine, coupon string) CommitInput {
	f.t.Helper()
	calc, err := f.resolver.Resolve(context.Background(), lines, coupon)
	require.NoError(f.t, err)
	session, err := f.broker.CreateSession(context.Background(), userID, calc)
	require.NoError(f.t, err)
	paymentID := "pay_" + strings.TrimPrefix(session.SessionID, "order_")
	return CommitInput{
		Receipt: Receipt{
			SessionID: session.SessionID,
			PaymentID: paymentID,
			Signature: razorpay.Sign(testSecret, session.SessionID, paymentID),
		},
		Lines:           lines,
		ShippingAddress: address(),
		CouponCode:      coupon,
		UserID:          userID,
	}
}

func (f *fixture) count(model any) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.conn.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) couponUsage(id uuid.UUID) int {
	f.t.Helper()
	var c models.Coupon
	require.NoError(f.t, f.conn.First(&c, "id = ?", id).Error)
	return c.UsageCount
}

func (f *fixture) totalSpent(id uuid.UUID) decimal.Decimal {
	f.t.Helper()
	var u models.User
	require.NoError(f.t, f.conn.First(&u, "id = ?", id).Error)
	return u.TotalSpent
}

func (f *fixture) settlementCount(outcome, code string) float64 {
	f.t.Helper()
	families, err := f.registry.Gather()
	require.NoError(f.t, err)
	for _, mf := range families {
		if mf.GetName() != "kartly_settlement_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["outcome"] == outcome && labels["code"] == code {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func (f *fixture) counterValue(name string) float64 {
	f.t.Helper()
	families, err := f.registry.Gather()
	require.NoError(f.t, err)
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestCommitSettlesOrder(t *testing.T) {
	f := newFixture(t)
	coupon := dbtest.SeedCoupon(t, f.conn, dbtest.CouponSeed{Code: "FLAT50", Type: enums.CouponTypeFlat, Value: "50", MinCartValue: "100", MaxUsage: dbtest.IntPtr(5)})
	lines := []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 2}, {ProductID: f.lamp.ID, Quantity: 1}}
	in := f.open(f.user.ID, lines, "flat50")

	res, err := f.svc.Commit(context.Background(), in)
	require.NoError(t, err)
	require.False(t, res.Replayed)

	order := res.Order
	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)
	assert.Equal(t, enums.PaymentStatusCompleted, order.PaymentStatus)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(450)))
	assert.True(t, order.DiscountAmount.Equal(decimal.NewFromInt(50)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(400)))
	require.NotNil(t, order.CouponCode)
	assert.Equal(t, "FLAT50", *order.CouponCode)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "KRT-"))

	stored, err := orders.NewRepository(f.conn).FindByRazorpayOrderID(context.Background(), in.Receipt.SessionID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "mug", stored.Items[0].Name)
	assert.Equal(t, "lamp", stored.Items[1].Name)
	assert.Equal(t, in.Receipt.PaymentID, stored.RazorpayPaymentID)

	assert.Equal(t, 1, f.couponUsage(coupon.ID))
	assert.True(t, f.totalSpent(f.user.ID).Equal(decimal.NewFromInt(5300)), "spent %s", f.totalSpent(f.user.ID))
	assert.Equal(t, enums.MemberStatusSilver, users.MemberStatusFor(f.totalSpent(f.user.ID)))

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Find(&events).Error)
	kinds := map[enums.OutboxEventType]int{}
	for _, e := range events {
		kinds[e.EventType]++
	}
	assert.Equal(t, 1, kinds[enums.EventOrderConfirmed])
	assert.Equal(t, 1, kinds[enums.EventNotificationRequested])
	assert.Equal(t, 1, f.notifier.calls)
	assert.Equal(t, 1.0, f.settlementCount(metrics.OutcomeCommitted, "none"))
	assert.False(t, f.store.Has(f.store.SettlementLockKey(in.Receipt.SessionID)), "lock released")
}

func TestCommitIsExactlyOncePerSession(t *testing.T) {
	f := newFixture(t)
	coupon := dbtest.SeedCoupon(t, f.conn, dbtest.CouponSeed{Code: "TEN", Type: enums.CouponTypePercentage, Value: "10"})
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.lamp.ID, Quantity: 2}}, "TEN")

	first, err := f.svc.Commit(context.Background(), in)
	require.NoError(t, err)
	second, err := f.svc.Commit(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, int64(1), f.count(&models.Order{}))
	assert.Equal(t, 1, f.couponUsage(coupon.ID))
	assert.True(t, f.totalSpent(f.user.ID).Equal(decimal.NewFromInt(5350)))
	assert.Equal(t, 1, f.notifier.calls, "replay does not notify again")
	assert.Equal(t, 1.0, f.settlementCount(metrics.OutcomeReplayed, "none"))

	// The replay also works once the session has expired.
	f.store.Expire(f.store.PaymentSessionKey(in.Receipt.SessionID))
	third, err := f.svc.Commit(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, third.Replayed)
}

// alwaysLocker grants every lock so concurrent commits reach the unique index.
type alwaysLocker struct {
	*redistest.Store
}

func (alwaysLocker) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (alwaysLocker) ReleaseLock(ctx context.Context, key, token string) error {
	return nil
}

// commitConcurrently fires in from two goroutines at once and returns both
// outcomes.
func commitConcurrently(t *testing.T, svc *Service, in CommitInput) ([]*CommitResult, []error) {
	t.Helper()
	results := make([]*CommitResult, 2)
	errs := make([]error, 2)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = svc.Commit(context.Background(), in)
		}(i)
	}
	close(start)
	wg.Wait()
	return results, errs
}

func assertSingleSettlement(t *testing.T, f *fixture, couponID uuid.UUID, results []*CommitResult, errs []error) {
	t.Helper()
	committed, replayed, conflicts := 0, 0, 0
	var orderID uuid.UUID
	for i := range results {
		switch {
		case errs[i] == nil && results[i].Replayed:
			replayed++
			if orderID != uuid.Nil {
				assert.Equal(t, orderID, results[i].Order.ID)
			}
			orderID = results[i].Order.ID
		case errs[i] == nil:
			committed++
			if orderID != uuid.Nil {
				assert.Equal(t, orderID, results[i].Order.ID)
			}
			orderID = results[i].Order.ID
		case pkgerrors.Is(errs[i], pkgerrors.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected settlement error: %v", errs[i])
		}
	}
	assert.Equal(t, 1, committed, "exactly one commit")
	assert.Equal(t, 1, replayed+conflicts, "the other request replays or conflicts")
	assert.Equal(t, int64(1), f.count(&models.Order{}))
	assert.Equal(t, 1, f.couponUsage(couponID))
	assert.True(t, f.totalSpent(f.user.ID).Equal(decimal.NewFromInt(5350)), "spent %s", f.totalSpent(f.user.ID))
	assert.Equal(t, 1, f.notifier.calls)
}

func TestCommitConcurrentSameReceiptSettlesOnce(t *testing.T) {
	f := newFixture(t)
	coupon := dbtest.SeedCoupon(t, f.conn, dbtest.CouponSeed{Code: "TEN", Type: enums.CouponTypePercentage, Value: "10"})
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.lamp.ID, Quantity: 2}}, "TEN")

	results, errs := commitConcurrently(t, f.svc, in)
	assertSingleSettlement(t, f, coupon.ID, results, errs)
	assert.False(t, f.store.Has(f.store.SettlementLockKey(in.Receipt.SessionID)), "lock released")
}

func TestCommitConcurrentWithoutLockFallsBackToUniqueIndex(t *testing.T) {
	f := newFixture(t)
	coupon := dbtest.SeedCoupon(t, f.conn, dbtest.CouponSeed{Code: "TEN", Type: enums.CouponTypePercentage, Value: "10"})
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.lamp.ID, Quantity: 2}}, "TEN")
	f.deps.Locker = alwaysLocker{Store: f.store}
	f.rebuild()

	results, errs := commitConcurrently(t, f.svc, in)
	assertSingleSettlement(t, f, coupon.ID, results, errs)
}

func TestCommitRejectsDifferentPaymentForSettledSession(t *testing.T) {
	f := newFixture(t)
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 1}}, "")
	_, err := f.svc.Commit(context.Background(), in)
	require.NoError(t, err)

	other := in
	other.Receipt.PaymentID = "pay_someoneelse"
	other.Receipt.Signature = razorpay.Sign(testSecret, in.Receipt.SessionID, other.Receipt.PaymentID)
	_, err = f.svc.Commit(context.Background(), other)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict), "got %v", err)
	assert.Equal(t, int64(1), f.count(&models.Order{}))
}

func TestCommitTamperedSignature(t *testing.T) {
	f := newFixture(t)
	coupon := dbtest.SeedCoupon(t, f.conn, dbtest.CouponSeed{Code: "FLAT50", Type: enums.CouponTypeFlat, Value: "50"})
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 2}}, "FLAT50")

	sig := []byte(in.Receipt.Signature)
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}
	in.Receipt.Signature = string(sig)

	_, err := f.svc.Commit(context.Background(), in)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodePaymentSignatureInvalid))
	assert.Equal(t, 400, statusOf(t, err))
	assert.Equal(t, int64(0), f.count(&models.Order{}))
	assert.Equal(t, 0, f.couponUsage(coupon.ID))
	assert.True(t, f.totalSpent(f.user.ID).Equal(decimal.NewFromInt(4900)))
	assert.Equal(t, 1.0, f.counterValue("kartly_settlement_signature_failures_total"))
	assert.Equal(t, 1.0, f.settlementCount(metrics.OutcomeRejected, string(pkgerrors.CodePaymentSignatureInvalid)))
}

func TestCommitRejectsCaseOrWhitespaceAlteredSignature(t *testing.T) {
	f := newFixture(t)
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 1}}, "")
	valid := in.Receipt.Signature

	for name, sig := range map[string]string{
		"upper case": strings.ToUpper(valid),
		"padded":     " " + valid + " ",
	} {
		altered := in
		altered.Receipt.Signature = sig
		_, err := f.svc.Commit(context.Background(), altered)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodePaymentSignatureInvalid), "%s: got %v", name, err)
	}
	assert.Equal(t, int64(0), f.count(&models.Order{}))

	_, err := f.svc.Commit(context.Background(), in)
	require.NoError(t, err)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	return pkgerrors.MetadataFor(typed.Code()).HTTPStatus
}

func TestCommitOutOfStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	coupon := dbtest.SeedCoupon(t, f.conn, dbtest.CouponSeed{Code: "FLAT50", Type: enums.CouponTypeFlat, Value: "50"})
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 1}, {ProductID: f.lamp.ID, Quantity: 1}}, "FLAT50")

	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", f.lamp.ID).Update("in_stock", false).Error)

	_, err := f.svc.Commit(context.Background(), in)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeOutOfStock), "got %v", err)
	assert.Equal(t, int64(0), f.count(&models.Order{}))
	assert.Equal(t, int64(0), f.count(&models.OrderItem{}))
	assert.Equal(t, 0, f.couponUsage(coupon.ID))
	assert.True(t, f.totalSpent(f.user.ID).Equal(decimal.NewFromInt(4900)))
	assert.Equal(t, int64(0), f.count(&models.OutboxEvent{}))
}

func TestCommitCouponRaceOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	coupon := dbtest.SeedCoupon(t, f.conn, dbtest.CouponSeed{Code: "LASTONE", Type: enums.CouponTypeFlat, Value: "20", UsageCount: 2, MaxUsage: dbtest.IntPtr(3)})
	other := dbtest.SeedUser(t, f.conn, "0")
	lines := []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 1}}

	first := f.open(f.user.ID, lines, "LASTONE")
	second := f.open(other.ID, lines, "LASTONE")

	// Both settlements priced the cart while a slot was still free.
	stale, err := f.resolver.Resolve(context.Background(), lines, "LASTONE")
	require.NoError(t, err)
	f.deps.Resolver = staleResolver{calc: stale}
	f.rebuild()

	_, err = f.svc.Commit(context.Background(), first)
	require.NoError(t, err)
	_, err = f.svc.Commit(context.Background(), second)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeCouponExhausted), "got %v", err)

	assert.Equal(t, 3, f.couponUsage(coupon.ID))
	assert.Equal(t, int64(1), f.count(&models.Order{}))
	assert.True(t, f.totalSpent(other.ID).IsZero())
}

func TestCommitNotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("mail provider down")
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 1}}, "")

	res, err := f.svc.Commit(context.Background(), in)
	require.NoError(t, err)
	assert.NotNil(t, res.Order)
	assert.Equal(t, int64(1), f.count(&models.Order{}))
	assert.Equal(t, 1, f.notifier.calls)
}

func TestCommitExpiredSession(t *testing.T) {
	f := newFixture(t)
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 1}}, "")
	f.store.Expire(f.store.PaymentSessionKey(in.Receipt.SessionID))

	_, err := f.svc.Commit(context.Background(), in)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeSessionExpired), "got %v", err)
	assert.Equal(t, int64(0), f.count(&models.Order{}))
}

func TestCommitForeignSession(t *testing.T) {
	f := newFixture(t)
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 1}}, "")
	in.UserID = dbtest.SeedUser(t, f.conn, "0").ID

	_, err := f.svc.Commit(context.Background(), in)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden), "got %v", err)

	f.deps.Ownership = false
	f.rebuild()
	_, err = f.svc.Commit(context.Background(), in)
	require.NoError(t, err, "ownership enforcement can be switched off")
}

func TestCommitLockHeld(t *testing.T) {
	f := newFixture(t)
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 1}}, "")
	ok, err := f.store.AcquireLock(context.Background(), f.store.SettlementLockKey(in.Receipt.SessionID), "other-request", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Commit(context.Background(), in)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict), "got %v", err)
	assert.Equal(t, int64(0), f.count(&models.Order{}))
}

func TestCommitSettlesAtCurrentPrice(t *testing.T) {
	f := newFixture(t)
	in := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 2}}, "")
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", f.mug.ID).Update("price", decimal.NewFromInt(120)).Error)

	res, err := f.svc.Commit(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.Order.TotalAmount.Equal(decimal.NewFromInt(240)), "total %s", res.Order.TotalAmount)
	assert.Equal(t, 1.0, f.counterValue("kartly_settlement_price_drift_total"))
}

func TestCommitValidation(t *testing.T) {
	f := newFixture(t)
	valid := f.open(f.user.ID, []pricing.CartLine{{ProductID: f.mug.ID, Quantity: 1}}, "")

	cases := map[string]func(in *CommitInput){
		"missing payment id": func(in *CommitInput) { in.Receipt.PaymentID = "" },
		"missing session id": func(in *CommitInput) { in.Receipt.SessionID = " " },
		"missing signature":  func(in *CommitInput) { in.Receipt.Signature = "" },
		"no items":           func(in *CommitInput) { in.Lines = nil },
		"short phone":        func(in *CommitInput) { in.ShippingAddress.Phone = "98765" },
		"bad pincode":        func(in *CommitInput) { in.ShippingAddress.Pincode = "56000A" },
		"missing city":       func(in *CommitInput) { in.ShippingAddress.City = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			in.Lines = append([]pricing.CartLine(nil), valid.Lines...)
			mutate(&in)
			_, err := f.svc.Commit(context.Background(), in)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
	assert.Equal(t, int64(0), f.count(&models.Order{}))

	in := valid
	in.UserID = uuid.Nil
	_, err := f.svc.Commit(context.Background(), in)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}
