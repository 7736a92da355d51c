package coupons

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartly/storefront-backend/pkg/db/dbtest"
	"github.com/kartly/storefront-backend/pkg/db/models"
	"github.com/kartly/storefront-backend/pkg/enums"
)

func TestFindByCodeIsCaseInsensitive(t *testing.T) {
	conn := dbtest.Open(t)
	seeded := dbtest.SeedCoupon(t, conn, dbtest.CouponSeed{Code: "WELCOME10", Type: enums.CouponTypePercentage, Value: "10"})
	repo := NewRepository(conn)

	got, err := repo.FindByCode(context.Background(), "  welcome10 ")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)
	assert.Equal(t, enums.CouponTypePercentage, got.Type)

	_, err = repo.FindByCode(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = repo.FindByCode(context.Background(), "   ")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestIncrementUsageStopsAtLimit(t *testing.T) {
	conn := dbtest.Open(t)
	coupon := dbtest.SeedCoupon(t, conn, dbtest.CouponSeed{Code: "LAST1", Type: enums.CouponTypeFlat, Value: "50", UsageCount: 0, MaxUsage: dbtest.IntPtr(1)})
	repo := NewRepository(conn)

	ok, err := repo.IncrementUsage(context.Background(), coupon.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.IncrementUsage(context.Background(), coupon.ID)
	require.NoError(t, err)
	require.False(t, ok, "second claim must be refused")

	var stored models.Coupon
	require.NoError(t, conn.First(&stored, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, stored.UsageCount)
}

func TestIncrementUsageRefusesInactiveAndUnknown(t *testing.T) {
	conn := dbtest.Open(t)
	coupon := dbtest.SeedCoupon(t, conn, dbtest.CouponSeed{Code: "OLD", Type: enums.CouponTypeFlat, Value: "50", Inactive: true})
	repo := NewRepository(conn)

	ok, err := repo.IncrementUsage(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.IncrementUsage(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncrementUsageUnlimited(t *testing.T) {
	conn := dbtest.Open(t)
	coupon := dbtest.SeedCoupon(t, conn, dbtest.CouponSeed{Code: "FOREVER", Type: enums.CouponTypeFlat, Value: "5"})
	repo := NewRepository(conn)

	for i := 0; i < 5; i++ {
		ok, err := repo.IncrementUsage(context.Background(), coupon.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}
	var stored models.Coupon
	require.NoError(t, conn.First(&stored, "id = ?", coupon.ID).Error)
	assert.Equal(t, 5, stored.UsageCount)
}

func TestIncrementUsageConcurrentClaims(t *testing.T) {
	conn := dbtest.Open(t)
	coupon := dbtest.SeedCoupon(t, conn, dbtest.CouponSeed{Code: "RACE", Type: enums.CouponTypeFlat, Value: "100", UsageCount: 9, MaxUsage: dbtest.IntPtr(10)})
	repo := NewRepository(conn)

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.IncrementUsage(context.Background(), coupon.ID)
			if err != nil {
				t.Errorf("increment: %v", err)
				return
			}
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, granted, "exactly one concurrent claim may take the last slot")
	var stored models.Coupon
	require.NoError(t, conn.First(&stored, "id = ?", coupon.ID).Error)
	assert.Equal(t, 10, stored.UsageCount)
}
