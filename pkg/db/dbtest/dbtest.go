// Package dbtest opens throwaway SQLite databases carrying the storefront
// schema for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kartly/storefront-backend/pkg/db/models"
	"github.com/kartly/storefront-backend/pkg/enums"
)

// Schema mirrors the goose migrations closely enough for SQLite: numeric
// money columns, text uuids and the coupon usage check.
const Schema = `
CREATE TABLE products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	brand TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	description TEXT,
	price NUMERIC NOT NULL,
	in_stock BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE coupons (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL,
	type TEXT NOT NULL,
	value NUMERIC NOT NULL,
	min_cart_value NUMERIC NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	usage_count INTEGER NOT NULL DEFAULT 0,
	max_usage INTEGER,
	created_at DATETIME,
	updated_at DATETIME,
	CONSTRAINT chk_coupons_usage_within_limit CHECK (max_usage IS NULL OR usage_count <= max_usage)
);
CREATE UNIQUE INDEX ux_coupons_code ON coupons (code);
CREATE TABLE users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	phone TEXT,
	role TEXT NOT NULL DEFAULT 'customer',
	total_spent NUMERIC NOT NULL DEFAULT 0,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE orders (
	id TEXT PRIMARY KEY,
	order_number TEXT NOT NULL,
	user_id TEXT NOT NULL,
	subtotal NUMERIC NOT NULL,
	discount_amount NUMERIC NOT NULL DEFAULT 0,
	total_amount NUMERIC NOT NULL,
	currency TEXT NOT NULL,
	shipping_name TEXT NOT NULL,
	shipping_phone TEXT NOT NULL,
	shipping_address TEXT NOT NULL,
	shipping_city TEXT NOT NULL,
	shipping_state TEXT NOT NULL,
	shipping_pincode TEXT NOT NULL,
	coupon_code TEXT,
	razorpay_order_id TEXT NOT NULL,
	razorpay_payment_id TEXT NOT NULL,
	razorpay_signature TEXT NOT NULL,
	status TEXT NOT NULL,
	payment_status TEXT NOT NULL,
	tracking_number TEXT,
	delivered_at DATETIME,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE UNIQUE INDEX ux_orders_razorpay_order_id ON orders (razorpay_order_id);
CREATE UNIQUE INDEX ux_orders_order_number ON orders (order_number);
CREATE TABLE order_items (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	product_id TEXT NOT NULL,
	name TEXT NOT NULL,
	brand TEXT NOT NULL,
	category TEXT NOT NULL,
	image TEXT NOT NULL,
	unit_price NUMERIC NOT NULL,
	quantity INTEGER NOT NULL,
	line_total NUMERIC NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME
);
CREATE TABLE outbox_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload BLOB NOT NULL,
	created_at DATETIME,
	published_at DATETIME,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT
);
CREATE TABLE outbox_dlq (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL UNIQUE,
	event_type TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload_json BLOB NOT NULL,
	error_reason TEXT NOT NULL,
	error_message TEXT,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	failed_at DATETIME,
	created_at DATETIME
);`

// Open returns a private in-memory database with Schema applied. The pool is
// pinned to one connection so every query sees the same memory database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=private&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := conn.Exec(Schema).Error; err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return conn
}

// SeedProduct inserts a product. inStock=false is written with a follow-up
// update since gorm skips zero values on columns that carry a default.
func SeedProduct(t testing.TB, conn *gorm.DB, name string, price string, inStock bool) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:       uuid.New(),
		Name:     name,
		Brand:    "Kartly",
		Category: "general",
		Image:    "https://cdn.example.com/" + name + ".png",
		Price:    decimal.RequireFromString(price),
		InStock:  true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if !inStock {
		if err := conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("in_stock", false).Error; err != nil {
			t.Fatalf("mark product out of stock: %v", err)
		}
		product.InStock = false
	}
	return product
}

// CouponSeed describes a coupon row for SeedCoupon.
type CouponSeed struct {
	Code         string
	Type         enums.CouponType
	Value        string
	MinCartValue string
	Inactive     bool
	UsageCount   int
	MaxUsage     *int
}

// SeedCoupon inserts a coupon described by seed.
func SeedCoupon(t testing.TB, conn *gorm.DB, seed CouponSeed) *models.Coupon {
	t.Helper()
	minCart := decimal.Zero
	if seed.MinCartValue != "" {
		minCart = decimal.RequireFromString(seed.MinCartValue)
	}
	coupon := &models.Coupon{
		ID:           uuid.New(),
		Code:         seed.Code,
		Type:         seed.Type,
		Value:        decimal.RequireFromString(seed.Value),
		MinCartValue: minCart,
		IsActive:     true,
		UsageCount:   seed.UsageCount,
		MaxUsage:     seed.MaxUsage,
	}
	if err := conn.Create(coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	if seed.Inactive {
		if err := conn.Model(&models.Coupon{}).Where("id = ?", coupon.ID).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate coupon: %v", err)
		}
		coupon.IsActive = false
	}
	return coupon
}

// SeedUser inserts a customer with the given lifetime spend.
func SeedUser(t testing.TB, conn *gorm.DB, totalSpent string) *models.User {
	t.Helper()
	user := &models.User{
		ID:         uuid.New(),
		Email:      fmt.Sprintf("shopper_%s@example.com", uuid.NewString()),
		Name:       "Test Shopper",
		Role:       enums.UserRoleCustomer,
		TotalSpent: decimal.RequireFromString(totalSpent),
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// IntPtr is a convenience for optional integer columns.
func IntPtr(v int) *int {
	return &v
}
