package payments

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session is what the storefront needs to open the gateway checkout.
type Session struct {
	SessionID        string `json:"sessionId"`
	AmountMinorUnits int64  `json:"amount"`
	Currency         string `json:"currency"`
	GatewayPublicKey string `json:"key"`
	Receipt          string `json:"receipt"`
}

// SessionRecord is kept in Redis until the session expires so settlement can
// check the session is live and owned by the caller.
type SessionRecord struct {
	SessionID        string          `json:"session_id"`
	UserID           uuid.UUID       `json:"user_id"`
	AmountMinorUnits int64           `json:"amount_minor_units"`
	FinalTotal       decimal.Decimal `json:"final_total"`
	Currency         string          `json:"currency"`
	Receipt          string          `json:"receipt"`
	CouponCode       *string         `json:"coupon_code,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (r SessionRecord) encode() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeSessionRecord(raw string) (*SessionRecord, error) {
	var rec SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
