package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber renders a shopper facing order number such as
// KRT-20260301-9F2C41AB. The suffix comes from the order id so it is stable
// for the row and unique enough for the unique index to be a formality.
func NewOrderNumber(orderID uuid.UUID, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(orderID.String(), "-", ""))[:8]
	return "KRT-" + at.UTC().Format("20060102") + "-" + suffix
}
