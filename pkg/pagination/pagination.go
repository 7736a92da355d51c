// Package pagination implements the keyset cursor used by order history.
// Orders are listed newest first by (created_at, id); a cursor names the last
// order on the previous page.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
)

const (
	// DefaultLimit is the order history page size when none is requested.
	DefaultLimit = 20
	// MaxLimit caps how many orders one history page returns.
	MaxLimit = 50

	cursorVersion = "o1"
)

// Params carries the history query from the controller to the repository.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last order of a page.
type Cursor struct {
	CreatedAt time.Time
	OrderID   uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], substituting DefaultLimit
// for unset values.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer fetches one extra row so the repository knows whether a next
// page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c Cursor) string {
	raw := cursorVersion + ":" + strconv.FormatInt(c.CreatedAt.UTC().UnixNano(), 10) + ":" + c.OrderID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a token from EncodeCursor. An empty token means the
// first page and yields a nil cursor. Malformed tokens are validation errors.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, invalidCursor(err)
	}
	parts := strings.SplitN(string(decoded), ":", 3)
	if len(parts) != 3 || parts[0] != cursorVersion {
		return nil, invalidCursor(fmt.Errorf("unrecognised cursor"))
	}
	nanos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, invalidCursor(err)
	}
	id, err := uuid.Parse(parts[2])
	if err != nil {
		return nil, invalidCursor(err)
	}
	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), OrderID: id}, nil
}

// After is the keyset predicate selecting orders older than c in
// (created_at DESC, id DESC) order.
func (c Cursor) After() (string, []any) {
	return "(created_at < ? OR (created_at = ? AND id < ?))", []any{c.CreatedAt, c.CreatedAt, c.OrderID}
}

// Page drops the buffer row fetched by LimitWithBuffer and returns the cursor
// for the next page, or "" on the last page.
func Page[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	return rows[:limit], EncodeCursor(cursorOf(rows[limit-1]))
}

func invalidCursor(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
}
