package types

// APIError is the body of every non-2xx response. Message is safe to show the
// shopper verbatim.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Page wraps cursor-paginated listings.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}
