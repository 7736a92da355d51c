package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	CodeProductNotFound         Code = "PRODUCT_NOT_FOUND"
	CodeOutOfStock              Code = "OUT_OF_STOCK"
	CodeInvalidCoupon           Code = "INVALID_COUPON"
	CodeCouponMinimumNotMet     Code = "COUPON_MINIMUM_NOT_MET"
	CodeCouponExhausted         Code = "COUPON_EXHAUSTED"
	CodePaymentSignatureInvalid Code = "PAYMENT_SIGNATURE_INVALID"
	CodeSessionExpired          Code = "PAYMENT_SESSION_EXPIRED"
	CodeStateConflict           Code = "STATE_CONFLICT"
	CodeGateway                 Code = "GATEWAY_ERROR"
	CodePersistence             Code = "PERSISTENCE_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	// ClientFacing marks codes whose own message is safe to show the shopper verbatim.
	ClientFacing bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
		ClientFacing:   true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
		ClientFacing:  true,
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
		ClientFacing:  true,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
		ClientFacing:  true,
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
		ClientFacing:  true,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
		ClientFacing:   true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "dependency unavailable",
	},
	CodeProductNotFound: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "product not found",
		DetailsAllowed: true,
		ClientFacing:   true,
	},
	CodeOutOfStock: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "product out of stock",
		DetailsAllowed: true,
		ClientFacing:   true,
	},
	CodeInvalidCoupon: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "invalid coupon code",
		ClientFacing:  true,
	},
	CodeCouponMinimumNotMet: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "cart value below coupon minimum",
		DetailsAllowed: true,
		ClientFacing:   true,
	},
	CodeCouponExhausted: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "coupon usage limit reached",
		ClientFacing:  true,
	},
	CodePaymentSignatureInvalid: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "payment verification failed",
		ClientFacing:  true,
	},
	CodeSessionExpired: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "payment session expired",
		ClientFacing:  true,
	},
	CodeStateConflict: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
		ClientFacing:   true,
	},
	CodeGateway: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "payment gateway unavailable, please retry",
	},
	CodePersistence: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "could not save order",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
