package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeProductNotFound, status: http.StatusBadRequest, publicMsg: "product not found", detailsOK: true},
		{code: CodeOutOfStock, status: http.StatusBadRequest, publicMsg: "product out of stock", detailsOK: true},
		{code: CodeInvalidCoupon, status: http.StatusBadRequest, publicMsg: "invalid coupon code"},
		{code: CodeCouponMinimumNotMet, status: http.StatusBadRequest, publicMsg: "cart value below coupon minimum", detailsOK: true},
		{code: CodeCouponExhausted, status: http.StatusBadRequest, publicMsg: "coupon usage limit reached"},
		{code: CodePaymentSignatureInvalid, status: http.StatusBadRequest, publicMsg: "payment verification failed"},
		{code: CodeGateway, status: http.StatusInternalServerError, publicMsg: "payment gateway unavailable, please retry", retryable: true},
		{code: CodePersistence, status: http.StatusInternalServerError, publicMsg: "could not save order"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestServerSideCodesAreNotClientFacing(t *testing.T) {
	for _, code := range []Code{CodeGateway, CodePersistence, CodeInternal, CodeDependency} {
		if MetadataFor(code).ClientFacing {
			t.Fatalf("code %s must not leak its internal message", code)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeGateway, cause, "create razorpay order")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected wrapped error to unwrap to cause")
	}
	if err.Error() != "GATEWAY_ERROR: create razorpay order" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestAsAndIsFindTypedErrorsInChain(t *testing.T) {
	typed := New(CodeCouponExhausted, "coupon exhausted")
	wrapped := fmt.Errorf("settle: %w", typed)

	if got := As(wrapped); got != typed {
		t.Fatalf("expected As to return typed error")
	}
	if !Is(wrapped, CodeCouponExhausted) {
		t.Fatalf("expected Is to match code")
	}
	if Is(wrapped, CodeInvalidCoupon) {
		t.Fatalf("unexpected match for different code")
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatalf("plain errors should not be typed")
	}
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	if e.Code() != CodeInternal {
		t.Fatalf("nil error should report internal code")
	}
	if e.WithDetails("x") != nil {
		t.Fatalf("nil WithDetails should stay nil")
	}
}
