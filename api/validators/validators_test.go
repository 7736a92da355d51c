package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
)

type address struct {
	Pincode string `json:"pincode" validate:"required,len=6,number"`
}

type payload struct {
	Name    string  `json:"name" validate:"required"`
	Address address `json:"shippingAddress" validate:"required"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","shippingAddress":{"pincode":"560001"},"price":1}`))
	var dest payload
	err := DecodeJSONBody(req, &dest)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsNestedFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","shippingAddress":{"pincode":"56"}}`))
	var dest payload
	err := DecodeJSONBody(req, &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["shippingAddress.pincode"] != "must be exactly 6 characters" {
		t.Fatalf("unexpected details %v", details)
	}
}

type trimmedPayload struct {
	payload
}

func (p *trimmedPayload) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Address.Pincode = strings.TrimSpace(p.Address.Pincode)
}

func TestDecodeJSONBodyNormalizesBeforeValidating(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":" a ","shippingAddress":{"pincode":" 560001 "}}`))
	var dest trimmedPayload
	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("expected padded pincode to pass after trimming, got %v", err)
	}
	if dest.Address.Pincode != "560001" || dest.Name != "a" {
		t.Fatalf("expected trimmed fields, got %+v", dest)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","shippingAddress":{"pincode":" 560001 "}}`))
	var plain payload
	if err := DecodeJSONBody(req, &plain); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected untrimmed body to fail validation, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 25, 1, 100); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	got, err := ParseQueryInt(req, "limit", 25, 1, 100)
	if err != nil || got != 25 {
		t.Fatalf("expected default 25, got %d (%v)", got, err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	if _, err := ParseUUIDParam(req, "orderId"); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
