package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
	"github.com/kartly/storefront-backend/pkg/types"
)

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 100

// CartLine is an untrusted (productId, quantity) pair. It deliberately has no
// price field.
type CartLine struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=100"`
}

// LineViolation describes a malformed cart line.
type LineViolation struct {
	Index     int       `json:"index"`
	ProductID uuid.UUID `json:"product_id"`
	Reason    string    `json:"reason"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// ValidateLines rejects empty carts, zero product ids and quantities outside
// 1..MaxLineQuantity.
func ValidateLines(lines []CartLine) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	var violations []LineViolation
	for i, line := range lines {
		switch {
		case line.ProductID == uuid.Nil:
			violations = append(violations, LineViolation{Index: i, Reason: "productId is required"})
		case line.Quantity < 1:
			violations = append(violations, LineViolation{Index: i, ProductID: line.ProductID, Reason: "quantity must be at least 1"})
		case line.Quantity > MaxLineQuantity:
			violations = append(violations, LineViolation{Index: i, ProductID: line.ProductID, Reason: fmt.Sprintf("quantity must be at most %d", MaxLineQuantity)})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%d cart line(s) are invalid", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}

// ValidateShippingAddress checks required fields plus the 10 digit phone and
// 6 digit pincode formats.
func ValidateShippingAddress(addr types.ShippingAddress) error {
	if err := validate.Struct(addr.Normalize()); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
		}
		details := map[string]string{}
		for _, fe := range fieldErrs {
			details[fe.Field()] = addressMessage(fe)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping address").WithDetails(details)
	}
	return nil
}

func addressMessage(fe validator.FieldError) string {
	switch {
	case fe.Tag() == "required":
		return "is required"
	case fe.Field() == "phone":
		return "must be exactly 10 digits"
	case fe.Field() == "pincode":
		return "must be exactly 6 digits"
	case fe.Tag() == "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}
