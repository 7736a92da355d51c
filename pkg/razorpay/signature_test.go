package razorpay

import (
	"strings"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	secret := "test_secret"
	sig := Sign(secret, "order_1", "pay_1")

	cases := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{"valid", "order_1", "pay_1", sig, true},
		{"upper case hex", "order_1", "pay_1", strings.ToUpper(sig), false},
		{"leading space", "order_1", "pay_1", " " + sig, false},
		{"trailing newline", "order_1", "pay_1", sig + "\n", false},
		{"truncated", "order_1", "pay_1", sig[:len(sig)-1], false},
		{"wrong payment", "order_1", "pay_2", sig, false},
		{"wrong order", "order_2", "pay_1", sig, false},
		{"empty signature", "order_1", "pay_1", "", false},
		{"empty payment", "order_1", "", sig, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := VerifySignature(secret, tc.orderID, tc.paymentID, tc.signature); got != tc.want {
				t.Fatalf("VerifySignature=%v want %v", got, tc.want)
			}
		})
	}

	if VerifySignature("other", "order_1", "pay_1", sig) {
		t.Fatalf("signature must not verify under a different secret")
	}
}

func TestVerifySignatureRejectsEverySingleCharacterChange(t *testing.T) {
	secret := "test_secret"
	sig := Sign(secret, "order_1", "pay_1")

	for i := 0; i < len(sig); i++ {
		for _, replacement := range alterationsOf(sig[i]) {
			altered := sig[:i] + string(replacement) + sig[i+1:]
			if VerifySignature(secret, "order_1", "pay_1", altered) {
				t.Fatalf("altered signature verified at position %d (%q -> %q)", i, sig[i], replacement)
			}
		}
	}
}

// alterationsOf returns a different hex digit plus, for letters, the upper
// case form of c.
func alterationsOf(c byte) []byte {
	other := byte('0')
	if c == '0' {
		other = '1'
	}
	out := []byte{other}
	if c >= 'a' && c <= 'f' {
		out = append(out, c-'a'+'A')
	}
	return out
}

func TestSignProducesStableLowercaseHex(t *testing.T) {
	got := Sign("secret", "order_IEIaMR65cu6nz3", "pay_IH4NVgf4Dreq1l")
	if len(got) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(got))
	}
	if got != strings.ToLower(got) {
		t.Fatalf("expected lowercase hex, got %s", got)
	}
	if got != Sign("secret", "order_IEIaMR65cu6nz3", "pay_IH4NVgf4Dreq1l") {
		t.Fatalf("signing must be deterministic")
	}
}
