package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kartly/storefront-backend/pkg/config"
	pkgerrors "github.com/kartly/storefront-backend/pkg/errors"
	"github.com/kartly/storefront-backend/pkg/logger"
)

const ordersPath = "/v1/orders"

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
	errLoggerRequired    = errors.New("razorpay logger is required")
)

// OrderRequest is the body accepted by the gateway order endpoint. Amount is
// in minor units.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the gateway's view of a payment session.
type Order struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Field       string `json:"field"`
	} `json:"error"`
}

// Client talks to the Razorpay REST API with basic auth.
type Client struct {
	http      *http.Client
	baseURL   string
	keyID     string
	keySecret string
	logger    *logger.Logger
}

// NewClient validates the credentials and builds a gateway client.
func NewClient(cfg config.RazorpayConfig, httpClient *http.Client, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.razorpay.com"
	}
	return &Client{
		http:      httpClient,
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		logger:    logg,
	}, nil
}

// KeyID returns the public key id handed to the storefront checkout widget.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrder opens a payment session at the gateway.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway order")
	}

	c.log(ctx, "request", "create_order", map[string]any{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "read gateway response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gwErr := mapGatewayError(resp.StatusCode, raw)
		c.log(ctx, "error", "create_order", map[string]any{
			"status": resp.StatusCode,
			"error":  gwErr.Error(),
		})
		return nil, gwErr
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode gateway order")
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway returned an order without id")
	}

	c.log(ctx, "response", "create_order", map[string]any{
		"order_id": order.ID,
		"status":   order.Status,
	})
	return &order, nil
}

// VerifyPaymentSignature checks the receipt signature with the key secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if c == nil {
		return false
	}
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

func mapGatewayError(status int, raw []byte) error {
	var env apiErrorEnvelope
	description := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Description != "" {
		description = env.Error.Description
	}
	if description == "" {
		description = http.StatusText(status)
	}
	return pkgerrors.Wrap(
		pkgerrors.CodeGateway,
		fmt.Errorf("razorpay status %d: %s", status, description),
		"payment gateway rejected order",
	)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"gateway":   "razorpay",
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	logCtx := c.logger.WithFields(ctx, logFields)
	if phase == "error" {
		c.logger.Warn(logCtx, "razorpay call failed")
		return
	}
	c.logger.Debug(logCtx, "razorpay call")
}
