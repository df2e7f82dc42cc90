package tabby

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	checkoutPath = "/api/v2/checkout"
	paymentsPath = "/api/v2/payments/"
)

var ErrNoWebURL = errors.New("tabby returned no web_url; session rejected")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tabby http error (%d): %s", e.StatusCode, e.Message)
}

type Client struct {
	rest         *resty.Client
	merchantCode string
}

func NewClient(baseURL, secretKey, merchantCode string, timeout time.Duration) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(secretKey).
		SetHeader("Content-Type", "application/json")
	return &Client{rest: rest, merchantCode: merchantCode}
}

func (c *Client) MerchantCode() string { return c.merchantCode }

// CreateCheckout opens a checkout session. A created session without a
// web_url means Tabby rejected the buyer.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	if req.MerchantCode == "" {
		req.MerchantCode = c.merchantCode
	}
	var out CheckoutResponse
	if err := c.do(ctx, http.MethodPost, checkoutPath, req, &out); err != nil {
		return nil, fmt.Errorf("CreateCheckout error: %w", err)
	}
	if out.WebURL() == "" {
		return &out, ErrNoWebURL
	}
	return &out, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, http.MethodGet, paymentsPath+paymentID, nil, &out); err != nil {
		return nil, fmt.Errorf("GetPayment error: %w", err)
	}
	return &out, nil
}

// CapturePayment captures the full amount of an AUTHORIZED payment.
func (c *Client) CapturePayment(ctx context.Context, paymentID, amount string) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, http.MethodPost, paymentsPath+paymentID+"/captures", Capture{Amount: amount}, &out); err != nil {
		return nil, fmt.Errorf("CapturePayment error: %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var apiErr ErrorResponse
	r := c.rest.R().SetContext(ctx).SetResult(out).SetError(&apiErr)
	if body != nil {
		r.SetBody(body)
	}
	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("tabby request failed: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}
