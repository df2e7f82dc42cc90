package paymob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"
)

const (
	authPath       = "/api/auth/tokens"
	orderPath      = "/api/ecommerce/orders"
	paymentKeyPath = "/api/acceptance/payment_keys"
	iframePath     = "/api/acceptance/iframes/"

	defaultTokenTTL = 50 * time.Minute
)

// APIError is a non-2xx answer from Paymob.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paymob http error (%d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the request may succeed if sent again.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Client struct {
	rest          *resty.Client
	baseURL       string
	apiKey        string
	integrationID int
	iframeID      string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
	tokenTTL time.Duration
	now      func() time.Time
}

func NewClient(baseURL, apiKey string, integrationID int, iframeID string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{
		rest:          rest,
		baseURL:       baseURL,
		apiKey:        apiKey,
		integrationID: integrationID,
		iframeID:      iframeID,
		tokenTTL:      defaultTokenTTL,
		now:           time.Now,
	}
}

// authToken returns a cached auth token, refreshing it when stale.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExp) {
		return c.token, nil
	}

	var out authResponse
	err := retry.Do(
		func() error {
			return c.post(ctx, authPath, authRequest{APIKey: c.apiKey}, &out)
		},
		retry.Attempts(3),
		retry.LastErrorOnly(true),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isRetryable),
		retry.Context(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("paymob auth: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("paymob auth: empty token")
	}
	c.token = out.Token
	c.tokenExp = c.now().Add(c.tokenTTL)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) RegisterOrder(ctx context.Context, token, merchantOrderID string, amountCents int64, currency string, items []Item) (*OrderResponse, error) {
	var out OrderResponse
	err := c.post(ctx, orderPath, orderRequest{
		AuthToken:       token,
		DeliveryNeeded:  false,
		AmountCents:     amountCents,
		Currency:        currency,
		MerchantOrderID: merchantOrderID,
		Items:           items,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("RegisterOrder error: %w", err)
	}
	return &out, nil
}

func (c *Client) PaymentKey(ctx context.Context, token string, paymobOrderID int64, req SessionRequest) (string, error) {
	var out paymentKeyResponse
	err := c.post(ctx, paymentKeyPath, paymentKeyRequest{
		AuthToken:         token,
		AmountCents:       req.AmountCents,
		Expiration:        req.ExpirationSeconds,
		OrderID:           strconv.FormatInt(paymobOrderID, 10),
		BillingData:       req.Billing,
		Currency:          req.Currency,
		IntegrationID:     c.integrationID,
		LockOrderWhenPaid: true,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("PaymentKey error: %w", err)
	}
	return out.Token, nil
}

func (c *Client) IframeURL(paymentToken string) string {
	return c.baseURL + iframePath + c.iframeID + "?payment_token=" + paymentToken
}

// CreateSession runs auth -> order registration -> payment key and returns
// the hosted iframe URL.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	token, err := c.authToken(ctx)
	if err != nil {
		return nil, err
	}
	order, err := c.RegisterOrder(ctx, token, req.MerchantOrderID, req.AmountCents, req.Currency, req.Items)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			c.invalidateToken()
		}
		return nil, err
	}
	payToken, err := c.PaymentKey(ctx, token, order.ID, req)
	if err != nil {
		return nil, err
	}
	return &Session{
		PaymobOrderID: strconv.FormatInt(order.ID, 10),
		PaymentToken:  payToken,
		CheckoutURL:   c.IframeURL(payToken),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var apiErr ErrorResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return fmt.Errorf("paymob request failed: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Detail
		}
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}
