package fx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"
)

var ErrRateMissing = errors.New("fx api response has no rate for quote currency")

type ratesResponse struct {
	Result string             `json:"result,omitempty"`
	Base   string             `json:"base,omitempty"`
	Rates  map[string]float64 `json:"rates"`
}

type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fx api http error (%d)", e.StatusCode)
}

// Client fetches spot rates from a JSON endpoint answering
// GET <url>?base=EGP with {"rates": {"AED": 0.075, ...}}.
type Client struct {
	rest     *resty.Client
	url      string
	attempts uint
	delay    time.Duration
}

func NewClient(url, apiKey string, timeout time.Duration, attempts uint, delay time.Duration) *Client {
	rest := resty.New().SetTimeout(timeout).SetHeader("Accept", "application/json")
	if apiKey != "" {
		rest.SetAuthToken(apiKey)
	}
	if attempts == 0 {
		attempts = 1
	}
	return &Client{rest: rest, url: url, attempts: attempts, delay: delay}
}

// FetchRates returns every quote the API knows for base, retrying transient
// failures.
func (c *Client) FetchRates(ctx context.Context, base string) (map[string]float64, error) {
	var out ratesResponse
	err := retry.Do(
		func() error {
			out = ratesResponse{}
			resp, err := c.rest.R().
				SetContext(ctx).
				SetQueryParam("base", strings.ToUpper(base)).
				SetResult(&out).
				Get(c.url)
			if err != nil {
				return err
			}
			if resp.IsError() {
				return &StatusError{StatusCode: resp.StatusCode()}
			}
			if len(out.Rates) == 0 {
				return errors.New("fx api returned no rates")
			}
			return nil
		},
		retry.Attempts(c.attempts),
		retry.LastErrorOnly(true),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
			}
			return true
		}),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, err
	}
	rates := make(map[string]float64, len(out.Rates))
	for k, v := range out.Rates {
		rates[strings.ToUpper(k)] = v
	}
	return rates, nil
}

func (c *Client) FetchRate(ctx context.Context, base, quote string) (float64, error) {
	rates, err := c.FetchRates(ctx, base)
	if err != nil {
		return 0, err
	}
	r, ok := rates[strings.ToUpper(quote)]
	if !ok || r <= 0 {
		return 0, ErrRateMissing
	}
	return r, nil
}
