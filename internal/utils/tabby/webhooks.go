package tabby

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"strings"
)

var ErrMalformedWebhook = errors.New("malformed tabby webhook")

// VerifyWebhookSecret compares the configured shared secret with the value
// of the webhook auth header in constant time.
func VerifyWebhookSecret(expected, provided string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

func ParseWebhook(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, ErrMalformedWebhook
	}
	if p.ID == "" {
		return nil, ErrMalformedWebhook
	}
	p.Status = NormalizeStatus(p.Status)
	return &p, nil
}

func NormalizeStatus(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
