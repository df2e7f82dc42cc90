package paymob

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// hmacFields is Paymob's documented field order for transaction callbacks.
var hmacFields = []string{
	"amount_cents",
	"created_at",
	"currency",
	"error_occured",
	"has_parent_transaction",
	"id",
	"integration_id",
	"is_3d_secure",
	"is_auth",
	"is_capture",
	"is_refunded",
	"is_standalone_payment",
	"is_voided",
	"order.id",
	"owner",
	"pending",
	"source_data.pan",
	"source_data.sub_type",
	"source_data.type",
	"success",
}

// ConcatObjFields joins the HMAC fields of a callback "obj" without separator.
func ConcatObjFields(obj []byte) string {
	var sb strings.Builder
	for _, f := range hmacFields {
		sb.WriteString(render(gjson.GetBytes(obj, f)))
	}
	return sb.String()
}

// ConcatQueryFields does the same for the redirect query string, where the
// order id arrives as "order".
func ConcatQueryFields(q url.Values) string {
	var sb strings.Builder
	for _, f := range hmacFields {
		key := f
		if f == "order.id" {
			key = "order"
		}
		sb.WriteString(q.Get(key))
	}
	return sb.String()
}

func render(v gjson.Result) string {
	switch v.Type {
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Null:
		return ""
	default:
		return v.String()
	}
}

func Sign(secret, message string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyObj checks the hmac query parameter sent with a webhook body.
func VerifyObj(secret string, obj []byte, provided string) bool {
	return verify(secret, ConcatObjFields(obj), provided)
}

func VerifyQuery(secret string, q url.Values) bool {
	return verify(secret, ConcatQueryFields(q), q.Get("hmac"))
}

func verify(secret, message, provided string) bool {
	if secret == "" || provided == "" {
		return false
	}
	expected := Sign(secret, message)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(provided))))
}
