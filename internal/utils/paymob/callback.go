package paymob

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
)

var ErrMalformedCallback = errors.New("malformed paymob callback")

// ObjFromBody returns the raw "obj" of a callback envelope
// {"type":"TRANSACTION","obj":{...}}.
func ObjFromBody(body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformedCallback
	}
	obj := gjson.GetBytes(body, "obj")
	if !obj.IsObject() {
		return nil, ErrMalformedCallback
	}
	if t := gjson.GetBytes(body, "type").String(); t != "" && t != "TRANSACTION" {
		return nil, ErrMalformedCallback
	}
	return []byte(obj.Raw), nil
}

func ParseTransaction(obj []byte) (*Transaction, error) {
	id := gjson.GetBytes(obj, "id")
	if !id.Exists() {
		return nil, ErrMalformedCallback
	}
	respCode := gjson.GetBytes(obj, "data.txn_response_code").String()
	msg := gjson.GetBytes(obj, "data.message").String()
	return &Transaction{
		ID:              id.String(),
		PaymobOrderID:   gjson.GetBytes(obj, "order.id").String(),
		MerchantOrderID: gjson.GetBytes(obj, "order.merchant_order_id").String(),
		AmountCents:     gjson.GetBytes(obj, "amount_cents").Int(),
		Currency:        gjson.GetBytes(obj, "currency").String(),
		Success:         gjson.GetBytes(obj, "success").Bool(),
		Pending:         gjson.GetBytes(obj, "pending").Bool(),
		ErrorOccured:    gjson.GetBytes(obj, "error_occured").Bool(),
		IsRefunded:      gjson.GetBytes(obj, "is_refunded").Bool(),
		IsVoided:        gjson.GetBytes(obj, "is_voided").Bool(),
		IsAuth:          gjson.GetBytes(obj, "is_auth").Bool(),
		IsCapture:       gjson.GetBytes(obj, "is_capture").Bool(),
		Message:         msg,
		ResponseCode:    respCode,
	}, nil
}

// TransactionFromQuery reads the redirect query string the same way.
func TransactionFromQuery(q url.Values) (*Transaction, error) {
	if q.Get("id") == "" {
		return nil, ErrMalformedCallback
	}
	b := func(k string) bool { v, _ := strconv.ParseBool(q.Get(k)); return v }
	amount, _ := strconv.ParseInt(q.Get("amount_cents"), 10, 64)
	return &Transaction{
		ID:              q.Get("id"),
		PaymobOrderID:   q.Get("order"),
		MerchantOrderID: q.Get("merchant_order_id"),
		AmountCents:     amount,
		Currency:        q.Get("currency"),
		Success:         b("success"),
		Pending:         b("pending"),
		ErrorOccured:    b("error_occured"),
		IsRefunded:      b("is_refunded"),
		IsVoided:        b("is_voided"),
		IsAuth:          b("is_auth"),
		IsCapture:       b("is_capture"),
		Message:         q.Get("data.message"),
		ResponseCode:    q.Get("txn_response_code"),
	}, nil
}
