package paymob

// ErrorResponse is the loose error shape Paymob returns on 4xx.
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

type authRequest struct {
	APIKey string `json:"api_key"`
}

type authResponse struct {
	Token string `json:"token"`
}

type Item struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
}

type orderRequest struct {
	AuthToken       string `json:"auth_token"`
	DeliveryNeeded  bool   `json:"delivery_needed"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	MerchantOrderID string `json:"merchant_order_id"`
	Items           []Item `json:"items"`
}

type OrderResponse struct {
	ID              int64  `json:"id"`
	MerchantOrderID string `json:"merchant_order_id"`
}

// BillingData fields are all mandatory on Paymob's side; unknown values are
// sent as "NA".
type BillingData struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Apartment   string `json:"apartment"`
	Floor       string `json:"floor"`
	Street      string `json:"street"`
	Building    string `json:"building"`
	City        string `json:"city"`
	Country     string `json:"country"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
}

type paymentKeyRequest struct {
	AuthToken         string      `json:"auth_token"`
	AmountCents       int64       `json:"amount_cents"`
	Expiration        int         `json:"expiration"`
	OrderID           string      `json:"order_id"`
	BillingData       BillingData `json:"billing_data"`
	Currency          string      `json:"currency"`
	IntegrationID     int         `json:"integration_id"`
	LockOrderWhenPaid bool        `json:"lock_order_when_paid"`
}

type paymentKeyResponse struct {
	Token string `json:"token"`
}

// SessionRequest is everything needed to open a hosted card form.
type SessionRequest struct {
	MerchantOrderID   string
	AmountCents       int64
	Currency          string
	Items             []Item
	Billing           BillingData
	ExpirationSeconds int
}

type Session struct {
	PaymobOrderID string
	PaymentToken  string
	CheckoutURL   string
}

// Transaction is the subset of the "transaction processed" callback object
// the store reconciles on.
type Transaction struct {
	ID              string
	PaymobOrderID   string
	MerchantOrderID string
	AmountCents     int64
	Currency        string
	Success         bool
	Pending         bool
	ErrorOccured    bool
	IsRefunded      bool
	IsVoided        bool
	IsAuth          bool
	IsCapture       bool
	Message         string
	ResponseCode    string
}
