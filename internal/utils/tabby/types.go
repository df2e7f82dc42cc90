package tabby

import "time"

// Payment statuses as returned by the Payments API. Comparisons are
// case-insensitive; webhooks send lowercase.
const (
	StatusCreated    = "CREATED"
	StatusAuthorized = "AUTHORIZED"
	StatusClosed     = "CLOSED"
	StatusRejected   = "REJECTED"
	StatusExpired    = "EXPIRED"
)

type ErrorResponse struct {
	Status    string `json:"status,omitempty"`
	ErrorType string `json:"errorType,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ShippingAddress struct {
	City    string `json:"city"`
	Address string `json:"address"`
	Zip     string `json:"zip"`
}

type OrderItem struct {
	Title       string `json:"title"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	ReferenceID string `json:"reference_id"`
	Category    string `json:"category"`
}

type Order struct {
	ReferenceID string      `json:"reference_id"`
	Items       []OrderItem `json:"items"`
}

type PaymentRequest struct {
	Amount          string           `json:"amount"`
	Currency        string           `json:"currency"`
	Description     string           `json:"description,omitempty"`
	Buyer           Buyer            `json:"buyer"`
	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty"`
	Order           Order            `json:"order"`
}

type MerchantURLs struct {
	Success string `json:"success"`
	Cancel  string `json:"cancel"`
	Failure string `json:"failure"`
}

type CheckoutRequest struct {
	Payment      PaymentRequest `json:"payment"`
	Lang         string         `json:"lang"`
	MerchantCode string         `json:"merchant_code"`
	MerchantURLs MerchantURLs   `json:"merchant_urls"`
}

type installment struct {
	WebURL string `json:"web_url"`
}

type CheckoutResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Payment struct {
		ID string `json:"id"`
	} `json:"payment"`
	Configuration struct {
		AvailableProducts struct {
			Installments []installment `json:"installments"`
		} `json:"available_products"`
	} `json:"configuration"`
}

// WebURL is the hosted page the buyer is redirected to, if Tabby approved
// the session.
func (r *CheckoutResponse) WebURL() string {
	for _, i := range r.Configuration.AvailableProducts.Installments {
		if i.WebURL != "" {
			return i.WebURL
		}
	}
	return ""
}

type Capture struct {
	ID        string     `json:"id,omitempty"`
	Amount    string     `json:"amount"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type Payment struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	Order     struct {
		ReferenceID string `json:"reference_id"`
	} `json:"order"`
	Captures []Capture `json:"captures"`
}

// WebhookPayload is the body Tabby posts on payment status changes.
type WebhookPayload struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Order    struct {
		ReferenceID string `json:"reference_id"`
	} `json:"order"`
}
