package models

const (
	TypeCheckoutSessionCreated = "checkout.session_created"
	TypePaymentConfirmed       = "payment.confirmed"
	TypePaymentFailed          = "payment.failed"
)

type CheckoutLine struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	PriceCents  int64  `json:"price_cents"`
	Quantity    int    `json:"quantity"`
}

type CheckoutSessionCreatedPayload struct {
	SessionID  string         `json:"session_id"`
	UserID     string         `json:"user_id"`
	TotalCents int64          `json:"total_cents"`
	Lines      []CheckoutLine `json:"lines"`
}

// PaymentConfirmedPayload is the confirmation signal: enough identity to
// locate the paying user's cart.
type PaymentConfirmedPayload struct {
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
}

type PaymentFailedPayload struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Reason    string `json:"reason"`
}
