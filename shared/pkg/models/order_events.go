package models

const (
	TypeOrderCreated = "orders.created"
	TypeOrderSent    = "orders.sent"
)

type OrderItemPayload struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Qty         int    `json:"qty"`
	PriceCents  int64  `json:"price_cents"`
}

type OrderCreatedPayload struct {
	UserID     string             `json:"user_id"`
	Email      string             `json:"email"`
	SessionID  string             `json:"session_id"`
	TotalCents int64              `json:"total_cents"`
	Items      []OrderItemPayload `json:"items"`
}

type OrderSentPayload struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	TrackingNumber string `json:"tracking_number"`
}
