package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OrdersCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders materialized from confirmed checkouts",
	})
	OrdersSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_sent_total",
		Help: "Orders marked as sent",
	})
	CheckoutDuplicateConfirmationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_duplicate_confirmations_total",
		Help: "Confirmations ignored because their session already produced an order",
	})
	CheckoutEmptyCartTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_empty_cart_total",
		Help: "Confirmations that arrived for an empty cart",
	})
	PaymentGatewayErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_gateway_errors_total",
		Help: "Failed payment gateway calls",
	}, []string{"final"})
)

func init() {
	prometheus.MustRegister(
		OrdersCreatedTotal,
		OrdersSentTotal,
		CheckoutDuplicateConfirmationsTotal,
		CheckoutEmptyCartTotal,
		PaymentGatewayErrorsTotal,
	)
}
