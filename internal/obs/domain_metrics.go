package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DeliveryQuotesTotal counts delivery quotes by the path that produced them.
	DeliveryQuotesTotal *prometheus.CounterVec
	// PricingFallbackTotal counts operations that degraded from the remote service to local pricing.
	PricingFallbackTotal *prometheus.CounterVec
	// CoefficientUpdatesTotal counts coefficient update attempts by result.
	CoefficientUpdatesTotal *prometheus.CounterVec
	// OrdersPlacedTotal counts completed checkouts.
	OrdersPlacedTotal prometheus.Counter
	// OrderValue records placed order totals in major currency units.
	OrderValue prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DeliveryQuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_quotes_total",
			Help:      "Delivery quotes by pricing source.",
		}, []string{"source"})
		PricingFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_fallback_total",
			Help:      "Pricing operations served locally after a remote failure.",
		}, []string{"operation"})
		CoefficientUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coefficient_updates_total",
			Help:      "Coefficient update attempts by result.",
		}, []string{"result"})
		OrdersPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders placed through checkout.",
		})
		OrderValue = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_value",
			Help:      "Distribution of order totals including tax.",
			Buckets:   []float64{10, 25, 50, 100, 200, 400, 800},
		})

		DeliveryQuotesTotal = register(reg, DeliveryQuotesTotal)
		PricingFallbackTotal = register(reg, PricingFallbackTotal)
		CoefficientUpdatesTotal = register(reg, CoefficientUpdatesTotal)
		OrdersPlacedTotal = register(reg, OrdersPlacedTotal)
		OrderValue = register(reg, OrderValue)
	})
}

// RecordQuote increments the quote counter when domain metrics are registered.
func RecordQuote(source string) {
	if DeliveryQuotesTotal != nil {
		DeliveryQuotesTotal.WithLabelValues(source).Inc()
	}
}

// RecordFallback increments the fallback counter for the given operation.
func RecordFallback(operation string) {
	if PricingFallbackTotal != nil {
		PricingFallbackTotal.WithLabelValues(operation).Inc()
	}
}

// RecordCoefficientUpdate increments the coefficient update counter.
func RecordCoefficientUpdate(result string) {
	if CoefficientUpdatesTotal != nil {
		CoefficientUpdatesTotal.WithLabelValues(result).Inc()
	}
}

// RecordOrder tracks a placed order and its total.
func RecordOrder(total float64) {
	if OrdersPlacedTotal != nil {
		OrdersPlacedTotal.Inc()
	}
	if OrderValue != nil {
		OrderValue.Observe(total)
	}
}
