package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		purchasesTotal,
		purchaseRevenueTotal,
		purchasesSweptTotal,
	)
}

var (
	purchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Purchase ledger transitions by resulting status.",
		},
		[]string{"status"}, // 'pending', 'completed', 'failed', 'refunded'
	)

	purchaseRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_revenue_total",
			Help: "Total monetary value of completed purchases in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)

	purchasesSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "purchases_swept_total",
			Help: "Completed rows relabelled to expired by the sweep worker.",
		},
	)
)

func IncPurchase(status string) {
	purchasesTotal.WithLabelValues(norm(status)).Inc()
}

func AddPurchaseRevenue(currency string, amountMinor int64) {
	purchaseRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amountMinor))
}

func AddPurchasesSwept(count int) {
	purchasesSweptTotal.Add(float64(count))
}
