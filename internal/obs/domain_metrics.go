package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// TransactionsRecordedTotal counts ledger appends by region and payment method.
	TransactionsRecordedTotal *prometheus.CounterVec
	// TransactionRevenueTotal sums recorded totals (tax included) per region.
	TransactionRevenueTotal *prometheus.CounterVec
	// TransactionTaxTotal sums recorded tax per region.
	TransactionTaxTotal *prometheus.CounterVec
	// PaymentAuthorizationsTotal counts payment provider outcomes.
	PaymentAuthorizationsTotal *prometheus.CounterVec
	// DetectionsTotal counts simulated product detections per region.
	DetectionsTotal *prometheus.CounterVec
	// ReceiptJobsTotal tracks receipt enqueue and delivery outcomes.
	ReceiptJobsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		TransactionsRecordedTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_recorded_total",
			Help:      "Count of transactions appended to the ledger.",
		}, []string{"region", "payment_method"}))
		TransactionRevenueTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_revenue_total",
			Help:      "Sum of recorded transaction totals in the region currency.",
		}, []string{"region"}))
		TransactionTaxTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_tax_total",
			Help:      "Sum of tax collected in the region currency.",
		}, []string{"region"}))
		PaymentAuthorizationsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_authorizations_total",
			Help:      "Count of payment authorisation outcomes.",
		}, []string{"provider", "method", "result"}))
		DetectionsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scanner_detections_total",
			Help:      "Count of simulated product detections.",
		}, []string{"region"}))
		ReceiptJobsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_jobs_total",
			Help:      "Count of receipt job outcomes by stage.",
		}, []string{"stage", "result"}))
	})
}
