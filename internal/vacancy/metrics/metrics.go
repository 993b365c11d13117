package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the vacancy publication workflow.
type Metrics struct {
	Published        *prometheus.CounterVec
	PaymentsFailed   *prometheus.CounterVec
	Rollbacks        prometheus.Counter
	RefundFailures   prometheus.Counter
	Expired          prometheus.Counter
	ScoresUpdated    prometheus.Counter
	PublishDuration  prometheus.Histogram
	FinalizeDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Published: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_vacancies_published_total",
			Help: "Vacancies moved to PUBLISHED, by publication type",
		}, []string{"publication_type"}),
		PaymentsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_vacancy_payments_failed_total",
			Help: "Publication payments that were declined or errored, by method",
		}, []string{"method"}),
		Rollbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobboard_vacancy_rollbacks_total",
			Help: "Paid vacancies reset to DRAFT after a post-payment failure",
		}),
		RefundFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobboard_vacancy_refund_failures_total",
			Help: "Compensating refunds that failed and need operator attention",
		}),
		Expired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobboard_vacancies_expired_total",
			Help: "Vacancies moved to EXPIRED",
		}),
		ScoresUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jobboard_vacancy_scores_updated_total",
			Help: "Promotion score changes written by the scoring jobs",
		}),
		PublishDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobboard_publish_with_payment_duration_seconds",
			Help:    "Duration of PublishWithPayment including finalize and compensation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		FinalizeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobboard_finalize_publish_duration_seconds",
			Help:    "Duration of FinalizePublish including the external board call",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementPublished(tier string) {
	if m == nil {
		return
	}
	m.Published.WithLabelValues(tier).Inc()
}

func (m *Metrics) IncrementPaymentFailed(method string) {
	if m == nil {
		return
	}
	m.PaymentsFailed.WithLabelValues(method).Inc()
}

func (m *Metrics) IncrementRollback() {
	if m == nil {
		return
	}
	m.Rollbacks.Inc()
}

func (m *Metrics) IncrementRefundFailure() {
	if m == nil {
		return
	}
	m.RefundFailures.Inc()
}

func (m *Metrics) AddExpired(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Expired.Add(float64(n))
}

func (m *Metrics) AddScoresUpdated(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ScoresUpdated.Add(float64(n))
}

// ObservePublish records the duration of a PublishWithPayment call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObservePublish(start time.Time) {
	if m == nil {
		return
	}
	m.PublishDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveFinalize(start time.Time) {
	if m == nil {
		return
	}
	m.FinalizeDuration.Observe(time.Since(start).Seconds())
}
