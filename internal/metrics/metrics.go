package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	PointTransactions *prometheus.CounterVec
	PointsMoved       *prometheus.CounterVec
	FeaturedPurchases prometheus.Counter
	FeaturedExpired   prometheus.Counter
	SocialDispatches  *prometheus.CounterVec
	SocialLatency     *prometheus.HistogramVec
	SweepDuration     *prometheus.HistogramVec
	SweepErrors       *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			PointTransactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "point_transactions_total",
				Help:      "Total point transactions by direction and action.",
			}, []string{"direction", "action"}),
			PointsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "points_moved_total",
				Help:      "Total points moved by direction and action.",
			}, []string{"direction", "action"}),
			FeaturedPurchases: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "featured_purchases_total",
				Help:      "Total successful featured slot purchases.",
			}),
			FeaturedExpired: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "featured_slots_expired_total",
				Help:      "Total featured slots flipped to expired by the sweep.",
			}),
			SocialDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "social_dispatches_total",
				Help:      "Total social post dispatch attempts by platform and outcome.",
			}, []string{"platform", "status"}),
			SocialLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "social_dispatch_duration_seconds",
				Help:      "Latency distribution for social platform API calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"platform"}),
			SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sweep_duration_seconds",
				Help:      "Duration of background sweep jobs.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"job"}),
			SweepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_errors_total",
				Help:      "Errors raised by background sweep jobs.",
			}, []string{"job"}),
		}

		prometheus.MustRegister(
			metricsInstance.PointTransactions,
			metricsInstance.PointsMoved,
			metricsInstance.FeaturedPurchases,
			metricsInstance.FeaturedExpired,
			metricsInstance.SocialDispatches,
			metricsInstance.SocialLatency,
			metricsInstance.SweepDuration,
			metricsInstance.SweepErrors,
		)
	})
	return metricsInstance
}

func (m *Metrics) RecordPointTransaction(direction, action string, amount int64) {
	if m == nil {
		return
	}
	m.PointTransactions.WithLabelValues(direction, action).Inc()
	m.PointsMoved.WithLabelValues(direction, action).Add(float64(amount))
}

func (m *Metrics) RecordSocialDispatch(platform, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SocialDispatches.WithLabelValues(platform, status).Inc()
	m.SocialLatency.WithLabelValues(platform).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSweep(job string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.SweepDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		m.SweepErrors.WithLabelValues(job).Inc()
	}
}

func provide() *Metrics {
	return Registry("showyourproject")
}

var Module = fx.Module("metrics",
	fx.Provide(provide),
)
