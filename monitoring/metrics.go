package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	holdOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_hold_operations_total",
			Help: "Total seat hold attempts by outcome",
		},
		[]string{"outcome"},
	)

	releaseOperations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seat_release_operations_total",
			Help: "Total seat release operations",
		},
	)

	purchaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_purchase_operations_total",
			Help: "Total seat purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total requests rejected by the rate limiter",
		},
		[]string{"bucket"},
	)

	holdDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seat_hold_duration_seconds",
			Help:    "Observed wall-clock duration of resolved seat holds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)

	hssKeyCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hss_seat_keys_total",
			Help: "Current count of seat:* keys in the hot state store",
		},
	)
)

// Metrics is the process-wide Prometheus sink, satisfying
// services.ReservationMetrics without services importing this package.
type Metrics struct {
	redis *redis.Client
}

func NewMetrics(redisClient *redis.Client) *Metrics {
	m := &Metrics{redis: redisClient}
	go m.collect()
	return m
}

func (m *Metrics) collect() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.collectGoroutines()
		m.collectHSSKeys(context.Background())
	}
}

func (m *Metrics) collectGoroutines() {
	goroutineCount.Set(float64(runtime.NumGoroutine()))
}

func (m *Metrics) collectHSSKeys(ctx context.Context) {
	var cursor uint64
	var total int64
	for {
		keys, next, err := m.redis.Scan(ctx, cursor, "seat:*", 500).Result()
		if err != nil {
			return
		}
		total += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}
	hssKeyCount.Set(float64(total))
}

func (m *Metrics) ObserveHold(outcome string) {
	holdOperations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRelease() {
	releaseOperations.Inc()
}

func (m *Metrics) ObservePurchase(outcome string) {
	purchaseOperations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHoldDuration(d time.Duration) {
	holdDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveRateLimitRejection(bucket string) {
	rateLimitRejections.WithLabelValues(bucket).Inc()
}
