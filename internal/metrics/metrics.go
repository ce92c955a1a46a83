package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	valuationsTotal   *prometheus.CounterVec
	valuationDuration prometheus.Histogram
	quoteFetches      *prometheus.CounterVec
	quoteCacheHits    *prometheus.CounterVec
	exchangeRate      prometheus.Gauge
	adviceRequests    *prometheus.CounterVec
	adviceDuration    prometheus.Histogram
	alertsFired       *prometheus.CounterVec
	notificationsSent *prometheus.CounterVec
	jobsActive        *prometheus.GaugeVec
	holdingsTracked   prometheus.Gauge
	portfolioValue    *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.valuationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_valuations_total",
			Help: "Total number of portfolio valuations",
		},
		[]string{"market", "status"},
	)
	r.valuationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_valuation_duration_seconds",
			Help:    "Portfolio valuation duration in seconds, quote fetch included",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.quoteFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_quote_fetches_total",
			Help: "Total number of quote fetches by provider",
		},
		[]string{"provider", "status"},
	)
	r.quoteCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_quote_cache_lookups_total",
			Help: "Price cache lookups by result",
		},
		[]string{"result"},
	)
	r.exchangeRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_exchange_rate_usd_twd",
			Help: "Current USD/TWD exchange rate in use",
		},
	)
	r.adviceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_advice_requests_total",
			Help: "Total number of advice requests",
		},
		[]string{"provider", "status"},
	)
	r.adviceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_advice_duration_seconds",
			Help:    "Advice generation duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120},
		},
	)
	r.alertsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_alerts_fired_total",
			Help: "Total number of risk alerts fired",
		},
		[]string{"rule"},
	)
	r.notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_notifications_total",
			Help: "Total number of notifications sent",
		},
		[]string{"notifier", "status"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "folio_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)
	r.holdingsTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_holdings_tracked",
			Help: "Number of holdings across all profiles",
		},
	)
	r.portfolioValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "folio_portfolio_market_value",
			Help: "Last computed total market value per profile in its base currency",
		},
		[]string{"profile", "currency"},
	)

	reg.MustRegister(r.valuationsTotal)
	reg.MustRegister(r.valuationDuration)
	reg.MustRegister(r.quoteFetches)
	reg.MustRegister(r.quoteCacheHits)
	reg.MustRegister(r.exchangeRate)
	reg.MustRegister(r.adviceRequests)
	reg.MustRegister(r.adviceDuration)
	reg.MustRegister(r.alertsFired)
	reg.MustRegister(r.notificationsSent)
	reg.MustRegister(r.jobsActive)
	reg.MustRegister(r.holdingsTracked)
	reg.MustRegister(r.portfolioValue)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordValuation records a completed valuation.
func (r *Registry) RecordValuation(market, status string, duration float64) {
	r.valuationsTotal.WithLabelValues(market, status).Inc()
	r.valuationDuration.Observe(duration)
}

// RecordQuoteFetch records a quote fetch against a provider.
func (r *Registry) RecordQuoteFetch(provider, status string) {
	r.quoteFetches.WithLabelValues(provider, status).Inc()
}

// RecordCacheLookup records a price cache hit or miss.
func (r *Registry) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.quoteCacheHits.WithLabelValues(result).Inc()
}

// SetExchangeRate sets the USD/TWD rate gauge.
func (r *Registry) SetExchangeRate(rate float64) {
	r.exchangeRate.Set(rate)
}

// RecordAdvice records an advice request.
func (r *Registry) RecordAdvice(provider, status string, duration float64) {
	r.adviceRequests.WithLabelValues(provider, status).Inc()
	r.adviceDuration.Observe(duration)
}

// RecordAlert records a fired alert.
func (r *Registry) RecordAlert(rule string) {
	r.alertsFired.WithLabelValues(rule).Inc()
}

// RecordNotification records a notification delivery attempt.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notificationsSent.WithLabelValues(notifier, status).Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

// SetHoldingsTracked sets the number of holdings across profiles.
func (r *Registry) SetHoldingsTracked(count int) {
	r.holdingsTracked.Set(float64(count))
}

// SetPortfolioValue sets the last total market value of a profile.
func (r *Registry) SetPortfolioValue(profile, currency string, value float64) {
	r.portfolioValue.WithLabelValues(profile, currency).Set(value)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
