package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// HTTP метрики
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Бизнес-метрики
	RouteCalculationsTotal *prometheus.CounterVec
	RouteCalculationTime   *prometheus.HistogramVec
	RouteDistanceNM        *prometheus.HistogramVec
	RoutesEvaluated        *prometheus.HistogramVec
	AlternativesReturned   *prometheus.HistogramVec
	CalculationsInFlight   prometheus.Gauge

	// Кэш
	CacheOperationsTotal *prometheus.CounterVec

	// Граф портов
	GraphBuildsTotal   *prometheus.CounterVec
	GraphBuildDuration prometheus.Histogram
	GraphNodes         prometheus.Gauge
	GraphEdges         prometheus.Gauge

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics инициализирует метрики
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		RouteCalculationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "route_calculations_total",
				Help:      "Total number of route calculations",
			},
			[]string{"criteria", "algorithm", "status"},
		),

		RouteCalculationTime: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "route_calculation_seconds",
				Help:      "Duration of route calculations",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"criteria", "algorithm"},
		),

		RouteDistanceNM: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "route_distance_nm",
				Help:      "Total distance of calculated primary routes in nautical miles",
				Buckets:   []float64{500, 1000, 2500, 5000, 7500, 10000, 15000, 25000},
			},
			[]string{"criteria"},
		),

		RoutesEvaluated: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "routes_evaluated",
				Help:      "Number of candidate routes evaluated per calculation",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
			},
			[]string{"algorithm"},
		),

		AlternativesReturned: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "alternatives_returned",
				Help:      "Number of alternative routes returned",
				Buckets:   []float64{0, 1, 2, 3, 5, 10},
			},
			[]string{"criteria"},
		),

		CalculationsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "calculations_in_flight",
				Help:      "Current number of route calculations being processed",
			},
		),

		CacheOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_operations_total",
				Help:      "Cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),

		GraphBuildsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_builds_total",
				Help:      "Total number of port graph builds",
			},
			[]string{"status"},
		),

		GraphBuildDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_build_duration_seconds",
				Help:      "Duration of port graph builds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		GraphNodes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_nodes",
				Help:      "Number of ports in the active graph snapshot",
			},
		),

		GraphEdges: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_edges",
				Help:      "Number of edges in the active graph snapshot",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("searoute", "")
	}
	return defaultMetrics
}

// RecordHTTPRequest записывает метрики HTTP запроса
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCalculation записывает метрики расчёта маршрута
func (m *Metrics) RecordCalculation(criteria, algorithm string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}

	m.RouteCalculationsTotal.WithLabelValues(criteria, algorithm, status).Inc()
	m.RouteCalculationTime.WithLabelValues(criteria, algorithm).Observe(duration.Seconds())
}

// RecordRouteResult записывает характеристики найденного маршрута
func (m *Metrics) RecordRouteResult(criteria, algorithm string, distanceNM float64, evaluated, alternatives int) {
	m.RouteDistanceNM.WithLabelValues(criteria).Observe(distanceNM)
	m.RoutesEvaluated.WithLabelValues(algorithm).Observe(float64(evaluated))
	m.AlternativesReturned.WithLabelValues(criteria).Observe(float64(alternatives))
}

// RecordCacheOperation записывает результат обращения к кэшу
func (m *Metrics) RecordCacheOperation(kind, result string) {
	m.CacheOperationsTotal.WithLabelValues(kind, result).Inc()
}

// RecordGraphBuild записывает метрики построения графа
func (m *Metrics) RecordGraphBuild(success bool, duration time.Duration, nodes, edges int) {
	status := "success"
	if !success {
		status = "error"
	}

	m.GraphBuildsTotal.WithLabelValues(status).Inc()
	m.GraphBuildDuration.Observe(duration.Seconds())
	if success {
		m.GraphNodes.Set(float64(nodes))
		m.GraphEdges.Set(float64(edges))
	}
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer запускает HTTP сервер для метрик
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, ошибка записи не критична
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
