// Package metrics содержит метрики Prometheus сервиса и служебный HTTP-сервер для них.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// RemindersDispatched напоминания, переданные в очередь воркером.
	RemindersDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_dispatched_total",
			Help: "Reminders handed to the notification queue, by days before renewal",
		},
		[]string{"days_before"},
	)

	// EmailsSent письма, отправленные сервисом рассылки.
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_emails_total",
			Help: "Reminder e-mails processed by the sender, by result",
		},
		[]string{"result"},
	)

	// ExpirySweeps запуски фоновой задачи перевода просроченных подписок в expired.
	ExpirySweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_expiry_sweeps_total",
			Help: "Expiry sweeper runs, by result",
		},
		[]string{"result"},
	)
)

// Middleware chi middleware, которое считает запросы и их длительность по шаблону маршрута.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RegisterDBStats публикует статистику пула соединений database/sql.
func RegisterDBStats(db *sql.DB, dbName string) error {
	return prometheus.Register(collectors.NewDBStatsCollector(db, dbName))
}

// NewServer создаёт HTTP-сервер, отдающий /metrics и /healthz.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
