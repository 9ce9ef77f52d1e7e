package metricsexporter

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stormwatch/stormwatch/internal/config"
	"github.com/stormwatch/stormwatch/internal/logger"
	"github.com/stormwatch/stormwatch/internal/validation"
)

var (
	refreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stormwatch_refreshes_total",
			Help: "Total alert feed refreshes by outcome.",
		},
		[]string{"status"},
	)

	refreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stormwatch_refresh_duration_seconds",
			Help:    "Duration of alert feed refreshes.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	lastRefreshTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stormwatch_last_refresh_timestamp_seconds",
			Help: "Unix timestamp of the last completed refresh.",
		},
	)

	knownAlertsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stormwatch_known_alerts",
			Help: "Number of alerts in the last successfully fetched set.",
		},
	)

	activeAlertsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stormwatch_active_alerts",
			Help: "Number of alerts currently active (not dismissed, not expired).",
		},
	)

	dismissalsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stormwatch_dismissals_total",
			Help: "Total alert dismissals.",
		},
	)

	dispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stormwatch_notifications_dispatched_total",
			Help: "Notification dispatch attempts by sink and outcome.",
		},
		[]string{"sink", "status"},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stormwatch_notifications_rate_limited_total",
			Help: "Notifications dropped by the dispatch rate limit.",
		},
	)
)

var limiter = rate.NewLimiter(rate.Limit(config.DefaultRateLimitPerSec), config.DefaultRateLimitBurst)

func init() {
	prometheus.MustRegister(
		refreshesTotal,
		refreshDuration,
		lastRefreshTimestamp,
		knownAlertsGauge,
		activeAlertsGauge,
		dismissalsTotal,
		dispatchesTotal,
		rateLimitedTotal,
	)
}

func RecordRefresh(status string, duration time.Duration) {
	refreshesTotal.WithLabelValues(status).Inc()
	refreshDuration.Observe(duration.Seconds())
	lastRefreshTimestamp.Set(float64(time.Now().Unix()))
}

func SetKnownAlerts(n int) {
	knownAlertsGauge.Set(float64(n))
}

func SetActiveAlerts(n int) {
	activeAlertsGauge.Set(float64(n))
}

func RecordDismissal() {
	dismissalsTotal.Inc()
}

func RecordDispatch(sink, status string) {
	dispatchesTotal.WithLabelValues(sink, status).Inc()
}

func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > config.MaxRequestSize {
			http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestSize)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Dismisser is the slice of the lifecycle manager the control endpoint needs.
type Dismisser interface {
	Dismiss(id string)
}

func dismissHandler(d Dismisser) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := r.URL.Query().Get("id")
		if err := validation.ValidateAlertID(id); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d.Dismiss(id)
		w.WriteHeader(http.StatusNoContent)
	})
}

type Server struct {
	server *http.Server
}

// StartServer serves /metrics plus the local dismissal endpoint. d may be nil,
// in which case only metrics are exposed.
func StartServer(d Dismisser) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", securityHeadersMiddleware(rateLimitMiddleware(promhttp.Handler())))
	if d != nil {
		mux.Handle("/dismiss", securityHeadersMiddleware(rateLimitMiddleware(dismissHandler(d))))
	}

	addr := config.GetMetricsAddress()

	if host, _, err := net.SplitHostPort(addr); err == nil {
		if ip := net.ParseIP(host); ip != nil && !ip.IsLoopback() {
			if !config.AllowNonLoopbackMetrics() {
				logger.Warn("Rejecting non-loopback metrics address, falling back to default",
					zap.String("requested_addr", addr),
					zap.String("fallback", fmt.Sprintf("%s:%d", config.DefaultMetricsHost, config.DefaultMetricsPort)))
				addr = config.DefaultMetricsHost + ":" + fmt.Sprintf("%d", config.DefaultMetricsPort)
			}
		}
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  config.DefaultMetricsReadTimeout,
		WriteTimeout: config.DefaultMetricsWriteTimeout,
	}

	srv := &Server{server: server}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in metrics server", zap.Any("panic", r))
			}
		}()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	return srv
}

func (s *Server) Shutdown() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultMetricsShutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
}
