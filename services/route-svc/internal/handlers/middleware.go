package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"searoute/pkg/apperror"
	"searoute/pkg/config"
	"searoute/pkg/logger"
	"searoute/pkg/metrics"
	"searoute/pkg/ratelimit"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Заголовок сквозного идентификатора запроса
const requestIDHeader = "X-Request-ID"

// Middleware стандартная сигнатура HTTP промежуточного слоя
type Middleware func(http.Handler) http.Handler

// Chain применяет промежуточные слои в порядке перечисления
func Chain(h http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// RequestIDFromContext возвращает идентификатор запроса
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestID прокидывает или генерирует сквозной идентификатор запроса
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// statusRecorder перехватывает статус ответа для логов и метрик
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging структурированный access-лог
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", float64(time.Since(started).Microseconds())/1000,
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}

// Metrics записывает счётчики и гистограммы HTTP
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		m := metrics.Get()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// Шаблон маршрута вместо сырого пути, чтобы не раздувать кардинальность
		path := r.Pattern
		if path == "" {
			path = r.URL.Path
		}
		m.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.status), time.Since(started))
	})
}

// CORS выставляет заголовки по конфигурации
func CORS(cfg config.CORSConfig) Middleware {
	allowedOrigins := strings.Join(cfg.AllowedOrigins, ", ")
	allowedMethods := strings.Join(cfg.AllowedMethods, ", ")
	allowedHeaders := strings.Join(cfg.AllowedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigins)
			h.Set("Access-Control-Allow-Methods", allowedMethods)
			h.Set("Access-Control-Allow-Headers", allowedHeaders)
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit ограничивает частоту запросов по IP клиента
func RateLimit(limiter ratelimit.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), ratelimit.ClientIPExtractor(r))
			if err != nil {
				// Недоступность лимитера не должна ронять трафик
				logger.Warn("rate limiter failed, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				writeError(w, r, apperror.New(apperror.CodeRateLimited, "request rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
