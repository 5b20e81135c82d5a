package middleware

import (
	"bufio"
	"net"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/prometheus"
)

// LoggingMiddleware logs one line per request and feeds the HTTP metrics.
type LoggingMiddleware struct {
	logger  logging.Logger
	metrics *prometheus.PipelineMetrics
}

func NewLoggingMiddleware(logger logging.Logger, metrics *prometheus.PipelineMetrics) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger, metrics: metrics}
}

func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		if m.metrics != nil {
			m.metrics.HTTPActiveRequests.WithLabelValues(r.Method, r.URL.Path).Inc()
			defer m.metrics.HTTPActiveRequests.WithLabelValues(r.Method, r.URL.Path).Dec()
		}

		next.ServeHTTP(ww, r)

		took := time.Since(start)
		if m.metrics != nil {
			prometheus.RecordHTTPRequest(m.metrics, r.Method, r.URL.Path, ww.status, took)
		}

		fields := []logging.Field{
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.status),
			logging.Int("bytes", ww.bytes),
			logging.Duration("took", took),
		}
		if reqID := chimw.GetReqID(r.Context()); reqID != "" {
			fields = append(fields, logging.String("request_id", reqID))
		}
		if scope, ok := ScopeFromContext(r.Context()); ok {
			fields = append(fields, logging.String("tenant", string(scope.TenantID)))
		}

		switch {
		case ww.status >= 500:
			m.logger.Error("request", fields...)
		case ww.status >= 400:
			m.logger.Warn("request", fields...)
		default:
			m.logger.Info("request", fields...)
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.(http.Hijacker).Hijack()
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

//Personal.AI order the ending
