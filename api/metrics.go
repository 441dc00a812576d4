package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName      = "github.com/Swapnanilmanna1701/tracker/api"
	requestEvent    = "http.request"
	metricsCtxKey   = "request_metrics"
	noTasksReturned = -1
)

type requestMetrics struct {
	logger        *log.Logger
	span          trace.Span
	start         time.Time
	method        string
	route         string
	username      string
	tasksReturned int
	errorStage    string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, method, route string) (*requestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("http.route", route),
		),
	)
	return &requestMetrics{
		logger:        logger,
		span:          span,
		start:         time.Now(),
		method:        method,
		route:         route,
		tasksReturned: noTasksReturned,
	}, ctx
}

// metricsFrom never returns nil so handlers can record unconditionally.
func metricsFrom(c echo.Context) *requestMetrics {
	if m, ok := c.Get(metricsCtxKey).(*requestMetrics); ok && m != nil {
		return m
	}
	return &requestMetrics{tasksReturned: noTasksReturned}
}

func (m *requestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *requestMetrics) SetUsername(name string) {
	m.username = name
}

// Log emits one structured event and ends the span.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	total := time.Since(m.start)
	fields := log.Fields{
		"event.name": requestEvent,
		"method":     m.method,
		"route":      m.route,
		"status":     status,
		"total_ms":   durationToMillis(total),
	}
	attrs := []attribute.KeyValue{
		attribute.Int("http.response.status_code", status),
		attribute.Float64("tracker.request.total_ms", durationToMillis(total)),
	}
	if m.username != "" {
		fields["username"] = m.username
		attrs = append(attrs, attribute.String("tracker.username", m.username))
	}
	if m.tasksReturned >= 0 {
		fields["tasks_returned"] = m.tasksReturned
		attrs = append(attrs, attribute.Int("tracker.tasks.returned", m.tasksReturned))
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
		attrs = append(attrs, attribute.String("tracker.error_stage", m.errorStage))
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		if status >= http.StatusInternalServerError || err != nil {
			msg := http.StatusText(status)
			if err != nil {
				msg = err.Error()
				m.span.RecordError(err)
			}
			m.span.SetStatus(codes.Error, msg)
		}
		m.span.End()
	}

	entry := m.logger.WithFields(fields)
	switch severityForStatus(status, err) {
	case log.ErrorLevel:
		entry.Error(requestEvent)
	case log.WarnLevel:
		entry.Warn(requestEvent)
	default:
		entry.Info(requestEvent)
	}
}

func severityForStatus(status int, err error) log.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return log.ErrorLevel
	case status >= http.StatusBadRequest:
		return log.WarnLevel
	case err != nil:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// RequestMetricsMiddleware opens a span per request and logs its outcome.
func RequestMetricsMiddleware(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			metrics, ctx := newRequestMetrics(req.Context(), logger, req.Method, c.Path())
			c.SetRequest(req.WithContext(ctx))
			c.Set(metricsCtxKey, metrics)

			err := next(c)
			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
				c.Error(err)
			}
			metrics.Log(status, err)
			return nil
		}
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
