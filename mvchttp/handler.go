// Package mvchttp connects the dispatch pipeline to net/http: it turns an
// *http.Request into an mvc.Request, runs it through a FrontController and
// writes the buffered output, a redirect, or an error response.
package mvchttp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vitalvas/lvc/internal/logging"
	"github.com/vitalvas/lvc/mvc"
)

const tracerName = "github.com/vitalvas/lvc/mvchttp"

// ErrorHandler writes the response for a failed dispatch.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Handler serves HTTP requests through a FrontController.
type Handler struct {
	front        *mvc.FrontController
	logger       *slog.Logger
	metrics      *Metrics
	tracer       trace.Tracer
	maxMemory    int64
	errorHandler ErrorHandler
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for dispatch results.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithMetrics records every dispatch in m.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithTracer sets the tracer for dispatch spans. Defaults to a tracer from
// the global OpenTelemetry provider.
func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) {
		h.tracer = t
	}
}

// WithMaxMemory sets the in-memory limit for multipart bodies.
func WithMaxMemory(n int64) Option {
	return func(h *Handler) {
		h.maxMemory = n
	}
}

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(eh ErrorHandler) Option {
	return func(h *Handler) {
		h.errorHandler = eh
	}
}

// NewHandler creates a Handler dispatching through front.
func NewHandler(front *mvc.FrontController, opts ...Option) *Handler {
	h := &Handler{
		front:        front,
		maxMemory:    DefaultMaxMemory,
		errorHandler: DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	if h.tracer == nil {
		h.tracer = otel.Tracer(tracerName)
	}
	if h.errorHandler == nil {
		h.errorHandler = DefaultErrorHandler
	}

	return h
}

type responseWriterKey struct{}

type httpRequestKey struct{}

// ResponseWriterFromContext returns the response writer of the request
// being dispatched, so actions can set headers. Output written to it
// directly bypasses the buffered view output.
func ResponseWriterFromContext(ctx context.Context) (http.ResponseWriter, bool) {
	w, ok := ctx.Value(responseWriterKey{}).(http.ResponseWriter)
	return w, ok
}

// RequestFromContext returns the HTTP request being dispatched.
func RequestFromContext(ctx context.Context) (*http.Request, bool) {
	r, ok := ctx.Value(httpRequestKey{}).(*http.Request)
	return r, ok
}

// ServeHTTP implements http.Handler. Output is buffered until the dispatch
// succeeds, so a failing action or template never leaves a half written
// page behind.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, span := h.tracer.Start(r.Context(), "lvc.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		),
	)
	defer span.End()

	logger := h.logger
	if id := RequestIDFromContext(ctx); id != "" {
		logger = logger.With("request_id", id)
	}

	r = r.WithContext(ctx)

	req, err := NewRequest(r, h.maxMemory)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("unable to read request", "uri", r.RequestURI, "error", err)
		h.metrics.failed("bad_request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	ctx = context.WithValue(ctx, responseWriterKey{}, w)
	ctx = context.WithValue(ctx, httpRequestKey{}, r)

	var buf bytes.Buffer
	err = h.front.ProcessRequest(ctx, req, &buf)

	// Metric labels use the registered names so that spellings which fold
	// to the same controller or action share one series.
	controller, action := req.HandledBy()
	span.SetAttributes(
		attribute.String("lvc.controller", req.ControllerName()),
		attribute.String("lvc.action", req.ActionName()),
	)

	if err != nil {
		status := StatusCode(err)
		kind := errorKind(err)

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("lvc.error_kind", kind))

		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "dispatch failed",
			"controller", req.ControllerName(),
			"action", req.ActionName(),
			"kind", kind,
			"status", status,
			"error", err,
		)

		h.metrics.failed(kind)
		h.metrics.observe(controller, action, status, time.Since(start))
		h.errorHandler(w, r, err)
		return
	}

	if req.Redirected() {
		status := req.RedirectStatus()
		if status == 0 {
			status = http.StatusFound
		}

		span.SetAttributes(attribute.String("lvc.redirect", req.RedirectURL()))
		logger.Debug("redirect", "location", req.RedirectURL(), "status", status)

		w.Header().Set("Location", req.RedirectURL())
		w.WriteHeader(status)
		h.metrics.observe(controller, action, status, time.Since(start))
		return
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug("unable to write response", "error", err)
	}

	span.SetStatus(codes.Ok, "")
	logger.Debug("dispatched",
		"controller", req.ControllerName(),
		"action", req.ActionName(),
		"duration", time.Since(start),
	)
	h.metrics.observe(controller, action, http.StatusOK, time.Since(start))
}

// StatusCode maps a dispatch error to an HTTP status: unknown controllers,
// actions and views are 404, everything else is 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, mvc.ErrControllerNotFound),
		errors.Is(err, mvc.ErrActionNotFound),
		errors.Is(err, mvc.ErrViewNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorKind(err error) string {
	var e *mvc.Error
	if errors.As(err, &e) {
		return e.Kind.String()
	}
	return "application"
}

// DefaultErrorHandler replies with the status text only.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := StatusCode(err)
	http.Error(w, http.StatusText(status), status)
}

// DetailedErrorHandler replies with the error message. It exposes internal
// details and is meant for development.
func DetailedErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	http.Error(w, err.Error(), StatusCode(err))
}
