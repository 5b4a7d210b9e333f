package mvchttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Middleware wraps an http.Handler. It has the same shape as chi and
// gorilla middleware, so both accept it directly.
type Middleware func(http.Handler) http.Handler

type requestIDKey struct{}

// RequestIDFromContext returns the request ID stored in the context by
// RequestIDMiddleware. Returns an empty string if no ID is present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}

	return ""
}

// RequestIDConfig configures the Request ID middleware behaviour.
type RequestIDConfig struct {
	// HeaderName overrides the header used to propagate the request ID.
	// Defaults to "X-Request-ID" when empty.
	HeaderName string

	// GenerateFunc returns a new unique ID for the request. Defaults to
	// GenerateUUIDv4.
	GenerateFunc func(r *http.Request) string

	// TrustIncoming reuses the request ID of the incoming request header
	// instead of generating a new one.
	TrustIncoming bool
}

// RequestIDMiddleware returns a middleware that generates or propagates a
// request ID header. The ID is set on the request, on the response and in
// the request context, where the dispatch logger picks it up.
func RequestIDMiddleware(cfg RequestIDConfig) Middleware {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-Request-ID"
	}

	generate := cfg.GenerateFunc
	if generate == nil {
		generate = GenerateUUIDv4
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cfg.TrustIncoming {
				id = r.Header.Get(headerName)
			}

			if id == "" {
				id = generate(r)
			}

			if id != "" {
				r.Header.Set(headerName, id)
				w.Header().Set(headerName, id)
				r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GenerateUUIDv4 returns a new random UUID string.
func GenerateUUIDv4(_ *http.Request) string {
	return uuid.New().String()
}

// GenerateUUIDv7 returns a new time-ordered UUID string.
func GenerateUUIDv7(_ *http.Request) string {
	return uuid.Must(uuid.NewV7()).String()
}

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// Logger receives an error record for every recovered panic.
	Logger *slog.Logger

	// LogFunc is an optional callback invoked with the request and the
	// recovered value.
	LogFunc func(r *http.Request, err any)
}

// RecoveryMiddleware returns a middleware that recovers from panics in
// controllers and templates. The client gets 500 Internal Server Error.
func RecoveryMiddleware(cfg RecoveryConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if cfg.Logger != nil {
						cfg.Logger.Error("panic recovered",
							"panic", err,
							"method", r.Method,
							"uri", r.RequestURI,
							"request_id", RequestIDFromContext(r.Context()),
						)
					}
					if cfg.LogFunc != nil {
						cfg.LogFunc(r, err)
					}

					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ErrInvalidFrameOption is returned when SecurityHeadersConfig.FrameOption
// is not "DENY", "SAMEORIGIN" or empty.
var ErrInvalidFrameOption = errors.New("security headers: frame option must be DENY, SAMEORIGIN, or empty")

// SecurityHeadersConfig configures the headers set on every rendered page.
type SecurityHeadersConfig struct {
	// DisableContentTypeNosniff drops X-Content-Type-Options: nosniff.
	DisableContentTypeNosniff bool

	// FrameOption is the X-Frame-Options value. Defaults to "DENY".
	FrameOption string

	// ReferrerPolicy defaults to "strict-origin-when-cross-origin".
	ReferrerPolicy string

	// ContentSecurityPolicy is omitted when empty.
	ContentSecurityPolicy string
}

// SecurityHeadersMiddleware returns a middleware setting the configured
// headers before the page is dispatched. Actions can still override them
// through ResponseWriterFromContext.
func SecurityHeadersMiddleware(cfg SecurityHeadersConfig) (Middleware, error) {
	switch cfg.FrameOption {
	case "":
		cfg.FrameOption = "DENY"
	case "DENY", "SAMEORIGIN":
	default:
		return nil, ErrInvalidFrameOption
	}

	if cfg.ReferrerPolicy == "" {
		cfg.ReferrerPolicy = "strict-origin-when-cross-origin"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			if !cfg.DisableContentTypeNosniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			h.Set("X-Frame-Options", cfg.FrameOption)
			h.Set("Referrer-Policy", cfg.ReferrerPolicy)

			if cfg.ContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// Chain applies middlewares to h, the first one outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
