package mvchttp

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/lvc/internal/logging"
)

var (
	uuidV4Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	uuidV7Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
)

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		config         RequestIDConfig
		incomingHeader string
		wantHeader     string
		wantGenerated  bool
	}{
		{
			name:          "generates UUID v4 by default",
			config:        RequestIDConfig{},
			wantGenerated: true,
		},
		{
			name:           "does not trust incoming by default",
			config:         RequestIDConfig{},
			incomingHeader: "existing-id",
			wantGenerated:  true,
		},
		{
			name:           "trusts incoming when configured",
			config:         RequestIDConfig{TrustIncoming: true},
			incomingHeader: "existing-id",
			wantHeader:     "existing-id",
		},
		{
			name:       "custom header name",
			config:     RequestIDConfig{HeaderName: "X-Trace-ID", GenerateFunc: func(_ *http.Request) string { return "trace-123" }},
			wantHeader: "trace-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedHeader, capturedCtxID string

			headerName := tt.config.HeaderName
			if headerName == "" {
				headerName = "X-Request-ID"
			}

			h := RequestIDMiddleware(tt.config)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				capturedHeader = r.Header.Get(headerName)
				capturedCtxID = RequestIDFromContext(r.Context())
			}))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.incomingHeader != "" {
				req.Header.Set(headerName, tt.incomingHeader)
			}
			h.ServeHTTP(w, req)

			responseHeader := w.Header().Get(headerName)

			if tt.wantGenerated {
				assert.Regexp(t, uuidV4Regex, responseHeader)
			} else {
				assert.Equal(t, tt.wantHeader, responseHeader)
			}

			assert.Equal(t, capturedHeader, responseHeader)
			assert.Equal(t, capturedCtxID, responseHeader)
		})
	}

	t.Run("empty id sets nothing", func(t *testing.T) {
		var capturedCtxID string

		h := RequestIDMiddleware(RequestIDConfig{
			GenerateFunc: func(_ *http.Request) string { return "" },
		})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			capturedCtxID = RequestIDFromContext(r.Context())
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Empty(t, capturedCtxID)
		assert.Empty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("bare context", func(t *testing.T) {
		assert.Empty(t, RequestIDFromContext(context.Background()))
	})
}

func TestGenerateUUID(t *testing.T) {
	assert.Regexp(t, uuidV4Regex, GenerateUUIDv4(nil))
	assert.Regexp(t, uuidV7Regex, GenerateUUIDv7(nil))
	assert.NotEqual(t, GenerateUUIDv7(nil), GenerateUUIDv7(nil))
}

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  int
		wantPanic bool
	}{
		{
			name: "no panic passes through",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			wantCode: http.StatusNoContent,
		},
		{
			name: "panic returns 500",
			handler: func(_ http.ResponseWriter, _ *http.Request) {
				panic("something went wrong")
			},
			wantCode:  http.StatusInternalServerError,
			wantPanic: true,
		},
		{
			name: "panic with integer value",
			handler: func(_ http.ResponseWriter, _ *http.Request) {
				panic(42)
			},
			wantCode:  http.StatusInternalServerError,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			var logged any

			h := RecoveryMiddleware(RecoveryConfig{
				Logger:  logging.New(slog.LevelInfo, "text", &logs),
				LogFunc: func(_ *http.Request, err any) { logged = err },
			})(tt.handler)

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, tt.wantCode, w.Code)

			if tt.wantPanic {
				body, err := io.ReadAll(w.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), http.StatusText(http.StatusInternalServerError))
				assert.NotNil(t, logged)
				assert.Contains(t, logs.String(), "panic recovered")
			} else {
				assert.Nil(t, logged)
				assert.Empty(t, logs.String())
			}
		})
	}
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), mw("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		config  SecurityHeadersConfig
		want    map[string]string
		wantErr error
	}{
		{
			name:   "defaults",
			config: SecurityHeadersConfig{},
			want: map[string]string{
				"X-Content-Type-Options":  "nosniff",
				"X-Frame-Options":         "DENY",
				"Referrer-Policy":         "strict-origin-when-cross-origin",
				"Content-Security-Policy": "",
			},
		},
		{
			name: "custom values",
			config: SecurityHeadersConfig{
				DisableContentTypeNosniff: true,
				FrameOption:               "SAMEORIGIN",
				ReferrerPolicy:            "no-referrer",
				ContentSecurityPolicy:     "default-src 'self'",
			},
			want: map[string]string{
				"X-Content-Type-Options":  "",
				"X-Frame-Options":         "SAMEORIGIN",
				"Referrer-Policy":         "no-referrer",
				"Content-Security-Policy": "default-src 'self'",
			},
		},
		{
			name:    "invalid frame option",
			config:  SecurityHeadersConfig{FrameOption: "ALLOW"},
			wantErr: ErrInvalidFrameOption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := SecurityHeadersMiddleware(tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			w := httptest.NewRecorder()
			mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
				ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			for header, value := range tt.want {
				assert.Equal(t, value, w.Header().Get(header), header)
			}
		})
	}
}

func BenchmarkRecoveryMiddleware(b *testing.B) {
	h := RecoveryMiddleware(RecoveryConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	b.ResetTimer()
	for b.Loop() {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
