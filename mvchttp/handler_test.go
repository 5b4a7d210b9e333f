package mvchttp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vitalvas/lvc/internal/logging"
	"github.com/vitalvas/lvc/mvc"
	"github.com/vitalvas/lvc/routing"
)

func textView(format string, names ...string) mvc.Template {
	return mvc.TemplateFunc(func(w io.Writer, v *mvc.View) error {
		args := make([]any, len(names))
		for i, n := range names {
			args[i] = v.Var(n)
		}
		_, err := fmt.Fprintf(w, format, args...)
		return err
	})
}

func newTestFront(t *testing.T, routers ...mvc.Router) *mvc.FrontController {
	t.Helper()

	cfg := mvc.DefaultConfig()
	cfg.ControllerViewPaths = []string{"views/"}

	templates := mvc.TemplateMap{
		"views/page/view.tmpl":  textView("page %v", "page_name"),
		"views/blog/show.tmpl":  textView("post %v", "id"),
		"views/blog/form.tmpl":  textView("hello %v", "name"),
		"views/blog/fail.tmpl":  mvc.TemplateFunc(func(io.Writer, *mvc.View) error { return errors.New("broken") }),
		"views/blog/index.tmpl": textView("blog index"),
	}

	reg := mvc.NewRegistry(cfg, templates)

	reg.Register("page", func() mvc.Controller {
		c := mvc.NewPageController()
		c.Handle("view", func(args mvc.Args) error {
			c.SetVar("page_name", args.String(0))
			return nil
		})
		return c
	})

	reg.Register("blog", func() mvc.Controller {
		c := mvc.NewPageController()
		c.Handle("index", func(mvc.Args) error { return nil })
		c.Handle("show", func(args mvc.Args) error {
			c.SetVar("id", args.String(0))
			if w, ok := ResponseWriterFromContext(c.Context()); ok {
				w.Header().Set("X-Post", args.String(0))
			}
			return nil
		})
		c.Handle("form", func(mvc.Args) error {
			user, _ := c.PostData()["user"].(map[string]any)
			c.SetVar("name", user["name"])
			return nil
		})
		c.Handle("fail", func(mvc.Args) error { return nil })
		c.Handle("explode", func(mvc.Args) error { return errors.New("database down") })
		c.Handle("panic", func(mvc.Args) error { panic("boom") })
		c.Handle("logout", func(mvc.Args) error {
			c.Redirect("/login")
			return nil
		})
		return c
	})

	front := mvc.NewFrontController(reg)
	for _, r := range routers {
		front.AddRouter(r)
	}
	front.AddRouter(routing.NewSegmentRouter())
	return front
}

func serve(h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, body))
	return w
}

func TestHandler(t *testing.T) {
	h := NewHandler(newTestFront(t))

	tests := []struct {
		name     string
		target   string
		wantCode int
		wantBody string
	}{
		{name: "home page", target: "/", wantCode: http.StatusOK, wantBody: "page home"},
		{name: "action with params", target: "/blog/show/42", wantCode: http.StatusOK, wantBody: "post 42"},
		{name: "default action", target: "/blog", wantCode: http.StatusOK, wantBody: "blog index"},
		{name: "url query value wins", target: "/ignored?url=blog/show/7", wantCode: http.StatusOK, wantBody: "post 7"},
		{name: "unknown controller", target: "/nope", wantCode: http.StatusNotFound, wantBody: "Not Found\n"},
		{name: "unknown action", target: "/blog/nope", wantCode: http.StatusNotFound, wantBody: "Not Found\n"},
		{name: "render error", target: "/blog/fail", wantCode: http.StatusInternalServerError, wantBody: "Internal Server Error\n"},
		{name: "application error", target: "/blog/explode", wantCode: http.StatusInternalServerError, wantBody: "Internal Server Error\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, http.MethodGet, tt.target, nil)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}

	t.Run("content type and headers", func(t *testing.T) {
		w := serve(h, http.MethodGet, "/blog/show/9", nil)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "9", w.Header().Get("X-Post"))
	})

	t.Run("form data", func(t *testing.T) {
		form := url.Values{"data[user][name]": {"ann"}}
		req := httptest.NewRequest(http.MethodPost, "/blog/form", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hello ann", w.Body.String())
	})

	t.Run("malformed multipart body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/blog/form", strings.NewReader("garbage"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandlerRedirect(t *testing.T) {
	t.Run("router redirect", func(t *testing.T) {
		router, err := routing.NewRegexRouter(routing.Table{
			{Pattern: `^/old/(\d+)$`, Redirect: "/blog/show/$1"},
			{Pattern: `^/moved$`, Redirect: "/", Status: http.StatusMovedPermanently},
		})
		require.NoError(t, err)

		h := NewHandler(newTestFront(t, router))

		w := serve(h, http.MethodGet, "/old/5", nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/blog/show/5", w.Header().Get("Location"))
		assert.Empty(t, w.Body.String())

		w = serve(h, http.MethodGet, "/moved", nil)
		assert.Equal(t, http.StatusMovedPermanently, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("controller redirect discards the view", func(t *testing.T) {
		h := NewHandler(newTestFront(t))

		w := serve(h, http.MethodGet, "/blog/logout", nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		assert.Empty(t, w.Body.String())
	})
}

func TestHandlerErrors(t *testing.T) {
	t.Run("detailed handler includes request url", func(t *testing.T) {
		h := NewHandler(newTestFront(t), WithErrorHandler(DetailedErrorHandler))

		w := serve(h, http.MethodGet, "/nope?x=1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Unable to load controller \"nope\". Request URL was /nope?x=1\n", w.Body.String())
	})

	t.Run("logs carry the request id", func(t *testing.T) {
		var logs bytes.Buffer
		logger := logging.New(slog.LevelDebug, "json", &logs)

		h := Chain(NewHandler(newTestFront(t), WithLogger(logger)),
			RequestIDMiddleware(RequestIDConfig{GenerateFunc: func(*http.Request) string { return "req-1" }}),
		)

		w := serve(h, http.MethodGet, "/blog/explode", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

		out := logs.String()
		assert.Contains(t, out, `"msg":"dispatch failed"`)
		assert.Contains(t, out, `"request_id":"req-1"`)
		assert.Contains(t, out, `"err":"database down"`)
		assert.Contains(t, out, `"kind":"application"`)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		var recovered any
		h := Chain(NewHandler(newTestFront(t)),
			RecoveryMiddleware(RecoveryConfig{LogFunc: func(_ *http.Request, err any) { recovered = err }}),
		)

		w := serve(h, http.MethodGet, "/blog/panic", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "boom", recovered)
	})
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: mvc.ErrControllerNotFound, want: http.StatusNotFound},
		{err: mvc.ErrActionNotFound, want: http.StatusNotFound},
		{err: mvc.ErrViewNotFound, want: http.StatusNotFound},
		{err: mvc.ErrLayoutNotFound, want: http.StatusInternalServerError},
		{err: mvc.ErrRender, want: http.StatusInternalServerError},
		{err: errors.New("other"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestHandlerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(MetricsConfig{Registry: reg})
	h := NewHandler(newTestFront(t), WithMetrics(m))

	serve(h, http.MethodGet, "/blog/show/1", nil)
	serve(h, http.MethodGet, "/blog/show/2", nil)
	serve(h, http.MethodGet, "/nope", nil)
	serve(h, http.MethodGet, "/blog/explode", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("blog", "show", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("", "", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("blog", "explode", "5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("controller_not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("application")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.duration))

	count, err := testutil.GatherAndCount(reg, "lvc_dispatch_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestHandlerMetricsFoldedNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(MetricsConfig{Registry: reg})
	h := NewHandler(newTestFront(t), WithMetrics(m))

	for _, target := range []string{"/blog/logout", "/blog_/logout", "/blog__/logout_", "/Blog/logout__"} {
		w := serve(h, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusFound, w.Code, target)
	}

	assert.Equal(t, 4.0, testutil.ToFloat64(m.requests.WithLabelValues("blog", "logout", "3xx")))

	count, err := testutil.GatherAndCount(reg, "lvc_dispatch_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The default view follows the requested spelling and is missing, but
	// the labels still use the registered names.
	w := serve(h, http.MethodGet, "/page_/view__", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("page", "view", "4xx")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe("a", "b", http.StatusOK, 0)
		m.failed("x")
	})
}

func TestHandlerTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	h := NewHandler(newTestFront(t), WithTracer(tp.Tracer("test")))

	serve(h, http.MethodGet, "/blog/show/3", nil)
	serve(h, http.MethodGet, "/blog/nope", nil)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	attrs := func(s sdktrace.ReadOnlySpan) map[attribute.Key]string {
		out := make(map[attribute.Key]string)
		for _, kv := range s.Attributes() {
			out[kv.Key] = kv.Value.Emit()
		}
		return out
	}

	ok := spans[0]
	assert.Equal(t, "lvc.dispatch", ok.Name())
	assert.Equal(t, codes.Ok, ok.Status().Code)
	assert.Equal(t, "blog", attrs(ok)["lvc.controller"])
	assert.Equal(t, "show", attrs(ok)["lvc.action"])
	assert.Equal(t, "/blog/show/3", attrs(ok)["url.path"])

	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "action_not_found", attrs(failed)["lvc.error_kind"])
}
