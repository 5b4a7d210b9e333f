package routing

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/lvc/internal/logging"
	"github.com/vitalvas/lvc/mvc"
)

func urlRequest(url string) *mvc.Request {
	return mvc.NewRequest(mvc.Bundle{
		mvc.BundleGet: map[string]any{mvc.BundleURL: url},
	})
}

func TestRegexRouterDefaultTable(t *testing.T) {
	router, err := NewRegexRouter(DefaultTable())
	require.NoError(t, err)

	tests := []struct {
		name       string
		url        string
		controller string
		action     string
		keys       []string
		values     []any
	}{
		{
			name:       "home",
			url:        "/",
			controller: "page",
			action:     "view",
			keys:       []string{"page_name"},
			values:     []any{"home"},
		},
		{
			name:       "page by name",
			url:        "/page/about",
			controller: "page",
			action:     "view",
			keys:       []string{"page_name"},
			values:     []any{"about"},
		},
		{
			name:       "controller action params",
			url:        "/blog/show/42/comments",
			controller: "blog",
			action:     "show",
			keys:       []string{"0", "1"},
			values:     []any{"42", "comments"},
		},
		{
			name:       "empty pieces keep their position",
			url:        "/blog/show/42//comments/",
			controller: "blog",
			action:     "show",
			keys:       []string{"0", "1", "2", "3"},
			values:     []any{"42", "", "comments", ""},
		},
		{
			name:       "leading empty piece",
			url:        "/blog/archive//2024",
			controller: "blog",
			action:     "archive",
			keys:       []string{"0", "1"},
			values:     []any{"", "2024"},
		},
		{
			name:       "controller action",
			url:        "/blog/archive",
			controller: "blog",
			action:     "archive",
		},
		{
			name:       "controller only",
			url:        "/blog",
			controller: "blog",
			action:     "index",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := urlRequest(tt.url)
			require.True(t, router.Route(req))

			assert.Equal(t, tt.controller, req.ControllerName())
			assert.Equal(t, tt.action, req.ActionName())
			assert.Equal(t, tt.keys, req.ActionParams().Keys())
			assert.Equal(t, tt.values, req.ActionParams().Values())
		})
	}

	t.Run("no url", func(t *testing.T) {
		req := mvc.NewRequest(nil)
		assert.False(t, router.Route(req))
		assert.Empty(t, req.ControllerName())
	})

	t.Run("no match", func(t *testing.T) {
		req := urlRequest("nothing-leading")
		assert.False(t, router.Route(req))
		assert.Empty(t, req.ControllerName())
	})
}

func TestRegexRouterFirstMatchWins(t *testing.T) {
	router, err := NewRegexRouter(Table{
		{Pattern: `^/blog/special$`, Controller: Literal("special")},
		{Pattern: `^/blog/(.*)$`, Controller: Literal("blog"), Action: Literal("show")},
		{Pattern: `^/blog/special$`, Controller: Literal("never")},
	})
	require.NoError(t, err)

	res, ok := router.Match("/blog/special")
	require.True(t, ok)
	assert.Equal(t, "special", res.Controller)
	assert.Same(t, router.Routes()[0], res.Route)

	res, ok = router.Match("/blog/other")
	require.True(t, ok)
	assert.Equal(t, "blog", res.Controller)
}

func TestRegexRouterCaptures(t *testing.T) {
	t.Run("non participating group is nil", func(t *testing.T) {
		router, err := NewRegexRouter(Table{{
			Pattern:    `^/tag/(\w+)(?:/(\d+))?$`,
			Controller: Literal("tag"),
			Action:     Literal("show"),
			ActionParams: Params{
				{Name: "tag", Ref: Capture(1)},
				{Name: "page", Ref: Capture(2)},
			},
		}})
		require.NoError(t, err)

		req := urlRequest("/tag/go")
		require.True(t, router.Route(req))

		params := req.ActionParams()
		assert.Equal(t, "go", params.Value("tag"))
		assert.True(t, params.Has("page"))
		assert.Nil(t, params.Value("page"))
	})

	t.Run("positional params then additional", func(t *testing.T) {
		router, err := NewRegexRouter(Table{{
			Pattern:          `|^wee/([^/]+)/?(.*)$|`,
			Controller:       Literal("hello_world"),
			Action:           Literal("index"),
			ActionParams:     Params{{Name: "0", Ref: Capture(1)}, {Name: "1", Ref: Literal("constant_value")}},
			AdditionalParams: Capture(2),
		}})
		require.NoError(t, err)

		req := urlRequest("wee/anything/x/y/z")
		require.True(t, router.Route(req))
		assert.Equal(t, []string{"0", "1", "2"}, req.ActionParams().Keys())
		assert.Equal(t, []any{"anything", "constant_value", "z"}, req.ActionParams().Values())
	})

	t.Run("named params then additional", func(t *testing.T) {
		router, err := NewRegexRouter(Table{{
			Pattern:          `^/archive/(\d{4})/?(.*)$`,
			Controller:       Literal("blog"),
			Action:           Literal("archive"),
			ActionParams:     Params{{Name: "year", Ref: Capture(1)}},
			AdditionalParams: Capture(2),
		}})
		require.NoError(t, err)

		req := urlRequest("/archive/2024/05/tags")
		require.True(t, router.Route(req))
		assert.Equal(t, []string{"year", "0", "1"}, req.ActionParams().Keys())
		assert.Equal(t, []any{"2024", "05", "tags"}, req.ActionParams().Values())

		req = urlRequest("/archive/2024")
		require.True(t, router.Route(req))
		assert.Equal(t, []string{"year"}, req.ActionParams().Keys())
	})

	t.Run("unset controller leaves request alone", func(t *testing.T) {
		router, err := NewRegexRouter(Table{{
			Pattern:      `^/about$`,
			ActionParams: Params{{Name: "page_name", Ref: Literal("about")}},
		}})
		require.NoError(t, err)

		req := urlRequest("/about")
		require.True(t, router.Route(req))
		assert.Empty(t, req.ControllerName())
		assert.Empty(t, req.ActionName())
		assert.Equal(t, "about", req.ActionParams().String("page_name"))
	})

	t.Run("case insensitive flag", func(t *testing.T) {
		router, err := NewRegexRouter(Table{{Pattern: `#^/ABOUT$#i`, Controller: Literal("page")}})
		require.NoError(t, err)

		_, ok := router.Match("/about")
		assert.True(t, ok)
	})
}

func TestRegexRouterRedirect(t *testing.T) {
	router, err := NewRegexRouter(Table{
		{Pattern: `#^/old/(\d+)$#`, Redirect: `/posts/\1`},
		{Pattern: `^/moved$`, Redirect: "/new", Status: http.StatusMovedPermanently},
	})
	require.NoError(t, err)

	t.Run("default status", func(t *testing.T) {
		req := urlRequest("/old/42")
		require.True(t, router.Route(req))

		assert.True(t, req.Redirected())
		assert.Equal(t, "/posts/42", req.RedirectURL())
		assert.Equal(t, http.StatusFound, req.RedirectStatus())
		assert.Empty(t, req.ControllerName())
	})

	t.Run("explicit status", func(t *testing.T) {
		res, ok := router.Match("/moved")
		require.True(t, ok)
		assert.True(t, res.IsRedirect())
		assert.Equal(t, "/new", res.Redirect)
		assert.Equal(t, http.StatusMovedPermanently, res.Status)
	})
}

func TestRegexRouterTableEditing(t *testing.T) {
	router, err := NewRegexRouter(nil)
	require.NoError(t, err)
	assert.Empty(t, router.Routes())

	require.NoError(t, router.AddRoute(&Route{Pattern: `^/a$`, Controller: Literal("a")}))
	assert.Error(t, router.AddRoute(&Route{Pattern: `^/(b$`}))
	assert.Len(t, router.Routes(), 1)

	require.NoError(t, router.SetRoutes(Table{{Pattern: `^/c$`, Controller: Literal("c")}}))
	res, ok := router.Match("/c")
	require.True(t, ok)
	assert.Equal(t, "c", res.Controller)

	_, ok = router.Match("/a")
	assert.False(t, ok)

	_, err = NewRegexRouter(Table{{Pattern: ""}})
	assert.Error(t, err)
}

func TestRegexRouterLogs(t *testing.T) {
	var buf bytes.Buffer
	router, err := NewRegexRouter(DefaultTable(), WithLogger(logging.New(slog.LevelDebug, "text", &buf)))
	require.NoError(t, err)

	require.True(t, router.Route(urlRequest("/blog")))
	assert.Contains(t, buf.String(), "route matched")
	assert.Contains(t, buf.String(), "controller=blog")
}
