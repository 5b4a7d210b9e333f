package routing

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/vitalvas/lvc/mvc"
)

// Result is the outcome of matching a path against a route table.
type Result struct {
	Route *Route

	// Controller and Action are empty when the route leaves them unset.
	Controller string
	Action     string
	Params     *mvc.Params

	// Redirect is the expanded target of a redirect route.
	Redirect string
	Status   int
}

// IsRedirect reports whether the matched route is a redirect.
func (r Result) IsRedirect() bool {
	return r.Redirect != ""
}

// RegexRouter routes the rewritten request path (the "url" query value)
// through an ordered table of regular expressions. The first matching
// route decides the controller, action and params, or redirects.
type RegexRouter struct {
	mu     sync.RWMutex
	routes Table
	logger *slog.Logger
}

// NewRegexRouter creates a router over table. It fails when a route does
// not compile.
func NewRegexRouter(table Table, opts ...Option) (*RegexRouter, error) {
	o := buildOptions(opts)

	r := &RegexRouter{logger: o.logger}
	if err := r.SetRoutes(table); err != nil {
		return nil, err
	}
	return r, nil
}

// AddRoute compiles route and appends it to the table.
func (r *RegexRouter) AddRoute(route *Route) error {
	if err := route.Compile(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = append(r.routes, route)
	return nil
}

// SetRoutes compiles and replaces the whole table.
func (r *RegexRouter) SetRoutes(table Table) error {
	if err := table.Compile(); err != nil {
		return err
	}

	routes := make(Table, len(table))
	copy(routes, table)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = routes
	return nil
}

// Routes returns a copy of the route table.
func (r *RegexRouter) Routes() Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(Table, len(r.routes))
	copy(out, r.routes)
	return out
}

// Match finds the first route matching path.
func (r *RegexRouter) Match(path string) (Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, route := range r.routes {
		loc := route.re.FindStringSubmatchIndex(path)
		if loc == nil {
			continue
		}
		return route.result(path, loc), true
	}
	return Result{}, false
}

func (r *Route) result(path string, loc []int) Result {
	res := Result{Route: r}

	if r.Redirect != "" {
		res.Redirect = r.re.ReplaceAllString(path, goReplacement(r.Redirect))
		res.Status = r.RedirectStatus()
		return res
	}

	if !r.Controller.IsZero() {
		res.Controller, _ = r.Controller.resolve(path, loc)
	}
	if !r.Action.IsZero() {
		res.Action, _ = r.Action.resolve(path, loc)
	}

	params := mvc.NewParams()
	for _, p := range r.ActionParams {
		if v, ok := p.Ref.resolve(path, loc); ok {
			params.Set(p.Name, v)
		} else {
			params.Set(p.Name, nil)
		}
	}

	if r.AdditionalParams.IsCapture {
		if extra, ok := submatch(path, loc, r.AdditionalParams.Index); ok && extra != "" {
			pieces := strings.Split(extra, "/")
			values := make([]any, len(pieces))
			for i, piece := range pieces {
				values[i] = piece
			}
			// Positions already taken by action_params keep their value.
			params = params.Union(mvc.PositionalParams(values...))
		}
	}

	res.Params = params
	return res
}

// Route implements mvc.Router. Requests without a "url" query value are
// not handled.
func (r *RegexRouter) Route(req *mvc.Request) bool {
	path, ok := req.Input().URL()
	if !ok {
		return false
	}

	res, ok := r.Match(path)
	if !ok {
		r.logger.Debug("no route matched", "url", path)
		return false
	}

	if res.IsRedirect() {
		r.logger.Debug("route redirects",
			"url", path,
			"pattern", res.Route.Pattern,
			"location", res.Redirect,
			"status", res.Status,
		)
		req.Redirect(res.Redirect, res.Status)
		return true
	}

	r.logger.Debug("route matched",
		"url", path,
		"pattern", res.Route.Pattern,
		"controller", res.Controller,
		"action", res.Action,
	)

	if !res.Route.Controller.IsZero() {
		req.SetControllerName(res.Controller)
	}
	if !res.Route.Action.IsZero() {
		req.SetActionName(res.Action)
	}
	req.SetActionParams(res.Params)

	return true
}
