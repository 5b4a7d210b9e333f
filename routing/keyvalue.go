package routing

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/vitalvas/lvc/mvc"
)

// KeyValueRouter routes on query values alone:
//
//	?controller=pages&action=show_page&page_name=about
//
// Action params come from a registered parameter order for the
// controller/action pair, or else from the value under ParamsKey.
type KeyValueRouter struct {
	ControllerKey string
	ActionKey     string
	// ParamsKey, when set, names a query value holding the action params
	// (for example params[]=a&params[]=b). Empty disables it.
	ParamsKey string

	mu     sync.RWMutex
	routes map[string]map[string][]string
	logger *slog.Logger
}

// NewKeyValueRouter creates a router using the "controller" and "action"
// keys.
func NewKeyValueRouter(opts ...Option) *KeyValueRouter {
	o := buildOptions(opts)
	return &KeyValueRouter{
		ControllerKey: "controller",
		ActionKey:     "action",
		routes:        make(map[string]map[string][]string),
		logger:        o.logger,
	}
}

// AddRoute registers the order of the query values bound as action params
// for one controller/action pair. With
//
//	r.AddRoute("pages", "show_page", "page_name")
//
// the request above runs show_page with page_name=about.
func (r *KeyValueRouter) AddRoute(controller, action string, paramNames ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.routes[controller] == nil {
		r.routes[controller] = make(map[string][]string)
	}
	r.routes[controller][action] = paramNames
}

// SetRoutes replaces all parameter orders at once, keyed by controller and
// then action.
func (r *KeyValueRouter) SetRoutes(routes map[string]map[string][]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = make(map[string]map[string][]string, len(routes))
	for c, actions := range routes {
		r.routes[c] = make(map[string][]string, len(actions))
		for a, names := range actions {
			r.routes[c][a] = append([]string(nil), names...)
		}
	}
}

func (r *KeyValueRouter) paramOrder(controller, action string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names, ok := r.routes[controller][action]
	return names, ok
}

// Route implements mvc.Router. Requests without the controller key are not
// handled. A missing action is left empty for the front controller's
// default.
func (r *KeyValueRouter) Route(req *mvc.Request) bool {
	get := req.Input().Get()

	rawController, ok := get[r.ControllerKey]
	if !ok {
		return false
	}

	controller := scalar(rawController)
	action := scalar(get[r.ActionKey])

	req.SetControllerName(controller)
	req.SetActionName(action)

	if names, ok := r.paramOrder(controller, action); ok {
		params := mvc.NewParams()
		for _, name := range names {
			params.Set(name, get[name])
		}
		req.SetActionParams(params)
	} else if r.ParamsKey != "" {
		if raw, ok := get[r.ParamsKey]; ok {
			req.SetActionParams(paramsFromValue(raw))
		}
	}

	r.logger.Debug("routed by query keys",
		"controller", controller,
		"action", action,
		"params", req.ActionParams().Len(),
	)

	return true
}

// scalar returns a query value as a string. Repeated values yield the
// last one.
func scalar(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []string:
		if len(s) == 0 {
			return ""
		}
		return s[len(s)-1]
	case []any:
		if len(s) == 0 {
			return ""
		}
		return scalar(s[len(s)-1])
	default:
		return fmt.Sprint(v)
	}
}

func paramsFromValue(v any) *mvc.Params {
	switch val := v.(type) {
	case map[string]any:
		return mvc.ParamsFromMap(val)
	case []any:
		return mvc.PositionalParams(val...)
	case []string:
		values := make([]any, len(val))
		for i, s := range val {
			values[i] = s
		}
		return mvc.PositionalParams(values...)
	default:
		return mvc.PositionalParams(v)
	}
}
