package mvc

import (
	"bytes"
	"context"
	"html/template"
	"io"
	"log/slog"

	"github.com/vitalvas/lvc/internal/logging"
)

// Controller is implemented by application controllers, usually by
// embedding *PageController:
//
//	type BlogController struct {
//		*mvc.PageController
//	}
//
//	func NewBlogController() mvc.Controller {
//		c := &BlogController{PageController: mvc.NewPageController()}
//		c.Handle("show", c.show)
//		return c
//	}
type Controller interface {
	Page() *PageController
}

// BeforeActioner is implemented by controllers that need a hook before
// every action.
type BeforeActioner interface {
	BeforeAction() error
}

// AfterActioner is implemented by controllers that need a hook after every
// action and its view.
type AfterActioner interface {
	AfterAction() error
}

// ActionFunc implements one controller action.
type ActionFunc func(args Args) error

// RenderState tells whether an action still needs its default view.
type RenderState int

const (
	// NeedsDefaultRender means nothing was rendered and rendering was not
	// suppressed; the controller/action view will be loaded.
	NeedsDefaultRender RenderState = iota
	// RenderedExplicitly means the action already loaded a view.
	RenderedExplicitly
	// RenderSuppressed means the action turned the default view off.
	RenderSuppressed
)

// PageController is the base of every controller: it owns the action
// table, the view and layout variables and the render state of one
// dispatch. Instances are single use: one per request or sub-request.
type PageController struct {
	name      string
	canonical string
	self      Controller
	cfg       *Config
	templates TemplateSource
	registry  *Registry
	logger    *slog.Logger

	ctx context.Context
	out io.Writer
	req *Request

	params     Bundle
	actionName string
	actions    map[string]ActionFunc
	actionKeys map[string]string

	viewVars   map[string]any
	layoutVars map[string]any
	layout     string

	useLayoutOverride bool
	layoutOverride    string

	hasLoadedView   bool
	loadDefaultView bool
}

// NewPageController returns a controller base with no actions. It becomes
// usable for dispatch once a Registry resolves the controller embedding it.
func NewPageController() *PageController {
	cfg := DefaultConfig()
	return &PageController{
		cfg:             &cfg,
		templates:       TemplateMap{},
		logger:          logging.NewNop(),
		ctx:             context.Background(),
		out:             io.Discard,
		req:             NewRequest(nil),
		actions:         make(map[string]ActionFunc),
		actionKeys:      make(map[string]string),
		viewVars:        make(map[string]any),
		layoutVars:      make(map[string]any),
		loadDefaultView: true,
	}
}

// Page implements Controller.
func (c *PageController) Page() *PageController {
	return c
}

// setup attaches the controller to a registry under the requested name.
func (c *PageController) setup(name, registered string, self Controller, r *Registry) {
	c.name = name
	c.canonical = registered
	c.self = self
	c.cfg = &r.cfg
	c.templates = r.templates
	c.registry = r
	c.logger = r.logger.With("controller", name)
}

// bind attaches the per-dispatch context, output sink and request.
func (c *PageController) bind(ctx context.Context, out io.Writer, req *Request) {
	if ctx != nil {
		c.ctx = ctx
	}
	if out != nil {
		c.out = out
	}
	if req != nil {
		c.req = req
	}
}

// Handle registers fn as the handler of an action. The handler is stored
// under ActionHandlerName(action), so "show_all" and "showAll" share one
// handler.
func (c *PageController) Handle(action string, fn ActionFunc) {
	key := ActionHandlerName(action)
	c.actions[key] = fn
	c.actionKeys[key] = action
}

// RegisteredAction returns the name the handler of action was registered
// under, or "" when there is none.
func (c *PageController) RegisteredAction(action string) string {
	return c.actionKeys[ActionHandlerName(action)]
}

// HasAction reports whether a handler exists for the action.
func (c *PageController) HasAction(action string) bool {
	_, ok := c.actions[ActionHandlerName(action)]
	return ok
}

// ControllerName returns the name the controller was resolved with.
func (c *PageController) ControllerName() string {
	return c.name
}

// RegisteredName returns the name the controller was registered under,
// which differs from ControllerName when the request spelled it another way
// ("blogPost" for "blog_post").
func (c *PageController) RegisteredName() string {
	return c.canonical
}

// ActionName returns the action currently or last run.
func (c *PageController) ActionName() string {
	return c.actionName
}

// Context returns the context of the current dispatch.
func (c *PageController) Context() context.Context {
	return c.ctx
}

// Logger returns the controller's logger.
func (c *PageController) Logger() *slog.Logger {
	return c.logger
}

// Output returns the sink actions and views write to.
func (c *PageController) Output() io.Writer {
	return c.out
}

// SetOutput replaces the output sink.
func (c *PageController) SetOutput(w io.Writer) {
	c.out = w
}

// SetControllerParams sets the request bundle the controller works with.
func (c *PageController) SetControllerParams(b Bundle) {
	c.params = b
}

// ControllerParams returns the full request bundle.
func (c *PageController) ControllerParams() Bundle {
	return c.params
}

// Get returns the query values of the request.
func (c *PageController) Get() map[string]any {
	return c.params.Get()
}

// Post returns the form values and uploaded files of the request.
func (c *PageController) Post() map[string]any {
	return c.params.Post()
}

// PostData returns the nested form data submitted under "data".
func (c *PageController) PostData() map[string]any {
	return c.params.PostData()
}

// SetVar sets a view variable.
func (c *PageController) SetVar(name string, value any) {
	c.viewVars[name] = value
}

// SetVars merges vars into the view variables; keys in vars win.
func (c *PageController) SetVars(vars map[string]any) {
	for k, v := range vars {
		c.viewVars[k] = v
	}
}

// Var returns a view variable or nil.
func (c *PageController) Var(name string) any {
	return c.viewVars[name]
}

// SetLayoutVar sets a layout variable.
func (c *PageController) SetLayoutVar(name string, value any) {
	c.layoutVars[name] = value
}

// LayoutVar returns a layout variable or nil.
func (c *PageController) LayoutVar(name string) any {
	return c.layoutVars[name]
}

// SetLayout selects the layout wrapping the controller's views. An empty
// name renders views bare.
func (c *PageController) SetLayout(name string) {
	c.layout = name
}

// Layout returns the selected layout.
func (c *PageController) Layout() string {
	return c.layout
}

// SetLayoutOverride forces the layout used by the next view load,
// regardless of what the action selects. Sub-action rendering uses it to
// keep nested output free of page layouts.
func (c *PageController) SetLayoutOverride(name string) {
	c.useLayoutOverride = true
	c.layoutOverride = name
}

// SuppressDefaultView stops the controller/action view from being loaded
// after the current action.
func (c *PageController) SuppressDefaultView() {
	c.loadDefaultView = false
}

// RenderState reports whether the current action still needs its default
// view.
func (c *PageController) RenderState() RenderState {
	switch {
	case c.hasLoadedView:
		return RenderedExplicitly
	case !c.loadDefaultView:
		return RenderSuppressed
	default:
		return NeedsDefaultRender
	}
}

// Redirect records a redirect on the request being dispatched and
// suppresses the default view. The platform adapter sends the redirect.
func (c *PageController) Redirect(url string) {
	c.req.Redirect(url, 0)
	c.SuppressDefaultView()
}

// RunAction runs the named action with params, then renders the default
// view "controller/action" when the action neither loaded a view nor
// suppressed it.
func (c *PageController) RunAction(action string, params *Params) error {
	c.actionName = action

	handler := ActionHandlerName(action)
	fn, ok := c.actions[handler]
	if !ok {
		return newError(KindActionNotFound, "No action `%s`. Write the `%s` method", action, handler)
	}

	if h, ok := c.self.(BeforeActioner); ok {
		if err := h.BeforeAction(); err != nil {
			return err
		}
	}

	params = params.Clone()

	var args Args
	if c.cfg.SendActionParamsAsArray {
		args = Args{params}
	} else {
		args = Args(params.Values())
	}

	if err := fn(args); err != nil {
		return err
	}

	if c.RenderState() == NeedsDefaultRender {
		if err := c.LoadView(c.name + "/" + action); err != nil {
			return err
		}
	}

	if h, ok := c.self.(AfterActioner); ok {
		return h.AfterAction()
	}

	return nil
}

// ActionOutput runs the action and returns what it rendered instead of
// writing it to the output sink.
func (c *PageController) ActionOutput(action string, params *Params) (string, error) {
	var buf bytes.Buffer

	prev := c.out
	c.out = &buf
	defer func() { c.out = prev }()

	if err := c.RunAction(action, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LoadView renders a controller view and writes it to the output sink,
// wrapped in the layout when one is selected. A controller renders at most
// one view per dispatch; loading a second one is a caller error and is not
// guarded against.
func (c *PageController) LoadView(name string) error {
	tmpl, ok := c.templates.Lookup(name, c.cfg.ControllerViewPaths, c.cfg.ControllerViewSuffix)
	if !ok {
		return newError(KindViewNotFound, "Unable to load controller view %q for controller %q", name, c.name)
	}

	content, err := newView(name, tmpl, c.viewVars, c).String()
	if err != nil {
		return err
	}

	if c.useLayoutOverride {
		c.layout = c.layoutOverride
	}

	if c.layout != "" {
		// The content was produced by our own templates and is already escaped.
		c.layoutVars[c.cfg.LayoutContentVarName] = template.HTML(content) //nolint:gosec

		layout, ok := c.templates.Lookup(c.layout, c.cfg.LayoutViewPaths, c.cfg.LayoutViewSuffix)
		if !ok {
			return newError(KindLayoutNotFound, "Unable to load layout view %q for controller %q", c.layout, c.name)
		}

		if err := newView(c.layout, layout, c.layoutVars, c).Output(c.out); err != nil {
			return err
		}
	} else if _, err := io.WriteString(c.out, content); err != nil {
		return err
	}

	c.hasLoadedView = true
	return nil
}

// SubRequestOption customizes RequestAction.
type SubRequestOption func(*subRequest)

type subRequest struct {
	controller string
	params     Bundle
	layout     string
}

// WithController targets another controller instead of the caller.
func WithController(name string) SubRequestOption {
	return func(s *subRequest) {
		s.controller = name
	}
}

// WithControllerParams hands the target a different request bundle.
func WithControllerParams(b Bundle) SubRequestOption {
	return func(s *subRequest) {
		s.params = b
	}
}

// WithLayout wraps the nested output in the given layout.
func WithLayout(name string) SubRequestOption {
	return func(s *subRequest) {
		s.layout = name
	}
}

// RequestAction runs an action on a fresh controller instance and returns
// its rendered output for inline use. By default the target is the caller's
// own controller with the caller's params, and no layout is applied even if
// the target selects one.
func (c *PageController) RequestAction(action string, params *Params, opts ...SubRequestOption) (string, error) {
	sr := subRequest{controller: c.name, params: c.params}
	for _, opt := range opts {
		opt(&sr)
	}
	if sr.controller == "" {
		sr.controller = c.name
	}

	if c.registry == nil {
		return "", controllerNotFound(sr.controller)
	}

	target, ok := c.registry.Resolve(sr.controller)
	if !ok {
		return "", controllerNotFound(sr.controller)
	}

	page := target.Page()
	page.SetControllerParams(sr.params)
	page.SetLayoutOverride(sr.layout)
	page.bind(c.ctx, nil, c.req)

	return page.ActionOutput(action, params)
}
