package mvc

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// FrontController routes requests and dispatches them to controllers.
type FrontController struct {
	registry *Registry
	routers  Chain
	logger   *slog.Logger
}

// NewFrontController creates a front controller resolving controllers from
// registry. Defaults come from the registry's Config.
func NewFrontController(registry *Registry, opts ...Option) *FrontController {
	o := buildOptions(opts)
	return &FrontController{
		registry: registry,
		logger:   o.logger,
	}
}

// AddRouter appends a router to the chain. Routers are tried in the order
// they were added.
func (f *FrontController) AddRouter(r Router) {
	f.routers = append(f.routers, r)
}

// Registry returns the controller registry.
func (f *FrontController) Registry() *Registry {
	return f.registry
}

// ProcessRequest routes req, fills in defaults, and runs the resolved
// action, writing rendered output to w. When a router records a redirect
// no controller runs. Dispatch errors are returned as *Error, with the
// request's additional error info appended to the message when available.
func (f *FrontController) ProcessRequest(ctx context.Context, req *Request, w io.Writer) error {
	err := f.dispatch(ctx, req, w)
	if err == nil {
		return nil
	}

	var e *Error
	if !errors.As(err, &e) {
		return err
	}

	info := req.AdditionalErrorInfo()
	if info == "" {
		return err
	}

	if direct, ok := err.(*Error); ok {
		return direct.withInfo(info)
	}

	// A wrapped *Error keeps the wrapper's message and chain.
	return &Error{Kind: e.Kind, Message: err.Error() + ". " + info, Err: err}
}

func (f *FrontController) dispatch(ctx context.Context, req *Request, w io.Writer) error {
	routedBy := f.routers.route(req)

	if req.Redirected() {
		f.logger.Debug("request redirected by router",
			"router", routedBy,
			"location", req.RedirectURL(),
		)
		return nil
	}

	cfg := f.registry.Config()

	controllerName := req.ControllerName()
	actionName := req.ActionName()

	if controllerName == "" {
		controllerName = cfg.DefaultControllerName
		actionName = cfg.DefaultControllerActionName
		req.SetActionParams(req.ActionParams().Union(cfg.DefaultControllerActionParams))
	} else if actionName == "" {
		actionName = cfg.DefaultActionName
	}

	req.SetControllerName(controllerName)
	req.SetActionName(actionName)

	f.logger.Debug("dispatching request",
		"router", routedBy,
		"controller", controllerName,
		"action", actionName,
		"params", req.ActionParams().Len(),
	)

	controller, ok := f.registry.Resolve(controllerName)
	if !ok {
		return controllerNotFound(controllerName)
	}

	page := controller.Page()
	req.setHandledBy(page.RegisteredName(), page.RegisteredAction(actionName))

	page.SetControllerParams(req.ControllerParams())
	page.bind(ctx, w, req)

	return page.RunAction(actionName, req.ActionParams())
}
