// Package mvc implements a small Model-View-Controller dispatch pipeline:
// a chain of routers decides which controller and action handle a request,
// a front controller fills in defaults and invokes the action, and the
// controller renders a view, optionally wrapped in a layout.
//
// # Dispatch
//
// Build a registry of controllers, a front controller with routers, and
// process one Request per incoming call:
//
//	cfg := mvc.DefaultConfig()
//	cfg.ControllerViewPaths = []string{"views/"}
//	cfg.LayoutViewPaths = []string{"views/layouts/"}
//
//	reg := mvc.NewRegistry(cfg, mvc.NewHTMLTemplates(os.DirFS("."), nil))
//	reg.Register("blog", NewBlogController)
//
//	front := mvc.NewFrontController(reg)
//	front.AddRouter(routing.NewSegmentRouter())
//
//	err := front.ProcessRequest(ctx, mvc.NewRequest(bundle), w)
//
// Routers are tried in the order they were added and the first one that
// succeeds decides the controller, action and action params. When no router
// names a controller, Config.DefaultControllerName and
// Config.DefaultControllerActionName apply and
// Config.DefaultControllerActionParams are merged into the action params
// without overriding keys already present. When only the action is missing,
// Config.DefaultActionName applies.
//
// # Controllers
//
// Controllers embed *PageController and register their actions when they
// are constructed:
//
//	type BlogController struct {
//		*mvc.PageController
//	}
//
//	func NewBlogController() mvc.Controller {
//		c := &BlogController{PageController: mvc.NewPageController()}
//		c.SetLayout("default")
//		c.Handle("show", c.show)
//		return c
//	}
//
//	func (c *BlogController) show(args mvc.Args) error {
//		c.SetVar("id", args.String(0))
//		return nil
//	}
//
// Actions are looked up by ActionHandlerName; a missing action fails with
// an error naming the requested action and the expected handler name.
// Config.SendActionParamsAsArray chooses whether the action receives the
// whole *Params as its only argument or the values spread positionally;
// Args.Params works in both modes.
//
// After an action returns, the view "controller/action" is rendered unless
// the action already loaded a view or called SuppressDefaultView. Optional
// BeforeAction and AfterAction hooks run around the action.
//
// # Views, layouts and elements
//
// Views are located through a TemplateSource by trying each configured
// search root in order. The rendered view is stored in the layout variable
// named by Config.LayoutContentVarName and the layout is rendered around
// it. Templates can set layout variables and render shared elements; a
// missing element is logged and renders as nothing.
//
// # Sub-actions
//
// PageController.RequestAction runs another action, on the same or another
// controller, and returns its output as a string so it can be embedded at
// the call site. Nested output never gets a page layout unless WithLayout
// is given.
//
// # Errors
//
// Dispatch failures are *Error values. Use errors.Is with
// ErrControllerNotFound, ErrActionNotFound, ErrViewNotFound,
// ErrLayoutNotFound or ErrRender to tell them apart. Routing misses are not
// errors.
package mvc
