package mvc

// Request carries the routing state of one dispatch. Routers fill in the
// controller name, action name and action params; the front controller
// fills in defaults for whatever is still empty.
type Request struct {
	// ErrorInfo, when set, supplies extra context appended to dispatch
	// errors (for example the URL that failed to resolve).
	ErrorInfo func() string

	controllerName   string
	actionName       string
	input            Bundle
	controllerParams Bundle
	actionParams     *Params

	redirectURL    string
	redirectStatus int

	handledController string
	handledAction     string
}

// NewRequest creates a request whose router input and controller params are
// both input.
func NewRequest(input Bundle) *Request {
	if input == nil {
		input = Bundle{}
	}
	return &Request{
		input:            input,
		controllerParams: input,
		actionParams:     NewParams(),
	}
}

// Input returns the bundle routers inspect.
func (r *Request) Input() Bundle {
	return r.input
}

// ControllerName returns the resolved controller name, "" until routed.
func (r *Request) ControllerName() string {
	return r.controllerName
}

// SetControllerName sets the controller name.
func (r *Request) SetControllerName(name string) {
	r.controllerName = name
}

// ActionName returns the resolved action name, "" until routed.
func (r *Request) ActionName() string {
	return r.actionName
}

// SetActionName sets the action name.
func (r *Request) SetActionName(name string) {
	r.actionName = name
}

// ControllerParams returns the bundle handed to the controller.
func (r *Request) ControllerParams() Bundle {
	return r.controllerParams
}

// SetControllerParams replaces the bundle handed to the controller.
func (r *Request) SetControllerParams(b Bundle) {
	r.controllerParams = b
}

// ActionParams returns the params bound to the action.
func (r *Request) ActionParams() *Params {
	return r.actionParams
}

// SetActionParams replaces the params bound to the action.
func (r *Request) SetActionParams(p *Params) {
	if p == nil {
		p = NewParams()
	}
	r.actionParams = p
}

// HandledBy returns the registered names of the controller and action the
// request was dispatched to. Either is "" when it did not resolve. Unlike
// ControllerName and ActionName these never carry the client's spelling.
func (r *Request) HandledBy() (controller, action string) {
	return r.handledController, r.handledAction
}

func (r *Request) setHandledBy(controller, action string) {
	r.handledController = controller
	r.handledAction = action
}

// AdditionalErrorInfo returns extra diagnostic context, or "".
func (r *Request) AdditionalErrorInfo() string {
	if r.ErrorInfo == nil {
		return ""
	}
	return r.ErrorInfo()
}

// Redirect records a redirect to url. A zero status lets the platform
// adapter pick its default.
func (r *Request) Redirect(url string, status int) {
	r.redirectURL = url
	r.redirectStatus = status
}

// Redirected reports whether a redirect was recorded.
func (r *Request) Redirected() bool {
	return r.redirectURL != ""
}

// RedirectURL returns the recorded redirect target.
func (r *Request) RedirectURL() string {
	return r.redirectURL
}

// RedirectStatus returns the recorded redirect status, 0 when unspecified.
func (r *Request) RedirectStatus() int {
	return r.redirectStatus
}
