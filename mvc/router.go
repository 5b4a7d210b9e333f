package mvc

// Router tries to route a request. On success it sets the controller name,
// action name and action params on req and returns true. A router that
// cannot handle the request leaves it untouched and returns false.
type Router interface {
	Route(req *Request) bool
}

// RouterFunc adapts a function to the Router interface.
type RouterFunc func(req *Request) bool

// Route implements Router.
func (f RouterFunc) Route(req *Request) bool {
	return f(req)
}

// Chain is an ordered list of routers. The first router that succeeds wins
// and later routers are not consulted.
type Chain []Router

// Route implements Router.
func (c Chain) Route(req *Request) bool {
	return c.route(req) >= 0
}

// route returns the index of the router that handled req, or -1.
func (c Chain) route(req *Request) int {
	for i, r := range c {
		if r.Route(req) {
			return i
		}
	}
	return -1
}
