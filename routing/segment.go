package routing

import (
	"log/slog"
	"strings"

	"github.com/vitalvas/lvc/mvc"
)

// SegmentRouter routes the rewritten request path (the "url" query value)
// by its segments: "blog/show/42/comments" runs the blog controller's show
// action with the positional params "42" and "comments". Empty segments
// after the action are skipped.
type SegmentRouter struct {
	logger *slog.Logger
}

// NewSegmentRouter creates a segment router.
func NewSegmentRouter(opts ...Option) *SegmentRouter {
	o := buildOptions(opts)
	return &SegmentRouter{logger: o.logger}
}

// Route implements mvc.Router. Requests without a "url" query value are
// not handled. A leading "/" is ignored, so "/" and "" leave the controller
// empty for the front controller's default.
func (r *SegmentRouter) Route(req *mvc.Request) bool {
	path, ok := req.Input().URL()
	if !ok {
		return false
	}

	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")

	req.SetControllerName(segments[0])

	var params []any
	if len(segments) > 1 {
		req.SetActionName(segments[1])
		for _, s := range segments[2:] {
			if s != "" {
				params = append(params, s)
			}
		}
	}
	req.SetActionParams(mvc.PositionalParams(params...))

	r.logger.Debug("routed by path segments",
		"url", path,
		"controller", req.ControllerName(),
		"action", req.ActionName(),
	)

	return true
}
