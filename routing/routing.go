// Package routing provides the routers of the dispatch pipeline:
//
//   - KeyValueRouter reads the controller and action from query values
//     (?controller=blog&action=show).
//   - SegmentRouter splits the rewritten path into
//     controller/action/param/param...
//   - RegexRouter matches the rewritten path against an ordered Table of
//     regular expressions loaded from YAML.
//
// All routers implement mvc.Router and can be combined in one chain; the
// first router that succeeds wins.
package routing

import (
	"log/slog"

	"github.com/vitalvas/lvc/internal/logging"
	"github.com/vitalvas/lvc/mvc"
)

// Option configures a router.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for routing decisions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	return o
}

var (
	_ mvc.Router = (*KeyValueRouter)(nil)
	_ mvc.Router = (*SegmentRouter)(nil)
	_ mvc.Router = (*RegexRouter)(nil)
)
