package mvc

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/vitalvas/lvc/internal/logging"
)

// Option configures a Registry or a FrontController.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger. A nil logger discards output.
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

// Factory creates a new controller instance.
type Factory func() Controller

// Registry resolves controller names to fresh controller instances. Names
// are matched by their ControllerTypeName, so "blog_post" and "blogPost"
// resolve to the same factory.
type Registry struct {
	cfg       Config
	templates TemplateSource
	logger    *slog.Logger

	mu        sync.RWMutex
	factories map[string]Factory
	names     map[string]string
}

// NewRegistry creates a registry that hands cfg and templates to every
// controller it resolves. A nil templates source finds nothing.
func NewRegistry(cfg Config, templates TemplateSource, opts ...Option) *Registry {
	o := buildOptions(opts)

	if templates == nil {
		templates = TemplateMap{}
	}
	if cfg.DefaultControllerActionParams == nil {
		cfg.DefaultControllerActionParams = NewParams()
	}

	return &Registry{
		cfg:       cfg,
		templates: templates,
		logger:    o.logger,
		factories: make(map[string]Factory),
		names:     make(map[string]string),
	}
}

// Config returns the registry's configuration.
func (r *Registry) Config() Config {
	return r.cfg
}

// Templates returns the template source handed to controllers.
func (r *Registry) Templates() TemplateSource {
	return r.templates
}

// Register adds a controller factory. Registering a name whose type name
// is already taken replaces the previous factory.
func (r *Registry) Register(name string, f Factory) {
	key := ControllerTypeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[key] = f
	r.names[key] = name
}

// Resolve returns a new controller instance for name, set up with the
// registry's configuration. The instance keeps the requested spelling as its
// ControllerName and the spelling it was registered under as its
// RegisteredName. The boolean is false when no factory matches.
func (r *Registry) Resolve(name string) (Controller, bool) {
	if name == "" {
		return nil, false
	}

	key := ControllerTypeName(name)

	r.mu.RLock()
	f, ok := r.factories[key]
	registered := r.names[key]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	c := f()
	if c == nil || c.Page() == nil {
		return nil, false
	}

	c.Page().setup(name, registered, c, r)
	return c, true
}

// Names returns the registered controller names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
