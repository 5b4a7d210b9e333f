// Package config loads the application configuration file of an lvc site.
//
// A file is TOML or YAML, picked by extension, and is decoded over Default so
// only the settings that differ need to be written:
//
//	[views]
//	controller_paths = ["views/"]
//	layout_paths     = ["views/layouts/"]
//
//	[dispatch]
//	default_controller_action_params = { page_name = "home" }
//
//	[routing]
//	routers     = ["regex", "segment"]
//	routes_file = "routes.yaml"
//
//	[server]
//	addr = ":8080"
//	h2c  = true
//
//	[log]
//	level = "debug"
//
// File.MVC converts the views and dispatch sections into an mvc.Config and
// File.Routers builds the router chain described by the routing section.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/lvc/internal/logging"
	"github.com/vitalvas/lvc/mvc"
	"github.com/vitalvas/lvc/routing"
)

// Supported file formats.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Router names accepted in the routing section.
const (
	RouterRegex    = "regex"
	RouterKeyValue = "keyvalue"
	RouterSegment  = "segment"
)

var (
	// ErrUnknownFormat is returned for a file extension or format name
	// other than TOML or YAML.
	ErrUnknownFormat = errors.New("config: unknown format")

	// ErrInvalid is wrapped by every Validate failure.
	ErrInvalid = errors.New("config: invalid")
)

// File is the decoded configuration file.
type File struct {
	Views    Views    `toml:"views" yaml:"views"`
	Dispatch Dispatch `toml:"dispatch" yaml:"dispatch"`
	Routing  Routing  `toml:"routing" yaml:"routing"`
	Server   Server   `toml:"server" yaml:"server"`
	Log      Log      `toml:"log" yaml:"log"`

	// dir is the directory of the loaded file; relative paths resolve
	// against it.
	dir string
}

// Views locates controller views, layouts and elements.
type Views struct {
	ControllerPaths  []string `toml:"controller_paths" yaml:"controller_paths"`
	ControllerSuffix string   `toml:"controller_suffix" yaml:"controller_suffix"`
	LayoutPaths      []string `toml:"layout_paths" yaml:"layout_paths"`
	LayoutSuffix     string   `toml:"layout_suffix" yaml:"layout_suffix"`
	ElementPaths     []string `toml:"element_paths" yaml:"element_paths"`
	ElementSuffix    string   `toml:"element_suffix" yaml:"element_suffix"`
	LayoutContentVar string   `toml:"layout_content_var" yaml:"layout_content_var"`
}

// Dispatch holds the front controller defaults.
type Dispatch struct {
	SendActionParamsAsArray       bool           `toml:"send_action_params_as_array" yaml:"send_action_params_as_array"`
	DefaultController             string         `toml:"default_controller" yaml:"default_controller"`
	DefaultControllerAction       string         `toml:"default_controller_action" yaml:"default_controller_action"`
	DefaultControllerActionParams map[string]any `toml:"default_controller_action_params" yaml:"default_controller_action_params"`
	DefaultAction                 string         `toml:"default_action" yaml:"default_action"`
}

// Routing describes the router chain.
type Routing struct {
	// Routers lists the routers in the order they are tried.
	Routers []string `toml:"routers" yaml:"routers"`
	// RoutesFile is the YAML route table of the regex router. Empty uses
	// routing.DefaultTable.
	RoutesFile string `toml:"routes_file" yaml:"routes_file"`

	ControllerKey string `toml:"controller_key" yaml:"controller_key"`
	ActionKey     string `toml:"action_key" yaml:"action_key"`
	ParamsKey     string `toml:"params_key" yaml:"params_key"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Addr              string `toml:"addr" yaml:"addr"`
	H2C               bool   `toml:"h2c" yaml:"h2c"`
	MetricsPath       string `toml:"metrics_path" yaml:"metrics_path"`
	ReadHeaderTimeout string `toml:"read_header_timeout" yaml:"read_header_timeout"`
	DetailedErrors    bool   `toml:"detailed_errors" yaml:"detailed_errors"`
}

// Log selects the log level and format.
type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns the configuration used for every setting a file leaves
// out.
func Default() File {
	return File{
		Views: Views{
			ControllerPaths:  []string{"views/"},
			ControllerSuffix: ".tmpl",
			LayoutPaths:      []string{"views/layouts/"},
			LayoutSuffix:     ".tmpl",
			ElementPaths:     []string{"views/elements/"},
			ElementSuffix:    ".tmpl",
			LayoutContentVar: "layoutContent",
		},
		Dispatch: Dispatch{
			DefaultController:             "page",
			DefaultControllerAction:       "view",
			DefaultControllerActionParams: map[string]any{"page_name": "home"},
			DefaultAction:                 "index",
		},
		Routing: Routing{
			Routers:       []string{RouterRegex},
			ControllerKey: "controller",
			ActionKey:     "action",
		},
		Server: Server{
			Addr:              ":8080",
			MetricsPath:       "/metrics",
			ReadHeaderTimeout: "10s",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Load reads, decodes and validates a configuration file.
func Load(path string) (File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return File{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}

	f, err := Parse(data, format)
	if err != nil {
		return File{}, fmt.Errorf("load config %s: %w", path, err)
	}
	f.dir = filepath.Dir(path)

	return f, nil
}

// Parse decodes data in the given format over Default and validates the
// result. Keys that match no setting are rejected with ErrInvalid.
func Parse(data []byte, format string) (File, error) {
	f := Default()

	// Decoders merge into existing maps; the default params are only
	// restored when the file does not set any.
	defaultParams := f.Dispatch.DefaultControllerActionParams
	f.Dispatch.DefaultControllerActionParams = nil

	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f)
		if err != nil {
			return File{}, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return File{}, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			var typeErr *yaml.TypeError
			if errors.As(err, &typeErr) {
				return File{}, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(typeErr.Errors, "; "))
			}
			return File{}, err
		}
	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if f.Dispatch.DefaultControllerActionParams == nil {
		f.Dispatch.DefaultControllerActionParams = defaultParams
	}

	if err := f.Validate(); err != nil {
		return File{}, err
	}

	return f, nil
}

// Validate reports the first invalid setting.
func (f File) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	if f.Views.LayoutContentVar == "" {
		return invalid("views.layout_content_var is empty")
	}

	if f.Dispatch.DefaultController == "" {
		return invalid("dispatch.default_controller is empty")
	}
	if f.Dispatch.DefaultAction == "" {
		return invalid("dispatch.default_action is empty")
	}

	if len(f.Routing.Routers) == 0 {
		return invalid("routing.routers is empty")
	}
	seen := make(map[string]bool, len(f.Routing.Routers))
	for _, name := range f.Routing.Routers {
		switch name {
		case RouterRegex, RouterKeyValue, RouterSegment:
		default:
			return invalid("unknown router %q", name)
		}
		if seen[name] {
			return invalid("router %q listed twice", name)
		}
		seen[name] = true
	}
	if seen[RouterKeyValue] && f.Routing.ControllerKey == "" {
		return invalid("routing.controller_key is empty")
	}

	if p := f.Server.MetricsPath; p != "" && !strings.HasPrefix(p, "/") {
		return invalid("server.metrics_path %q must start with /", p)
	}
	if _, err := f.Server.HeaderTimeout(); err != nil {
		return invalid("server.read_header_timeout: %v", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(f.Log.Level)); err != nil {
		return invalid("log.level %q", f.Log.Level)
	}
	switch strings.ToLower(f.Log.Format) {
	case "text", "json":
	default:
		return invalid("log.format %q", f.Log.Format)
	}

	return nil
}

// HeaderTimeout parses ReadHeaderTimeout. Empty means no timeout.
func (s Server) HeaderTimeout() (time.Duration, error) {
	if s.ReadHeaderTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.ReadHeaderTimeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// MVC returns the dispatch configuration.
func (f File) MVC() mvc.Config {
	return mvc.Config{
		ControllerViewPaths:           clone(f.Views.ControllerPaths),
		ControllerViewSuffix:          f.Views.ControllerSuffix,
		LayoutViewPaths:               clone(f.Views.LayoutPaths),
		LayoutViewSuffix:              f.Views.LayoutSuffix,
		ElementViewPaths:              clone(f.Views.ElementPaths),
		ElementViewSuffix:             f.Views.ElementSuffix,
		LayoutContentVarName:          f.Views.LayoutContentVar,
		SendActionParamsAsArray:       f.Dispatch.SendActionParamsAsArray,
		DefaultControllerName:         f.Dispatch.DefaultController,
		DefaultControllerActionName:   f.Dispatch.DefaultControllerAction,
		DefaultControllerActionParams: mvc.ParamsFromMap(f.Dispatch.DefaultControllerActionParams),
		DefaultActionName:             f.Dispatch.DefaultAction,
	}
}

// RoutesPath returns RoutesFile resolved against the directory of the loaded
// file.
func (f File) RoutesPath() string {
	p := f.Routing.RoutesFile
	if p == "" || filepath.IsAbs(p) || f.dir == "" {
		return p
	}
	return filepath.Join(f.dir, p)
}

// RouteTable loads the regex router table, falling back to
// routing.DefaultTable when no routes file is configured.
func (f File) RouteTable() (routing.Table, error) {
	if f.Routing.RoutesFile == "" {
		return routing.DefaultTable(), nil
	}
	return routing.LoadTable(f.RoutesPath())
}

// Routers builds the router chain in the configured order.
func (f File) Routers(opts ...routing.Option) (mvc.Chain, error) {
	chain := make(mvc.Chain, 0, len(f.Routing.Routers))

	for _, name := range f.Routing.Routers {
		switch name {
		case RouterRegex:
			table, err := f.RouteTable()
			if err != nil {
				return nil, err
			}
			r, err := routing.NewRegexRouter(table, opts...)
			if err != nil {
				return nil, err
			}
			chain = append(chain, r)

		case RouterKeyValue:
			r := routing.NewKeyValueRouter(opts...)
			r.ControllerKey = f.Routing.ControllerKey
			if f.Routing.ActionKey != "" {
				r.ActionKey = f.Routing.ActionKey
			}
			r.ParamsKey = f.Routing.ParamsKey
			chain = append(chain, r)

		case RouterSegment:
			chain = append(chain, routing.NewSegmentRouter(opts...))

		default:
			return nil, fmt.Errorf("%w: unknown router %q", ErrInvalid, name)
		}
	}

	return chain, nil
}

// Logger builds the logger described by the log section.
func (f File) Logger(w io.Writer) *slog.Logger {
	return logging.New(logging.ParseLevel(f.Log.Level), f.Log.Format, w)
}

// Encode writes the configuration in the given format.
func (f File) Encode(w io.Writer, format string) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(f)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
