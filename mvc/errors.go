package mvc

import "fmt"

// ErrorKind classifies dispatch failures. All kinds share the *Error type
// and are told apart by Kind (and by message for humans).
type ErrorKind int

const (
	// KindInternal is any failure not covered by a more specific kind.
	KindInternal ErrorKind = iota
	// KindControllerNotFound means the registry had no controller for the name.
	KindControllerNotFound
	// KindActionNotFound means the controller has no handler for the action.
	KindActionNotFound
	// KindViewNotFound means no controller view exists in any search root.
	KindViewNotFound
	// KindLayoutNotFound means no layout view exists in any search root.
	KindLayoutNotFound
	// KindRender means a located template failed while executing.
	KindRender
)

var kindNames = map[ErrorKind]string{
	KindInternal:           "internal",
	KindControllerNotFound: "controller_not_found",
	KindActionNotFound:     "action_not_found",
	KindViewNotFound:       "view_not_found",
	KindLayoutNotFound:     "layout_not_found",
	KindRender:             "render",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type surfaced by dispatch.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, ErrActionNotFound) matches any action-not-found failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// withInfo returns a copy of e whose message carries additional context.
func (e *Error) withInfo(info string) *Error {
	return &Error{
		Kind:    e.Kind,
		Message: e.Error() + ". " + info,
		Err:     e.Err,
	}
}

// Sentinel errors for errors.Is comparisons.
var (
	ErrControllerNotFound = &Error{Kind: KindControllerNotFound, Message: "controller not found"}
	ErrActionNotFound     = &Error{Kind: KindActionNotFound, Message: "action not found"}
	ErrViewNotFound       = &Error{Kind: KindViewNotFound, Message: "view not found"}
	ErrLayoutNotFound     = &Error{Kind: KindLayoutNotFound, Message: "layout not found"}
	ErrRender             = &Error{Kind: KindRender, Message: "render failed"}
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func controllerNotFound(name string) *Error {
	return newError(KindControllerNotFound, "Unable to load controller %q", name)
}
