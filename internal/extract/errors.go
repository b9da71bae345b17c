package extract

import "fmt"

// Kind classifies extraction failures
type Kind string

const (
	KindUnsupported Kind = "unsupported"
	KindUnreadable  Kind = "unreadable"
	KindNoText      Kind = "no_text"
	KindToolMissing Kind = "tool_missing"
)

var kindText = map[Kind]string{
	KindUnsupported: "unsupported document format",
	KindUnreadable:  "document could not be read",
	KindNoText:      "no text could be extracted",
	KindToolMissing: "pdftotext not found",
}

// Error is returned by every extraction failure. Match with errors.Is against
// the sentinels below, or errors.As for the path and cause.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// Sentinels for errors.Is
var (
	ErrUnsupported = &Error{Kind: KindUnsupported}
	ErrUnreadable  = &Error{Kind: KindUnreadable}
	ErrNoText      = &Error{Kind: KindNoText}
	ErrToolMissing = &Error{Kind: KindToolMissing}
)

func (e *Error) Error() string {
	msg := kindText[e.Kind]
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "extract: " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}
