package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"runtime"
)

// Category groups error codes by the phase that reports them.
type Category string

const (
	CategoryElement  Category = "element"
	CategoryRender   Category = "render"
	CategoryCommit   Category = "commit"
	CategoryConfig   Category = "config"
	CategoryProtocol Category = "protocol"
	CategoryCLI      Category = "cli"
)

// contextRadius is the number of source lines shown on each side of a
// located error.
const contextRadius = 2

// Location is a position in a source file. Column is 1-based; 0 means
// unknown.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l *Location) String() string {
	switch {
	case l == nil:
		return ""
	case l.Column > 0:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	default:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
}

// Excerpt is a run of source lines around a Location.
type Excerpt struct {
	// First is the line number of Lines[0].
	First int
	Lines []string
}

// FibersError is a coded error. Code indexes the registry; the registered
// explanation is looked up when formatting rather than copied in.
type FibersError struct {
	Code       string
	Category   Category
	Message    string
	Detail     string
	Location   *Location
	Excerpt    *Excerpt
	Suggestion string
	Wrapped    error
}

func (e *FibersError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	for _, part := range []string{e.Detail, errString(e.Wrapped)} {
		if part != "" {
			msg += ": " + part
		}
	}
	return msg
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (e *FibersError) Unwrap() error {
	return e.Wrapped
}

// Is matches another FibersError carrying the same non-empty code, which
// makes Code usable as an errors.Is target.
func (e *FibersError) Is(target error) bool {
	t, ok := target.(*FibersError)
	return ok && t.Code != "" && t.Code == e.Code
}

// WithLocation records a source position and loads the lines around it.
func (e *FibersError) WithLocation(file string, line, column int) *FibersError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Excerpt = readExcerpt(file, line, contextRadius)
	return e
}

// WithCaller records the position skip frames above its caller.
func (e *FibersError) WithCaller(skip int) *FibersError {
	if _, file, line, ok := runtime.Caller(skip + 1); ok {
		e.WithLocation(file, line, 0)
	}
	return e
}

func (e *FibersError) WithSuggestion(s string) *FibersError {
	e.Suggestion = s
	return e
}

func (e *FibersError) WithDetail(d string) *FibersError {
	e.Detail = d
	return e
}

func (e *FibersError) WithDetailf(format string, args ...any) *FibersError {
	return e.WithDetail(fmt.Sprintf(format, args...))
}

func (e *FibersError) Wrap(err error) *FibersError {
	e.Wrapped = err
	return e
}

// readExcerpt returns lines [line-radius, line+radius] of file, clipped to
// the file. It returns nil if the file cannot be read or is too short.
func readExcerpt(file string, line, radius int) *Excerpt {
	f, err := os.Open(file)
	if err != nil {
		return nil
	}
	defer f.Close()

	first := max(1, line-radius)
	last := line + radius
	ex := &Excerpt{First: first}

	sc := bufio.NewScanner(f)
	for n := 1; n <= last && sc.Scan(); n++ {
		if n >= first {
			ex.Lines = append(ex.Lines, sc.Text())
		}
	}
	if len(ex.Lines) == 0 {
		return nil
	}
	return ex
}

// New returns an error for a registered code. Unregistered codes produce
// an "Unknown error" with no category.
func New(code string) *FibersError {
	t, ok := registry[code]
	if !ok {
		return &FibersError{Code: code, Message: "Unknown error"}
	}
	return &FibersError{Code: code, Category: t.Category, Message: t.Message}
}

// Newf returns an uncoded error.
func Newf(category Category, format string, args ...any) *FibersError {
	return &FibersError{Category: category, Message: fmt.Sprintf(format, args...)}
}

// Code returns an errors.Is target matching any FibersError with code.
func Code(code string) error {
	return &FibersError{Code: code}
}

// FromError returns err itself when it already wraps a FibersError, and
// otherwise wraps it under code.
func FromError(err error, code string) *FibersError {
	if err == nil {
		return nil
	}
	var fe *FibersError
	if stderrors.As(err, &fe) {
		return fe
	}
	return New(code).Wrap(err)
}
