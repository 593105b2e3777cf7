package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// wrapWidth is the column at which explanations are wrapped.
const wrapWidth = 72

var (
	styleError    = color.New(color.FgRed, color.Bold)
	styleMessage  = color.New(color.Bold)
	styleLocation = color.New(color.FgCyan)
	styleGutter   = color.New(color.FgBlue)
	styleMarker   = color.New(color.FgRed)
	styleLabel    = color.New(color.FgHiBlack)
)

// DisableColors turns off ANSI styling for all formatted output.
func DisableColors() { color.NoColor = true }

// EnableColors turns on ANSI styling even when stdout is not a terminal.
func EnableColors() { color.NoColor = false }

// Format renders the error for a terminal:
//
//	error[E012]: Commit failed
//	  --> view.go:15:9
//	   |
//	15 |         struct{}{},
//	   |         ^
//	   = The host rejected a mutation ...
//	   = cause: node 4 detached
//	   = hint: Render into a fresh container
//	   = category: commit
func (e *FibersError) Format() string {
	var b strings.Builder

	head := "error"
	if e.Code != "" {
		head += "[" + e.Code + "]"
	}
	fmt.Fprintf(&b, "%s: %s\n", styleError.Sprint(head), styleMessage.Sprint(e.Message))

	gutter := 2
	if e.Excerpt != nil {
		gutter = len(strconv.Itoa(e.Excerpt.First + len(e.Excerpt.Lines) - 1))
	}
	pad := strings.Repeat(" ", gutter)
	bar := styleGutter.Sprint("|")

	if e.Location != nil {
		fmt.Fprintf(&b, "%s%s %s\n", pad, styleGutter.Sprint("-->"), styleLocation.Sprint(e.Location))
	}
	if e.Excerpt != nil {
		fmt.Fprintf(&b, "%s %s\n", pad, bar)
		for i, line := range e.Excerpt.Lines {
			n := e.Excerpt.First + i
			fmt.Fprintf(&b, "%s %s %s\n", styleGutter.Sprintf("%*d", gutter, n), bar, line)
			if e.Location != nil && n == e.Location.Line && e.Location.Column > 0 {
				fmt.Fprintf(&b, "%s %s %s%s\n", pad, bar, strings.Repeat(" ", e.Location.Column-1), styleMarker.Sprint("^"))
			}
		}
		fmt.Fprintf(&b, "%s %s\n", pad, bar)
	}

	note := func(label, text string) {
		if text == "" {
			return
		}
		eq := styleGutter.Sprint("=")
		if label != "" {
			text = styleLabel.Sprint(label+":") + " " + text
		}
		fmt.Fprintf(&b, "%s %s %s\n", pad, eq, text)
	}

	for _, line := range wrapText(e.explanation(), wrapWidth) {
		note("", line)
	}
	note("cause", errString(e.Wrapped))
	note("hint", e.Suggestion)
	if e.Code != "" {
		note("category", string(e.Category))
	}
	return b.String()
}

// explanation joins the instance detail with the registered one.
func (e *FibersError) explanation() string {
	var parts []string
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	if t, ok := registry[e.Code]; ok && t.Detail != "" {
		parts = append(parts, t.Detail)
	}
	return strings.Join(parts, ". ")
}

// FormatCompact renders the error on one line, prefixed by its location
// the way compilers report positions.
func (e *FibersError) FormatCompact() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Location != nil {
		msg = e.Location.String() + ": " + msg
	}
	return msg
}

// wrapText greedily fills lines of at most width bytes. Words longer
// than width get a line of their own.
func wrapText(text string, width int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// Fprint writes err to w, using Format for FibersErrors.
func Fprint(w io.Writer, err error) {
	var fe *FibersError
	if !stderrors.As(err, &fe) {
		fe = &FibersError{Message: err.Error()}
	}
	fmt.Fprintln(w, fe.Format())
}
