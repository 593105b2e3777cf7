// Package errors provides coded, structured errors for the fibers engine.
//
// Every failure the engine can report carries a stable code that maps to a
// short message, a longer explanation and a category:
//   - element: construction-time failures (malformed children, unknown components)
//   - render: failures during the interruptible render phase
//   - commit: failures while applying host mutations
//   - config: configuration loading and validation
//   - protocol: wire codec failures
//
// # Usage
//
//	err := errors.New("E001").
//	    WithCaller(1).
//	    WithDetailf("child %d has type %T", i, v)
//
//	fmt.Print(err.Format())
//	// Output:
//	// error[E001]: Malformed element child
//	//   --> app/view.go:15
//	//    |
//	// 13 | func view() *element.Element {
//	// 14 |     return element.Div(nil,
//	// 15 |         struct{}{},
//	// 16 |     )
//	// 17 | }
//	//    |
//	//    = child 2 has type struct {}. Children must be elements, ...
//	//    = category: element
//
// Output is styled with github.com/fatih/color and follows its NoColor
// setting; DisableColors and EnableColors override it.
//
// Errors wrap their cause, so errors.Is and errors.As from the standard
// library see through them.
package errors
