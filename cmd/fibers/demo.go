package main

import (
	"fmt"
	"time"

	"github.com/vango-dev/fibers/pkg/element"
)

// clock shows the time of the current tick. The lap list grows by one item
// per tick and is cleared every fifth tick, so the stream carries
// placements, updates and deletions.
var clock = element.Func("Clock", func(p element.Props) *element.Element {
	tick, _ := p["tick"].(int)
	now, _ := p["now"].(time.Time)
	label := "00:00:00"
	if !now.IsZero() {
		label = now.Format("15:04:05")
	}

	laps := make([]any, 0, tick%5)
	for i := 1; i <= tick%5; i++ {
		laps = append(laps, element.Li(element.Props{"class": "lap"}, fmt.Sprintf("lap %d", i)))
	}

	return element.Div(element.Props{"class": "clock", "data-tick": tick},
		element.H1(nil, label),
		element.P(nil, "tick ", tick),
		element.Ul(nil, laps...),
	)
})

// components are the function components element documents may name.
func components() element.Registry {
	return element.Registry{
		"Clock": clock,
	}
}

// clockApp is the demo root for tick at now.
func clockApp(tick int, now time.Time) *element.Element {
	return element.Render(clock, element.Props{"tick": tick, "now": now})
}
