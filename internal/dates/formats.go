// Package dates turns a column of raw date-like values into calendar dates,
// repairing what it can and synthesizing the rest.
package dates

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLayouts are tried in order after the flexible parse fails.
// Day-first forms come before month-first ones.
var DefaultLayouts = []string{
	"2/1/2006",
	"1/2/2006",
	"2006-1-2",
	"2-1-2006",
	"1-2-2006",
	"2.1.2006",
	"1.2.2006",
	"2006.1.2",
	"2-Jan-2006",
	"Jan-2-2006",
	"2006-Jan-2",
	"2 January 2006",
	"January 2 2006",
	"2006 January 2",
}

// Formats is an immutable, ordered list of Go time layouts.
type Formats struct {
	layouts []string
}

// NewFormats validates and copies layouts. Every layout must be able to
// format and re-parse a reference date.
func NewFormats(layouts []string) (*Formats, error) {
	if len(layouts) == 0 {
		return nil, fmt.Errorf("at least one date layout is required")
	}
	ref := time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)
	out := make([]string, 0, len(layouts))
	for _, l := range layouts {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		parsed, err := time.Parse(l, ref.Format(l))
		if err != nil || !sameDay(parsed, ref) {
			return nil, fmt.Errorf("date layout %q does not carry a full calendar date", l)
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one date layout is required")
	}
	return &Formats{layouts: out}, nil
}

// DefaultFormats returns the built-in layout list.
func DefaultFormats() *Formats {
	f, err := NewFormats(DefaultLayouts)
	if err != nil {
		panic(err)
	}
	return f
}

// Layouts returns a copy of the layouts in order.
func (f *Formats) Layouts() []string {
	out := make([]string, len(f.layouts))
	copy(out, f.layouts)
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
