package dates

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
)

// Stage records how a row's date was obtained.
type Stage string

// Repair stages, in the order they run.
const (
	StageUnresolved Stage = ""
	StageFlexible   Stage = "flexible"
	StageLayout     Stage = "layout"
	StageComponents Stage = "components"
	StageSynthetic  Stage = "synthetic"
)

// Epoch is the first synthetic date.
var Epoch = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// Result holds one date per input value.
type Result struct {
	Dates     []time.Time
	Stages    []Stage
	Synthetic int
}

// Normalizer repairs date columns.
type Normalizer struct {
	formats *Formats
}

// NewNormalizer creates a normalizer using formats for the layout stage.
// A nil formats uses the defaults.
func NewNormalizer(formats *Formats) *Normalizer {
	if formats == nil {
		formats = DefaultFormats()
	}
	return &Normalizer{formats: formats}
}

// repairStage fills rows of res that are still unresolved.
type repairStage func(n *Normalizer, values []any, res *Result)

var repairStages = []repairStage{
	flexibleStage,
	layoutStage,
	componentStage,
	syntheticStage,
}

// Normalize returns a valid date for every value. It never fails: rows no
// stage can parse get sequential dates starting at Epoch.
func (n *Normalizer) Normalize(values []any) Result {
	res := Result{
		Dates:  make([]time.Time, len(values)),
		Stages: make([]Stage, len(values)),
	}
	for _, stage := range repairStages {
		if res.unresolved() == 0 {
			break
		}
		stage(n, values, &res)
	}
	if res.Synthetic > 0 {
		slog.Warn("Assigned synthetic dates to unparseable rows",
			"rows", res.Synthetic,
			"total", len(values))
	}
	return res
}

// Probe reports whether v parses as a date without falling back to a
// synthetic one.
func (n *Normalizer) Probe(v any) bool {
	res := Result{Dates: make([]time.Time, 1), Stages: make([]Stage, 1)}
	values := []any{v}
	for _, stage := range repairStages[:len(repairStages)-1] {
		stage(n, values, &res)
		if res.Stages[0] != StageUnresolved {
			return true
		}
	}
	return false
}

func (r *Result) unresolved() int {
	n := 0
	for _, s := range r.Stages {
		if s == StageUnresolved {
			n++
		}
	}
	return n
}

func (r *Result) set(i int, t time.Time, s Stage) {
	r.Dates[i] = Day(t)
	r.Stages[i] = s
}

func flexibleStage(_ *Normalizer, values []any, res *Result) {
	for i, v := range values {
		if res.Stages[i] != StageUnresolved {
			continue
		}
		if t, ok := v.(time.Time); ok {
			if !t.IsZero() {
				res.set(i, t, StageFlexible)
			}
			continue
		}
		s, ok := text(v)
		if !ok {
			continue
		}
		t, err := dateparse.ParseAny(s)
		if err != nil {
			continue
		}
		res.set(i, t, StageFlexible)
	}
}

// layoutStage prefers the first layout that resolves every remaining row.
// Otherwise layouts are applied in order, never overwriting a row an
// earlier layout resolved.
func layoutStage(n *Normalizer, values []any, res *Result) {
	var pending []int
	for i := range values {
		if res.Stages[i] == StageUnresolved {
			if _, ok := text(values[i]); ok {
				pending = append(pending, i)
			}
		}
	}
	if len(pending) == 0 {
		return
	}

	for _, layout := range n.formats.layouts {
		parsed := make([]time.Time, len(pending))
		all := true
		for j, i := range pending {
			s, _ := text(values[i])
			t, err := time.Parse(layout, s)
			if err != nil {
				all = false
				break
			}
			parsed[j] = t
		}
		if all {
			for j, i := range pending {
				res.set(i, parsed[j], StageLayout)
			}
			return
		}
	}

	for _, layout := range n.formats.layouts {
		for _, i := range pending {
			if res.Stages[i] != StageUnresolved {
				continue
			}
			s, _ := text(values[i])
			if t, err := time.Parse(layout, s); err == nil {
				res.set(i, t, StageLayout)
			}
		}
	}
}

func componentStage(_ *Normalizer, values []any, res *Result) {
	for i, v := range values {
		if res.Stages[i] != StageUnresolved {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if t, ok := fromComponents(s); ok {
			res.set(i, t, StageComponents)
		}
	}
}

// fromComponents reads year, month and day out of the digit-only tokens of
// s. A four-digit first token means Y-M-D, a four-digit last token D-M-Y.
func fromComponents(s string) (time.Time, bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '/' || r == '.' || unicode.IsSpace(r)
	})
	var tokens []string
	for _, p := range parts {
		if isDigits(p) {
			tokens = append(tokens, p)
		}
	}
	if len(tokens) < 3 {
		return time.Time{}, false
	}

	var ys, ms, ds string
	switch {
	case len(tokens[0]) == 4:
		ys, ms, ds = tokens[0], tokens[1], tokens[2]
	case len(tokens[len(tokens)-1]) == 4:
		ds, ms, ys = tokens[0], tokens[1], tokens[len(tokens)-1]
	default:
		return time.Time{}, false
	}

	y, err1 := strconv.Atoi(ys)
	m, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func syntheticStage(_ *Normalizer, values []any, res *Result) {
	next := 0
	for i := range values {
		if res.Stages[i] != StageUnresolved {
			continue
		}
		res.set(i, Epoch.AddDate(0, 0, next), StageSynthetic)
		res.Synthetic++
		next++
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// text returns the textual form of a parseable cell.
func text(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	default:
		return "", false
	}
}
