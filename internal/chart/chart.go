// Package chart suggests chart types for tabular query results. Rendering
// is left to the consumer; this package only classifies columns and picks
// sensible axis assignments.
package chart

import (
	"github.com/GoogleCloudPlatform/sql-assistant/internal/database"
)

// Kind identifies a chart type.
type Kind string

const (
	Bar       Kind = "bar"
	Line      Kind = "line"
	Scatter   Kind = "scatter"
	Histogram Kind = "histogram"
	Pie       Kind = "pie"
)

// Spec describes one renderable chart suggestion.
type Spec struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	X     string `json:"x,omitempty"`
	Y     string `json:"y,omitempty"`
}

// Suggest returns chart candidates for a result, best first. An empty slice
// means the data is not chartable (no rows, or no numeric column).
func Suggest(result *database.Result) []Spec {
	if result == nil || len(result.Rows) == 0 {
		return nil
	}

	numeric, categorical := classify(result)
	if len(numeric) == 0 {
		return nil
	}

	var specs []Spec
	if len(categorical) > 0 {
		x, y := categorical[0], numeric[0]
		specs = append(specs,
			Spec{Kind: Bar, Title: y + " by " + x, X: x, Y: y},
			Spec{Kind: Pie, Title: y + " share by " + x, X: x, Y: y},
		)
		specs = append(specs, Spec{Kind: Line, Title: y + " over " + x, X: x, Y: y})
	}
	if len(numeric) >= 2 {
		specs = append(specs, Spec{
			Kind:  Scatter,
			Title: numeric[1] + " vs " + numeric[0],
			X:     numeric[0],
			Y:     numeric[1],
		})
	}
	specs = append(specs, Spec{Kind: Histogram, Title: "distribution of " + numeric[0], X: numeric[0]})

	return specs
}

// Pick returns the single best suggestion, or nil when nothing is chartable.
func Pick(result *database.Result) *Spec {
	specs := Suggest(result)
	if len(specs) == 0 {
		return nil
	}
	return &specs[0]
}

// classify splits result columns into numeric and categorical by inspecting
// the first non-nil value in each column.
func classify(result *database.Result) (numeric, categorical []string) {
	for i, name := range result.Columns {
		switch {
		case columnIsNumeric(result, i):
			numeric = append(numeric, name)
		default:
			categorical = append(categorical, name)
		}
	}
	return numeric, categorical
}

func columnIsNumeric(result *database.Result, col int) bool {
	for _, row := range result.Rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		switch row[col].(type) {
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		default:
			return false
		}
	}
	return false
}
