package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/database"
)

func TestSuggestCategoricalAndNumeric(t *testing.T) {
	result := &database.Result{
		Columns: []string{"department", "headcount"},
		Rows: [][]any{
			{"Engineering", int64(4)},
			{"Sales", int64(3)},
		},
	}

	specs := Suggest(result)
	require.NotEmpty(t, specs)
	assert.Equal(t, Bar, specs[0].Kind)
	assert.Equal(t, "department", specs[0].X)
	assert.Equal(t, "headcount", specs[0].Y)

	kinds := make(map[Kind]bool)
	for _, s := range specs {
		kinds[s.Kind] = true
	}
	assert.True(t, kinds[Pie])
	assert.True(t, kinds[Histogram])
}

func TestSuggestTwoNumericGivesScatter(t *testing.T) {
	result := &database.Result{
		Columns: []string{"salary", "age"},
		Rows:    [][]any{{75000.0, int64(28)}, {65000.0, int64(32)}},
	}

	specs := Suggest(result)
	var scatter *Spec
	for i := range specs {
		if specs[i].Kind == Scatter {
			scatter = &specs[i]
		}
	}
	require.NotNil(t, scatter)
	assert.Equal(t, "salary", scatter.X)
	assert.Equal(t, "age", scatter.Y)
}

func TestSuggestNotChartable(t *testing.T) {
	assert.Nil(t, Suggest(nil))
	assert.Nil(t, Suggest(&database.Result{Columns: []string{"a"}}))

	textOnly := &database.Result{
		Columns: []string{"name", "city"},
		Rows:    [][]any{{"Alice", "Berlin"}},
	}
	assert.Nil(t, Suggest(textOnly))
	assert.Nil(t, Pick(textOnly))
}

func TestPickReturnsBestSuggestion(t *testing.T) {
	result := &database.Result{
		Columns: []string{"category", "total"},
		Rows:    [][]any{{"Software", 8500.0}},
	}
	spec := Pick(result)
	require.NotNil(t, spec)
	assert.Equal(t, Bar, spec.Kind)
}

func TestClassifySkipsNulls(t *testing.T) {
	result := &database.Result{
		Columns: []string{"amount"},
		Rows:    [][]any{{nil}, {42.5}},
	}
	spec := Pick(result)
	require.NotNil(t, spec)
	assert.Equal(t, Histogram, spec.Kind)
}
