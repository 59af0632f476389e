package assistant

import (
	"context"
	"fmt"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/config"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/database"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/llm"
)

// Agent answers a question with free-form text, typically embedding the SQL
// it ran in a fenced block. Implementations are bounded: they must return
// once their iteration budget is spent.
type Agent interface {
	Answer(ctx context.Context, question string) (string, error)
}

// sqlAgent is the default Agent: a bounded generate-execute-repair loop.
// On an execution failure it feeds the error back to the model and tries
// again, up to the configured iteration count.
type sqlAgent struct {
	db     database.Introspector
	client llm.Client
	knobs  config.PipelineConfig
}

// NewAgent returns the default bounded agent.
func NewAgent(db database.Introspector, client llm.Client, knobs config.PipelineConfig) Agent {
	return &sqlAgent{db: db, client: client, knobs: knobs}
}

func (a *sqlAgent) Answer(ctx context.Context, question string) (string, error) {
	descriptor, err := a.db.Snapshot(ctx, a.knobs.TableCap)
	if err != nil {
		return "", &ErrSchema{Msg: "failed to build schema snapshot", Err: err}
	}
	samples := collectSamples(ctx, a.db, descriptor, a.knobs.SampleTables, a.knobs.SampleRows)
	prompt := BuildPrompt(question, descriptor, samples)

	iterations := a.knobs.AgentIterations
	if iterations <= 0 {
		iterations = 3
	}

	var lastErr error
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		sqlText, err := a.client.GenerateSQL(ctx, prompt)
		if err != nil {
			return "", &ErrGeneration{Msg: "model returned no usable SQL", Err: err}
		}
		if err := Validate(sqlText); err != nil {
			return "", err
		}

		result, err := a.db.Select(ctx, sqlText, a.knobs.RowCap)
		if err != nil {
			lastErr = err
			prompt = fmt.Sprintf("%s\n\nThe previous query:\n%s\nfailed with this error: %v\nWrite a corrected query.\n\nSQL Query:",
				prompt, sqlText, err)
			continue
		}

		return narrate(question, sqlText, result), nil
	}

	return "", &ErrExecution{
		Msg: fmt.Sprintf("no working query after %d attempts", iterations),
		Err: lastErr,
	}
}

// narrate wraps a successful run in the answer text shown to the user. The
// SQL is fenced so downstream side-extraction can recover it.
func narrate(question, sqlText string, result *database.Result) string {
	rowWord := "rows"
	if result.RowCount() == 1 {
		rowWord = "row"
	}
	text := fmt.Sprintf("To answer %q I ran:\n\n```sql\n%s\n```\n\nThe query returned %d %s.",
		question, sqlText, result.RowCount(), rowWord)
	if result.Truncated {
		text += " The result was truncated at the row cap."
	}
	return text
}
